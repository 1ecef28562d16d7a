// Package cli implements the deft command line: conformance checking
// with a regression baseline, an interactive solver session, fixture
// formatting and a definition server for remote sessions.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/funvibe/deft/internal/config"
)

const usageText = `deft checks structural type compatibility.

Usage:

  deft check [paths...]    run conformance fixtures, diff against the baseline
  deft repl                interactive solver session
  deft fmt [files...]      reprint fixture types in canonical notation
  deft serve [paths...]    serve fixture definitions to remote sessions
  deft version             print the version

Command flags:

  check   --config FILE       configuration file (default: nearest deft.yaml)
          --baseline FILE     baseline database (default: from configuration)
          --update-baseline   accept this run as the new baseline
  repl    --config FILE       configuration file
          --resolver ADDR     fetch unknown names from a resolver service
  fmt     -w                  rewrite files in place instead of printing
  serve   --listen ADDR       bind address (default: ` + config.DefaultListenAddr + `)

Exit codes: 0 clean, 1 failures or regressions, 2 usage errors.
`

func usage(out *os.File) {
	fmt.Fprint(out, usageText)
}

// debugf writes tracing to stderr when DEFT_DEBUG is set.
func debugf(format string, args ...any) {
	if os.Getenv(config.DebugEnvVar) == "" {
		return
	}
	fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
}

// Run executes the command line in os.Args and returns the process exit
// code.
func Run() (code int) {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv(config.DebugEnvVar) != "" {
				panic(r) // Re-panic to get stack trace
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			code = 1
		}
	}()

	if os.Getenv(config.TestModeEnvVar) == "1" {
		config.IsTestMode = true
	}

	if len(os.Args) < 2 {
		usage(os.Stderr)
		return 2
	}

	switch os.Args[1] {
	case "check":
		return runCheck(os.Args[2:])
	case "repl":
		return runREPL(os.Args[2:])
	case "fmt":
		return runFmt(os.Args[2:])
	case "serve":
		return runServe(os.Args[2:])
	case "version", "-v", "-version", "--version":
		fmt.Println("deft " + config.Version)
		return 0
	case "help", "-help", "--help":
		usage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		return 2
	}
}

// loadConfig resolves the effective configuration. An explicit path must
// load; otherwise the nearest deft.yaml applies, or the built-in
// defaults when there is none. The returned directory anchors the
// configuration's relative paths.
func loadConfig(explicit string) (*config.Config, string, error) {
	if explicit != "" {
		cfg, err := config.Load(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, filepath.Dir(explicit), nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("resolving working directory: %w", err)
	}
	found, err := config.Find(wd)
	if err != nil {
		return nil, "", err
	}
	if found == "" {
		return config.Default(), wd, nil
	}
	cfg, err := config.Load(found)
	if err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(found), nil
}
