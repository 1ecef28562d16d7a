package cli

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

var (
	colorOnce sync.Once
	colorVal  bool
)

// colorEnabled reports whether stdout wants ANSI color.
func colorEnabled() bool {
	colorOnce.Do(func() {
		// NO_COLOR convention: https://no-color.org/
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return
		}
		// Not a terminal
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return
		}
		colorVal = os.Getenv("TERM") != "dumb"
	})
	return colorVal
}

func ansiWrap(code, s string) string {
	if !colorEnabled() {
		return s
	}
	return code + s + "\x1b[0m"
}

func paintRed(s string) string   { return ansiWrap("\x1b[31m", s) }
func paintGreen(s string) string { return ansiWrap("\x1b[32m", s) }
func paintDim(s string) string   { return ansiWrap("\x1b[2m", s) }
