package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/funvibe/deft/internal/fixtures"
)

// checkOptions carries the parsed `deft check` command line.
type checkOptions struct {
	configPath     string
	baselinePath   string
	updateBaseline bool
	paths          []string
}

func parseCheckArgs(args []string) (checkOptions, error) {
	var opts checkOptions
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--config requires a path")
			}
			opts.configPath = args[i+1]
			i++
		case "--baseline":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--baseline requires a path")
			}
			opts.baselinePath = args[i+1]
			i++
		case "--update-baseline":
			opts.updateBaseline = true
		default:
			if strings.HasPrefix(args[i], "-") {
				return opts, fmt.Errorf("unknown flag %s", args[i])
			}
			opts.paths = append(opts.paths, args[i])
		}
	}
	return opts, nil
}

func runCheck(args []string) int {
	opts, err := parseCheckArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 2
	}

	cfg, baseDir, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}

	paths := opts.paths
	if len(paths) == 0 {
		for _, fx := range cfg.Fixtures {
			paths = append(paths, resolveFrom(baseDir, fx))
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "deft check: no fixture paths given and none configured")
		return 2
	}

	fs, err := fixtures.LoadAll(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}
	debugf("loaded %d fixtures from %d paths", len(fs), len(paths))
	results, err := fixtures.NewRunner(cfg.Strictness).RunAll(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}

	baselinePath := opts.baselinePath
	if baselinePath == "" {
		baselinePath = resolveFrom(baseDir, cfg.Baseline)
	}
	debugf("baseline path %s", baselinePath)

	if opts.updateBaseline {
		return acceptBaseline(baselinePath, results)
	}

	// The baseline only participates once someone recorded one.
	var b *fixtures.Baseline
	if _, statErr := os.Stat(baselinePath); statErr == nil {
		b, err = fixtures.OpenBaseline(baselinePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
			return 1
		}
		defer b.Close()
	}

	rep, err := classify(b, results)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}
	printReport(os.Stdout, rep)
	return rep.exitCode()
}

func acceptBaseline(path string, results []fixtures.Result) int {
	b, err := fixtures.OpenBaseline(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}
	defer b.Close()
	if err := b.Update(results); err != nil {
		fmt.Fprintf(os.Stderr, "deft check: %s\n", err)
		return 1
	}
	summary := fixtures.Summarize(results)
	fmt.Println(summary)
	fmt.Printf("baseline updated: %d verdicts recorded in %s\n", summary.Total, path)
	return 0
}

// checkReport classifies a run against the baseline, when one exists.
type checkReport struct {
	summary   fixtures.Summary
	baselined bool
	regressed []fixtures.Result
	drifted   []fixtures.Result
	fresh     []fixtures.Result // failing cases the baseline has never seen
	known     int               // failing cases the baseline already accepts
}

// exitCode follows the baseline contract: accepted failures do not fail
// the run, anything never accepted does.
func (rep checkReport) exitCode() int {
	if !rep.baselined {
		if rep.summary.Ok() {
			return 0
		}
		return 1
	}
	if len(rep.regressed) > 0 || len(rep.fresh) > 0 {
		return 1
	}
	return 0
}

func classify(b *fixtures.Baseline, results []fixtures.Result) (checkReport, error) {
	rep := checkReport{summary: fixtures.Summarize(results)}
	if b == nil {
		return rep, nil
	}
	rep.baselined = true
	var err error
	rep.regressed, rep.drifted, err = b.Diff(results)
	if err != nil {
		return rep, err
	}
	fresh, err := b.Fresh(results)
	if err != nil {
		return rep, err
	}
	rep.fresh = lo.Filter(fresh, func(r fixtures.Result, _ int) bool { return !r.Pass })
	rep.known = len(rep.summary.Failed) - len(rep.regressed) - len(rep.fresh)
	return rep, nil
}

func printReport(w io.Writer, rep checkReport) {
	if !rep.baselined {
		for _, r := range rep.summary.Failed {
			fmt.Fprintf(w, "%s %s/%s: %s\n", paintRed("FAIL"), r.Fixture, r.Case, r.Detail)
		}
		fmt.Fprintln(w, rep.summary)
		return
	}

	for _, r := range rep.regressed {
		fmt.Fprintf(w, "%s %s/%s: %s\n", paintRed("REGRESS"), r.Fixture, r.Case, r.Detail)
	}
	for _, r := range rep.fresh {
		fmt.Fprintf(w, "%s %s/%s: %s\n", paintRed("FAIL"), r.Fixture, r.Case, r.Detail)
	}
	for _, r := range rep.drifted {
		fmt.Fprintf(w, "%s %s/%s: %s\n", paintDim("drift"), r.Fixture, r.Case, r.Detail)
	}
	fmt.Fprintln(w, rep.summary)
	if rep.known > 0 {
		fmt.Fprintf(w, "%d known failures carried by the baseline\n", rep.known)
	}
}

// resolveFrom anchors a possibly-relative configured path at the
// directory its configuration file lives in.
func resolveFrom(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
