package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/funvibe/deft/internal/fixtures"
)

func TestParseCheckArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want checkOptions
		bad  bool
	}{
		{name: "empty", args: nil, want: checkOptions{}},
		{name: "paths", args: []string{"a.yaml", "b.txtar"},
			want: checkOptions{paths: []string{"a.yaml", "b.txtar"}}},
		{name: "flags", args: []string{"--config", "deft.yaml", "--baseline", "b.db", "--update-baseline", "fx"},
			want: checkOptions{configPath: "deft.yaml", baselinePath: "b.db", updateBaseline: true, paths: []string{"fx"}}},
		{name: "config_missing_value", args: []string{"--config"}, bad: true},
		{name: "baseline_missing_value", args: []string{"--baseline"}, bad: true},
		{name: "unknown_flag", args: []string{"--frobnicate"}, bad: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCheckArgs(tt.args)
			if tt.bad {
				if err == nil {
					t.Fatalf("expected an error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCheckArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func openCheckBaseline(t *testing.T) *fixtures.Baseline {
	t.Helper()
	b, err := fixtures.OpenBaseline(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestClassify_WithoutBaseline(t *testing.T) {
	results := []fixtures.Result{
		{Fixture: "core", Case: "green", Pass: true},
		{Fixture: "core", Case: "red", Pass: false, Detail: "boom"},
	}
	rep, err := classify(nil, results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.baselined {
		t.Error("no baseline was given")
	}
	if rep.exitCode() != 1 {
		t.Errorf("failing run exit code = %d, want 1", rep.exitCode())
	}

	clean, err := classify(nil, results[:1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clean.exitCode() != 0 {
		t.Errorf("clean run exit code = %d, want 0", clean.exitCode())
	}
}

func TestClassify_PartitionsAgainstBaseline(t *testing.T) {
	b := openCheckBaseline(t)
	accepted := []fixtures.Result{
		{Fixture: "core", Case: "stays_green", Pass: true},
		{Fixture: "core", Case: "goes_red", Pass: true},
		{Fixture: "core", Case: "known_red", Pass: false, Detail: "error 2322: old"},
	}
	if err := b.Update(accepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := []fixtures.Result{
		{Fixture: "core", Case: "stays_green", Pass: true},
		{Fixture: "core", Case: "goes_red", Pass: false, Detail: "flipped"},
		{Fixture: "core", Case: "known_red", Pass: false, Detail: "error 2322: new"},
		{Fixture: "core", Case: "never_seen", Pass: false, Detail: "fresh failure"},
		{Fixture: "core", Case: "new_green", Pass: true},
	}
	rep, err := classify(b, run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.baselined {
		t.Fatal("report ignores the baseline")
	}
	if len(rep.regressed) != 1 || rep.regressed[0].Case != "goes_red" {
		t.Errorf("regressed = %+v", rep.regressed)
	}
	if len(rep.fresh) != 1 || rep.fresh[0].Case != "never_seen" {
		t.Errorf("fresh = %+v", rep.fresh)
	}
	if len(rep.drifted) != 1 || rep.drifted[0].Case != "known_red" {
		t.Errorf("drifted = %+v", rep.drifted)
	}
	if rep.known != 1 {
		t.Errorf("known = %d, want 1", rep.known)
	}
	if rep.exitCode() != 1 {
		t.Errorf("exit code = %d, want 1", rep.exitCode())
	}
}

func TestClassify_AcceptedFailuresStayGreen(t *testing.T) {
	b := openCheckBaseline(t)
	red := []fixtures.Result{{Fixture: "core", Case: "red", Pass: false, Detail: "boom"}}
	if err := b.Update(red); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rep, err := classify(b, red)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.exitCode() != 0 {
		t.Errorf("accepted failure must not fail the run, exit code = %d", rep.exitCode())
	}
	if rep.known != 1 {
		t.Errorf("known = %d, want 1", rep.known)
	}
}

func TestPrintReport_LabelsOutcomes(t *testing.T) {
	run := []fixtures.Result{
		{Fixture: "core", Case: "goes_red", Pass: false, Detail: "flipped"},
		{Fixture: "core", Case: "brand_new", Pass: false, Detail: "fresh"},
		{Fixture: "core", Case: "moves", Pass: false, Detail: "error 2322: new"},
		{Fixture: "core", Case: "fine", Pass: true},
	}
	rep := checkReport{
		summary:   fixtures.Summarize(run),
		baselined: true,
		regressed: run[:1],
		fresh:     run[1:2],
		drifted:   run[2:3],
		known:     1,
	}
	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()
	for _, want := range []string{
		"REGRESS core/goes_red: flipped",
		"FAIL core/brand_new: fresh",
		"drift core/moves: error 2322: new",
		"1/4 cases passed",
		"1 known failures carried by the baseline",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func TestRunCheck_BaselineLifecycle(t *testing.T) {
	dir := t.TempDir()
	fixturePath := filepath.Join(dir, "core.yaml")
	content := `name: core
cases:
  - name: ok
    kind: assignable
    source: '"hi"'
    target: string
  - name: bad
    kind: assignable
    source: string
    target: number
`
	if err := os.WriteFile(fixturePath, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	baseline := filepath.Join(dir, "baseline.db")

	if code := runCheck([]string{fixturePath, "--baseline", baseline}); code != 1 {
		t.Errorf("failing run exit = %d, want 1", code)
	}
	if code := runCheck([]string{fixturePath, "--baseline", baseline, "--update-baseline"}); code != 0 {
		t.Errorf("update exit = %d, want 0", code)
	}
	// The failure is accepted now, so the same run comes back clean.
	if code := runCheck([]string{fixturePath, "--baseline", baseline}); code != 0 {
		t.Errorf("accepted failure exit = %d, want 0", code)
	}
}

func TestRunCheck_UsageErrors(t *testing.T) {
	if code := runCheck([]string{"--baseline"}); code != 2 {
		t.Errorf("missing flag value exit = %d, want 2", code)
	}
}

func TestResolveFrom(t *testing.T) {
	if got := resolveFrom("/base", "fx"); got != filepath.Join("/base", "fx") {
		t.Errorf("resolveFrom = %s", got)
	}
	if got := resolveFrom("/base", "/abs/fx"); got != "/abs/fx" {
		t.Errorf("absolute paths must pass through, got %s", got)
	}
}
