package fixtures

import (
	"path/filepath"
	"testing"
)

func openTestBaseline(t *testing.T) *Baseline {
	t.Helper()
	b, err := OpenBaseline(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBaseline_UpdateReplaces(t *testing.T) {
	b := openTestBaseline(t)
	n, err := b.Len()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh baseline holds %d rows", n)
	}

	results := []Result{
		{Fixture: "core", Case: "a", Kind: "assignable", Pass: true},
		{Fixture: "core", Case: "b", Kind: "not-assignable", Pass: true, Detail: "error 2322: nope"},
	}
	if err := b.Update(results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ = b.Len(); n != 2 {
		t.Errorf("baseline holds %d rows, want 2", n)
	}

	if err := b.Update(results[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ = b.Len(); n != 1 {
		t.Errorf("update must replace, not append; holds %d rows", n)
	}
}

func TestBaseline_Diff(t *testing.T) {
	b := openTestBaseline(t)
	accepted := []Result{
		{Fixture: "core", Case: "stays_green", Pass: true, Detail: "string"},
		{Fixture: "core", Case: "goes_red", Pass: true, Detail: "number"},
		{Fixture: "core", Case: "message_moves", Pass: false, Detail: "error 2322: old wording"},
	}
	if err := b.Update(accepted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next := []Result{
		{Fixture: "core", Case: "stays_green", Pass: true, Detail: "string"},
		{Fixture: "core", Case: "goes_red", Pass: false, Detail: "narrowed to never, want number"},
		{Fixture: "core", Case: "message_moves", Pass: false, Detail: "error 2322: new wording"},
		{Fixture: "core", Case: "brand_new", Pass: false, Detail: "fresh failure"},
	}
	regressed, drifted, err := b.Diff(next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regressed) != 1 || regressed[0].Case != "goes_red" {
		t.Errorf("regressed = %+v", regressed)
	}
	if len(drifted) != 1 || drifted[0].Case != "message_moves" {
		t.Errorf("drifted = %+v", drifted)
	}
}

func TestBaseline_Fresh(t *testing.T) {
	b := openTestBaseline(t)
	if err := b.Update([]Result{{Fixture: "core", Case: "known", Pass: true}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fresh, err := b.Fresh([]Result{
		{Fixture: "core", Case: "known", Pass: true},
		{Fixture: "core", Case: "added", Pass: false, Detail: "new failure"},
		{Fixture: "other", Case: "known", Pass: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("fresh = %+v, want 2 entries", fresh)
	}
	if fresh[0].Case != "added" || fresh[1].Fixture != "other" {
		t.Errorf("fresh = %+v", fresh)
	}
}

func TestBaseline_DiffIgnoresFixedCases(t *testing.T) {
	b := openTestBaseline(t)
	if err := b.Update([]Result{{Fixture: "core", Case: "was_red", Pass: false, Detail: "old failure"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	regressed, drifted, err := b.Diff([]Result{{Fixture: "core", Case: "was_red", Pass: true, Detail: ""}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regressed) != 0 || len(drifted) != 0 {
		t.Errorf("a fixed case is not a regression: %+v %+v", regressed, drifted)
	}
}

func TestBaseline_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.db")
	b, err := OpenBaseline(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Update([]Result{{Fixture: "core", Case: "kept", Pass: true}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err = OpenBaseline(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer b.Close()
	n, err := b.Len()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("reopened baseline holds %d rows, want 1", n)
	}
}
