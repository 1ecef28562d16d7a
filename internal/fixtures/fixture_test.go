package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

func TestParse_Full(t *testing.T) {
	yaml := `
name: core
config:
  strict_null_checks: true
  strict_function_types: true
defs:
  - name: Box
    params: T
    type: '{ value: T }'
  - name: Shape
    kind: interface
    type: '{ kind: string }'
cases:
  - name: widen
    kind: assignable
    source: "42"
    target: number
  - name: reject
    kind: not-assignable
    source: string
    target: number
    code: 2322
    message: "Type 'string' is not assignable to type 'number'."
  - name: pick
    kind: narrow
    subject: string | number
    guard:
      kind: typeof
      tag: string
    expect: string
  - name: unbox
    kind: eval
    input: Box<string>
    expect: '{ value: string }'
  - name: lookup
    kind: property
    receiver: Shape
    property: kind
    expect: string
`
	f, err := Parse([]byte(yaml), "core.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name != "core" {
		t.Errorf("name = %q, want core", f.Name)
	}
	if f.Config == nil || !f.Config.StrictNullChecks || !f.Config.StrictFunctionTypes {
		t.Errorf("config override not picked up: %+v", f.Config)
	}
	if len(f.Defs) != 2 {
		t.Fatalf("expected 2 defs, got %d", len(f.Defs))
	}
	if f.Defs[0].Params != "T" || f.Defs[1].Kind != "interface" {
		t.Errorf("defs decoded wrong: %+v", f.Defs)
	}
	if len(f.Cases) != 5 {
		t.Fatalf("expected 5 cases, got %d", len(f.Cases))
	}
	if f.Cases[1].Code != 2322 || f.Cases[1].Message == "" {
		t.Errorf("expectation fields not decoded: %+v", f.Cases[1])
	}
	if f.Cases[2].Guard == nil || f.Cases[2].Guard.Kind != "typeof" || f.Cases[2].Guard.Tag != "string" {
		t.Errorf("guard not decoded: %+v", f.Cases[2].Guard)
	}
	if f.Cases[4].Receiver != "Shape" || f.Cases[4].Property != "kind" {
		t.Errorf("property case not decoded: %+v", f.Cases[4])
	}
}

func TestParse_NameDefaultsFromPath(t *testing.T) {
	yaml := `
cases:
  - name: only
    kind: assignable
    source: string
    target: string
`
	f, err := Parse([]byte(yaml), filepath.Join("conformance", "unions.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name != "unions" {
		t.Errorf("name = %q, want unions", f.Name)
	}
}

func TestParse_UnknownKeyIsError(t *testing.T) {
	yaml := `
casez:
  - name: a
`
	if _, err := Parse([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
}

func TestParse_UnknownCaseKindIsError(t *testing.T) {
	yaml := `
cases:
  - name: a
    kind: assignablee
    source: string
    target: string
`
	_, err := Parse([]byte(yaml), "test.yaml")
	if err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
	if !strings.Contains(err.Error(), "cases[0]") {
		t.Errorf("error %q should locate the case", err)
	}
}

func TestParse_DuplicateDefIsError(t *testing.T) {
	yaml := `
defs:
  - name: A
    type: string
  - name: A
    type: number
cases:
  - name: a
    kind: assignable
    source: A
    target: string
`
	if _, err := Parse([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected an error for a duplicate definition")
	}
}

func TestParse_NarrowNeedsGuard(t *testing.T) {
	yaml := `
cases:
  - name: a
    kind: narrow
    subject: string | number
    expect: string
`
	if _, err := Parse([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected an error for a narrow case without a guard")
	}
}

func TestParse_PropertyNeedsExpectation(t *testing.T) {
	yaml := `
cases:
  - name: a
    kind: property
    receiver: '{ kind: string }'
    property: kind
`
	if _, err := Parse([]byte(yaml), "test.yaml"); err == nil {
		t.Fatal("expected an error for a property case with no expectation")
	}
}

func TestLoadArchive_SplitsFixtures(t *testing.T) {
	archive := `Union conformance pack.
-- unions.yaml --
cases:
  - name: widen
    kind: assignable
    source: "42"
    target: number
-- guards.yaml --
name: narrowing
cases:
  - name: pick
    kind: narrow
    subject: string | number
    guard:
      kind: typeof
      tag: string
    expect: string
-- README.md --
Not a fixture.
`
	path := filepath.Join(t.TempDir(), "pack.txtar")
	if err := os.WriteFile(path, []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}
	fs, err := LoadArchive(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fs))
	}
	if fs[0].Name != "unions" || fs[1].Name != "narrowing" {
		t.Errorf("names = %q, %q", fs[0].Name, fs[1].Name)
	}
}

func TestLoadArchive_NamesEntryInErrors(t *testing.T) {
	archive := `
-- broken.yaml --
cases:
  - name: a
    kind: nonsense
    source: string
    target: string
`
	path := filepath.Join(t.TempDir(), "pack.txtar")
	if err := os.WriteFile(path, []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadArchive(path)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("error %q should name the archive entry", err)
	}
}

func TestLoadArchive_EmptyIsError(t *testing.T) {
	archive := `
-- README.md --
Nothing here.
`
	path := filepath.Join(t.TempDir(), "pack.txtar")
	if err := os.WriteFile(path, []byte(archive), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadArchive(path); err == nil {
		t.Fatal("expected an error for an archive with no fixtures")
	}
}

func TestDiscover_FindsFixturesAndArchives(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"a.yaml":      "",
		"note.txt":    "ignored",
		"sub/b.txtar": "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := Discover(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %v", paths)
	}
	if filepath.Base(paths[0]) != "a.yaml" || filepath.Base(paths[1]) != "b.txtar" {
		t.Errorf("discovered %v", paths)
	}
}

func TestLoadAll_MixedPaths(t *testing.T) {
	minimal := `
cases:
  - name: only
    kind: assignable
    source: string
    target: string
`
	root := t.TempDir()
	dir := filepath.Join(root, "conformance")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inside.yaml"), []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(root, "single.yaml")
	if err := os.WriteFile(single, []byte(minimal), 0o644); err != nil {
		t.Fatal(err)
	}

	fs, err := LoadAll([]string{dir, single})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fs) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(fs))
	}
	if fs[0].Name != "inside" || fs[1].Name != "single" {
		t.Errorf("names = %q, %q", fs[0].Name, fs[1].Name)
	}
}

func TestGuardSpec_CompilesToSolverGuard(t *testing.T) {
	in := typesystem.NewInterner()
	parse := func(src string) (typesystem.TypeID, error) {
		return typeexpr.Parse(src, in, typeexpr.DefLookup(in, typesystem.NewDefStore(in)))
	}

	g, err := (&GuardSpec{Kind: "typeof", Tag: "string"}).Guard(parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Kind != typesystem.GuardTypeof || g.Tag != "string" || !g.Assume {
		t.Errorf("guard = %+v", g)
	}

	no := false
	g, err = (&GuardSpec{Kind: "equals", Target: `"circle"`, Assume: &no}).Guard(parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Kind != typesystem.GuardEquals || g.Assume {
		t.Errorf("guard = %+v", g)
	}
	if g.Target != in.LiteralString("circle") {
		t.Errorf("target = %v, want the \"circle\" literal", g.Target)
	}

	g, err = (&GuardSpec{Kind: "equals", Target: "null", Loose: true}).Guard(parse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Loose {
		t.Errorf("guard = %+v, want loose", g)
	}

	if _, err := (&GuardSpec{Kind: "sometimes"}).Guard(parse); err == nil {
		t.Error("expected an error for an unknown guard kind")
	}
	if _, err := (&GuardSpec{Kind: "predicate", Target: "{ broken"}).Guard(parse); err == nil {
		t.Error("expected an error for an unparseable target")
	}
}
