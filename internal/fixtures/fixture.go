// Package fixtures loads and runs conformance fixtures: YAML documents
// declaring named type definitions plus cases that exercise the solver
// (assignability, narrowing, evaluation, property access). Fixtures load
// from plain files or from txtar archives bundling many fixtures, and a
// sqlite baseline store keeps the last accepted verdicts for regression
// diffing.
package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/deft/internal/config"
	"github.com/funvibe/deft/internal/typesystem"
)

// FixtureFileExts are the extensions recognized as single fixtures.
var FixtureFileExts = []string{".yaml", ".yml"}

// ArchiveExt is the extension recognized as a fixture archive.
const ArchiveExt = ".txtar"

// Fixture is one conformance document: definitions plus cases, checked
// under an optional strictness override.
type Fixture struct {
	Name   string             `yaml:"name"`
	Config *config.Strictness `yaml:"config,omitempty"`
	Defs   []Def              `yaml:"defs,omitempty"`
	Cases  []Case             `yaml:"cases"`
}

// Def declares one named type definition available to every case in the
// fixture. Params is a comma-separated type parameter list.
type Def struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind,omitempty"` // alias (default), interface, class
	Params string `yaml:"params,omitempty"`
	Type   string `yaml:"type"`
}

// Case is one check. Kind selects which fields apply:
//
//	assignable, not-assignable: source, target, and for the negative
//	  kind the optional expected code and message
//	narrow: subject, guard, expect
//	eval: input, expect
//	property: receiver, property, then expect or missing
type Case struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	Source  string `yaml:"source,omitempty"`
	Target  string `yaml:"target,omitempty"`
	Code    int    `yaml:"code,omitempty"`
	Message string `yaml:"message,omitempty"`

	Subject string     `yaml:"subject,omitempty"`
	Guard   *GuardSpec `yaml:"guard,omitempty"`

	Input  string `yaml:"input,omitempty"`
	Expect string `yaml:"expect,omitempty"`

	Receiver string `yaml:"receiver,omitempty"`
	Property string `yaml:"property,omitempty"`
	Missing  bool   `yaml:"missing,omitempty"`
}

// GuardSpec is the serialized form of a narrowing guard.
type GuardSpec struct {
	Kind     string `yaml:"kind"` // typeof, instanceof, in, truthy, equals, discriminant, predicate, every
	Tag      string `yaml:"tag,omitempty"`
	Property string `yaml:"property,omitempty"`
	Target   string `yaml:"target,omitempty"`
	Assume   *bool  `yaml:"assume,omitempty"` // nil means true
	Loose    bool   `yaml:"loose,omitempty"`  // equals only: == instead of ===
}

// CaseKinds enumerates the accepted case kinds.
var CaseKinds = []string{"assignable", "not-assignable", "narrow", "eval", "property"}

// GuardKinds enumerates the accepted guard kinds.
var GuardKinds = []string{"typeof", "instanceof", "in", "truthy", "equals", "discriminant", "predicate", "every"}

// Guard compiles the serialized guard into a solver guard. Target
// expressions go through parse, so the caller controls which names are
// in scope.
func (gs *GuardSpec) Guard(parse func(string) (typesystem.TypeID, error)) (typesystem.Guard, error) {
	g := typesystem.Guard{Tag: gs.Tag, Property: gs.Property, Assume: true, Loose: gs.Loose}
	if gs.Assume != nil {
		g.Assume = *gs.Assume
	}
	switch gs.Kind {
	case "typeof":
		g.Kind = typesystem.GuardTypeof
	case "instanceof":
		g.Kind = typesystem.GuardInstanceof
	case "in":
		g.Kind = typesystem.GuardIn
	case "truthy":
		g.Kind = typesystem.GuardTruthiness
	case "equals":
		g.Kind = typesystem.GuardEquals
	case "discriminant":
		g.Kind = typesystem.GuardDiscriminant
	case "predicate":
		g.Kind = typesystem.GuardPredicate
	case "every":
		g.Kind = typesystem.GuardEveryElement
	default:
		return g, fmt.Errorf("unknown guard kind %q", gs.Kind)
	}
	if gs.Target != "" {
		target, err := parse(gs.Target)
		if err != nil {
			return g, fmt.Errorf("guard target: %w", err)
		}
		g.Target = target
	}
	return g, nil
}

// Load reads and validates a single fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes fixture data. The path parameter is only for error
// messages. Unknown keys are errors so typos in case fields cannot
// silently pass.
func Parse(data []byte, path string) (*Fixture, error) {
	f := &Fixture{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: failed to parse fixture: %w", path, err)
	}
	if f.Name == "" {
		f.Name = defaultName(path)
	}
	if err := f.validate(path); err != nil {
		return nil, err
	}
	return f, nil
}

// defaultName derives a fixture name from its path. Archive entries
// arrive as the archive path joined with ':', and the name comes from
// the entry alone.
func defaultName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndex(base, ":"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (f *Fixture) validate(path string) error {
	seen := map[string]bool{}
	for i, d := range f.Defs {
		if d.Name == "" {
			return fmt.Errorf("%s: defs[%d]: name must not be empty", path, i)
		}
		if seen[d.Name] {
			return fmt.Errorf("%s: defs[%d]: duplicate definition %q", path, i, d.Name)
		}
		seen[d.Name] = true
		switch d.Kind {
		case "", "alias", "interface", "class":
		default:
			return fmt.Errorf("%s: defs[%d]: unknown kind %q", path, i, d.Kind)
		}
		if d.Type == "" {
			return fmt.Errorf("%s: defs[%d]: type must not be empty", path, i)
		}
	}
	for i, c := range f.Cases {
		at := func(format string, args ...any) error {
			return fmt.Errorf("%s: cases[%d]: %s", path, i, fmt.Sprintf(format, args...))
		}
		if c.Name == "" {
			return at("name must not be empty")
		}
		if !lo.Contains(CaseKinds, c.Kind) {
			return at("unknown kind %q", c.Kind)
		}
		switch c.Kind {
		case "assignable", "not-assignable":
			if c.Source == "" || c.Target == "" {
				return at("source and target must not be empty")
			}
		case "narrow":
			if c.Subject == "" {
				return at("subject must not be empty")
			}
			if c.Guard == nil {
				return at("guard must be present")
			}
			if !lo.Contains(GuardKinds, c.Guard.Kind) {
				return at("unknown guard kind %q", c.Guard.Kind)
			}
			if c.Expect == "" {
				return at("expect must not be empty")
			}
		case "eval":
			if c.Input == "" || c.Expect == "" {
				return at("input and expect must not be empty")
			}
		case "property":
			if c.Receiver == "" || c.Property == "" {
				return at("receiver and property must not be empty")
			}
			if c.Expect == "" && !c.Missing {
				return at("expect or missing must be set")
			}
		}
	}
	return nil
}

// LoadArchive reads a txtar archive and parses every fixture file inside
// it. Non-fixture files in the archive are ignored.
func LoadArchive(path string) ([]*Fixture, error) {
	ar, err := txtar.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return parseArchive(ar, path)
}

func parseArchive(ar *txtar.Archive, path string) ([]*Fixture, error) {
	var out []*Fixture
	for _, file := range ar.Files {
		if !lo.Contains(FixtureFileExts, filepath.Ext(file.Name)) {
			continue
		}
		f, err := Parse(file.Data, path+":"+file.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: archive contains no fixtures", path)
	}
	return out, nil
}

// LoadPath loads fixtures from a single file, dispatching on extension.
func LoadPath(path string) ([]*Fixture, error) {
	if filepath.Ext(path) == ArchiveExt {
		return LoadArchive(path)
	}
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return []*Fixture{f}, nil
}

// Discover walks a directory tree and returns every fixture and archive
// path under it, sorted by walk order.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if lo.Contains(FixtureFileExts, ext) || ext == ArchiveExt {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return paths, nil
}

// LoadAll loads every fixture reachable from a list of file or directory
// paths.
func LoadAll(paths []string) ([]*Fixture, error) {
	var out []*Fixture
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		files := []string{path}
		if info.IsDir() {
			files, err = Discover(path)
			if err != nil {
				return nil, err
			}
		}
		for _, file := range files {
			fs, err := LoadPath(file)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}
