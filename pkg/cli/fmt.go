package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/deft/internal/fixtures"
	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

func runFmt(args []string) int {
	var write bool
	var paths []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-w":
			write = true
		default:
			if strings.HasPrefix(args[i], "-") {
				fmt.Fprintf(os.Stderr, "deft fmt: unknown flag %s\n", args[i])
				return 2
			}
			paths = append(paths, args[i])
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "deft fmt: no fixture paths given")
		return 2
	}
	code := 0
	for _, path := range paths {
		if err := formatFile(path, write); err != nil {
			fmt.Fprintf(os.Stderr, "deft fmt: %s\n", err)
			code = 1
		}
	}
	return code
}

func formatFile(path string, write bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var out []byte
	if filepath.Ext(path) == fixtures.ArchiveExt {
		out, err = formatArchive(data, path)
	} else {
		out, err = formatFixture(data, path)
	}
	if err != nil {
		return err
	}
	if !write {
		_, err = os.Stdout.Write(out)
		return err
	}
	if bytes.Equal(out, data) {
		return nil
	}
	return os.WriteFile(path, out, 0o644)
}

// formatFixture reprints one fixture with every type expression in the
// printer's canonical spelling.
func formatFixture(data []byte, path string) ([]byte, error) {
	f, err := fixtures.Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := canonicalize(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return yaml.Marshal(f)
}

// formatArchive reprints the fixture entries of an archive in place,
// leaving the archive comment and any other files untouched.
func formatArchive(data []byte, path string) ([]byte, error) {
	ar := txtar.Parse(data)
	for i, file := range ar.Files {
		if !lo.Contains(fixtures.FixtureFileExts, filepath.Ext(file.Name)) {
			continue
		}
		out, err := formatFixture(file.Data, path+":"+file.Name)
		if err != nil {
			return nil, err
		}
		ar.Files[i].Data = out
	}
	return txtar.Format(ar), nil
}

// canonicalize rewrites every type expression through the printer.
// Definition bodies print with their declared parameters resolved, case
// expressions with the fixture's definitions in scope.
func canonicalize(f *fixtures.Fixture) error {
	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	if err := fixtures.RegisterDefs(in, defs, f); err != nil {
		return err
	}
	sprint := func(id typesystem.TypeID) string { return in.SprintWith(defs, id) }

	for i := range f.Defs {
		id, ok := defs.Lookup(f.Defs[i].Name)
		if !ok {
			continue
		}
		d, _ := defs.Definition(id)
		f.Defs[i].Params = paramsString(in, sprint, d.TypeParams)
		f.Defs[i].Type = sprint(d.Body)
	}

	lookup := typeexpr.DefLookup(in, defs)
	reprint := func(field *string) error {
		if *field == "" {
			return nil
		}
		id, err := typeexpr.Parse(*field, in, lookup)
		if err != nil {
			return err
		}
		*field = sprint(id)
		return nil
	}
	for i := range f.Cases {
		c := &f.Cases[i]
		for _, field := range []*string{&c.Source, &c.Target, &c.Subject, &c.Input, &c.Expect, &c.Receiver} {
			if err := reprint(field); err != nil {
				return fmt.Errorf("case %s: %w", c.Name, err)
			}
		}
		if c.Guard != nil && c.Guard.Target != "" {
			if err := reprint(&c.Guard.Target); err != nil {
				return fmt.Errorf("case %s: guard: %w", c.Name, err)
			}
		}
	}
	return nil
}

// paramsString renders declared type parameters back into the comma
// separated form definition sites use.
func paramsString(in *typesystem.Interner, sprint func(typesystem.TypeID) string, params []typesystem.TypeParamInfo) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, len(params))
	for i, p := range params {
		s := in.StringOf(p.Name)
		if p.Constraint != typesystem.NoType {
			s += " extends " + sprint(p.Constraint)
		}
		if p.Default != typesystem.NoType {
			s += " = " + sprint(p.Default)
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}
