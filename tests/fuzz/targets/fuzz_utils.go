package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/deft/internal/typesystem"
)

// newTypeSystem wires a fresh interner, definition store, and solver for
// one fuzz iteration. Fuzz workers run iterations concurrently, so state
// is never shared between them.
func newTypeSystem() (*typesystem.Interner, *typesystem.DefStore, *typesystem.Solver) {
	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	return in, defs, typesystem.NewSolver(in, defs, typesystem.DefaultCheckConfig())
}

// LoadCorpus adds every .type file under the given directories to the
// fuzz corpus.
func LoadCorpus(f *testing.F, dirs ...string) {
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && strings.HasSuffix(path, ".type") {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				f.Add(data)
			}
			return nil
		})
		if err != nil {
			f.Logf("failed to load corpus from %s: %v", dir, err)
		}
	}
}
