package targets

import (
	"testing"

	"github.com/funvibe/deft/internal/typesystem"
	"github.com/funvibe/deft/tests/fuzz/generators"
)

// FuzzCompat checks the assignability lattice edges that hold for every
// type: reflexivity, the top and bottom types, the error type absorbing
// both directions, and members reaching their unions.
func FuzzCompat(f *testing.F) {
	f.Add([]byte{0x0f, 0xf0, 0x55})
	f.Add([]byte("compat"))

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 1000 {
			return
		}
		in, _, solver := newTypeSystem()
		b := generators.NewBuilder(data, in)
		s := b.BuildType()
		target := b.BuildType()

		if !solver.IsAssignable(s, s) {
			t.Fatalf("%s is not assignable to itself", in.Sprint(s))
		}
		if !solver.IsAssignable(typesystem.AnyType, target) {
			t.Fatalf("any is not assignable to %s", in.Sprint(target))
		}
		if !solver.IsAssignable(s, typesystem.AnyType) {
			t.Fatalf("%s is not assignable to any", in.Sprint(s))
		}
		if !solver.IsAssignable(s, typesystem.UnknownType) {
			t.Fatalf("%s is not assignable to unknown", in.Sprint(s))
		}
		if !solver.IsAssignable(typesystem.NeverType, target) {
			t.Fatalf("never is not assignable to %s", in.Sprint(target))
		}
		if !solver.IsAssignable(typesystem.ErrorType, target) || !solver.IsAssignable(s, typesystem.ErrorType) {
			t.Fatal("the error type must absorb checks in both directions")
		}
		if union := in.Union(s, target); !solver.IsAssignable(s, union) {
			t.Fatalf("%s is not assignable to %s", in.Sprint(s), in.Sprint(union))
		}
	})
}
