package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

func startServer(t *testing.T, source Source) string {
	t.Helper()
	srv, err := NewServer(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func dialTest(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	addr := startServer(t, MapSource{
		"UserId": {Type: "number"},
		"Box":    {Params: "T", Type: "{ value: T }"},
	})
	c := dialTest(t, addr)

	d, found, err := c.Resolve(context.Background(), "UserId")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || d.Type != "number" {
		t.Errorf("resolved %+v, found=%v", d, found)
	}

	d, found, err = c.Resolve(context.Background(), "Box")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found || d.Params != "T" || d.Type != "{ value: T }" {
		t.Errorf("resolved %+v, found=%v", d, found)
	}

	if _, found, err = c.Resolve(context.Background(), "Nope"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("unknown name must not resolve")
	}
}

func newRegistrySolver(t *testing.T, addr string) (*typesystem.Interner, *typesystem.DefStore, *Registry, *typesystem.Solver) {
	t.Helper()
	c := dialTest(t, addr)
	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	reg := NewRegistry(in, defs, c)
	return in, defs, reg, typesystem.NewSolver(in, reg, typesystem.DefaultCheckConfig())
}

func TestRegistry_ResolvesThroughService(t *testing.T) {
	addr := startServer(t, MapSource{
		"UserId":  {Type: "number"},
		"Account": {Type: "{ id: UserId; name: string }"},
	})
	in, defs, reg, s := newRegistrySolver(t, addr)

	account, err := typeexpr.Parse("Account", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := s.PropertyOf(account, "id")
	if id.Access != typesystem.PropertyFound {
		t.Fatalf("id access = %d", id.Access)
	}
	if got := s.Evaluate(id.Type); got != typesystem.NumberType {
		t.Errorf("id resolved to %s", s.SprintWith(defs, got))
	}
}

func TestRegistry_GenericApplication(t *testing.T) {
	addr := startServer(t, MapSource{"Box": {Params: "T", Type: "{ value: T }"}})
	in, _, reg, s := newRegistrySolver(t, addr)

	boxed, err := typeexpr.Parse("Box<string>", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Evaluate(boxed)
	want := in.Object([]typesystem.Property{{Name: in.InternString("value"), Type: typesystem.StringType}})
	if got != want {
		t.Errorf("evaluated to %s, want %s", in.Sprint(got), in.Sprint(want))
	}
}

func TestRegistry_RecursiveDefinition(t *testing.T) {
	addr := startServer(t, MapSource{
		"Tree": {Type: "{ value: number; kids: Tree[] }"},
	})
	in, _, reg, s := newRegistrySolver(t, addr)

	tree, err := typeexpr.Parse("Tree", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kids := s.PropertyOf(tree, "kids")
	if kids.Access != typesystem.PropertyFound {
		t.Fatalf("kids access = %d", kids.Access)
	}
	elem, ok := in.ArrayElem(s.Evaluate(kids.Type))
	if !ok {
		t.Fatalf("kids is not an array")
	}
	if s.Evaluate(elem) == typesystem.ErrorType {
		t.Error("self-reference must resolve, not fail")
	}
}

func TestRegistry_MissSettlesOnError(t *testing.T) {
	addr := startServer(t, MapSource{})
	in, defs, reg, s := newRegistrySolver(t, addr)

	ghost, err := typeexpr.Parse("Ghost", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Evaluate(ghost); got != typesystem.ErrorType {
		t.Errorf("unresolved name evaluated to %s, want the error type", s.Sprint(got))
	}
	// The second force must serve the memo, not call again.
	if got := s.Evaluate(ghost); got != typesystem.ErrorType {
		t.Errorf("memoized miss evaluated to %s", s.Sprint(got))
	}
	id, ok := defs.Lookup("Ghost")
	if !ok {
		t.Fatal("placeholder was not registered")
	}
	var unknown *UnknownDefError
	if err := reg.Err(id); !errors.As(err, &unknown) {
		t.Errorf("miss recorded %v, want an UnknownDefError", err)
	} else if unknown.Def != id || unknown.Name != "Ghost" {
		t.Errorf("unknown = %+v", unknown)
	}
}

func TestRegistry_TransportFailureSettlesOnError(t *testing.T) {
	c, err := Dial("127.0.0.1:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	c.SetTimeout(2 * time.Second)

	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	reg := NewRegistry(in, defs, c)
	s := typesystem.NewSolver(in, reg, typesystem.DefaultCheckConfig())

	ghost, err := typeexpr.Parse("Ghost", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Evaluate(ghost); got != typesystem.ErrorType {
		t.Errorf("unreachable resolver evaluated to %s, want the error type", s.Sprint(got))
	}
	id, _ := defs.Lookup("Ghost")
	if reg.Err(id) == nil {
		t.Error("transport failure must record its reason")
	}
}

func TestRegistry_UncompilableBodyFails(t *testing.T) {
	addr := startServer(t, MapSource{"Bad": {Type: "{ value: "}})
	in, defs, reg, s := newRegistrySolver(t, addr)

	bad, err := typeexpr.Parse("Bad", in, reg.Lookup)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Evaluate(bad); got != typesystem.ErrorType {
		t.Errorf("uncompilable body evaluated to %s, want the error type", s.Sprint(got))
	}
	id, _ := defs.Lookup("Bad")
	if reg.Err(id) == nil {
		t.Error("compile failure must record its reason")
	}
}
