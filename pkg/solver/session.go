// Package solver is the embedding surface. A Session owns one interner
// epoch together with its definitions and strictness configuration, and
// exposes parsing, assignability, evaluation, narrowing and rendering to
// hosts. Handles are only meaningful inside the epoch that produced
// them; Swap discards the epoch wholesale, which is how long-lived hosts
// keep the append-only interner bounded.
package solver

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/deft/internal/diagnostics"
	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

// Wiring connects an epoch to its definition source: the resolver the
// evaluator calls and the name lookup the parser uses. Both must be
// built over the epoch's own interner and store.
type Wiring struct {
	Resolver typesystem.Resolver
	Lookup   typeexpr.Lookup
}

// WiringFactory builds the wiring for a fresh epoch. Swap calls it again
// for the replacement epoch.
type WiringFactory func(in *typesystem.Interner, defs *typesystem.DefStore) Wiring

// Session is one solver epoch. Not safe for concurrent use.
type Session struct {
	config typesystem.CheckConfig
	wire   WiringFactory

	epoch  uuid.UUID
	in     *typesystem.Interner
	defs   *typesystem.DefStore
	lookup typeexpr.Lookup
	solver *typesystem.Solver
	fmtr   *diagnostics.Formatter
}

// New opens a session whose definitions live in its own local store.
func New(config typesystem.CheckConfig) *Session {
	return NewWith(config, func(in *typesystem.Interner, defs *typesystem.DefStore) Wiring {
		return Wiring{Resolver: defs, Lookup: typeexpr.DefLookup(in, defs)}
	})
}

// NewWith opens a session wired to an external definition source, such
// as a remote resolver registry.
func NewWith(config typesystem.CheckConfig, wire WiringFactory) *Session {
	s := &Session{config: config, wire: wire}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.epoch = uuid.New()
	s.in = typesystem.NewInterner()
	s.defs = typesystem.NewDefStore(s.in)
	w := s.wire(s.in, s.defs)
	s.lookup = w.Lookup
	s.solver = typesystem.NewSolver(s.in, w.Resolver, s.config)
	s.fmtr = diagnostics.NewFormatter(s.in, s.defs)
}

// Epoch identifies the current interner generation.
func (s *Session) Epoch() uuid.UUID { return s.epoch }

// Config returns the strictness the session checks under.
func (s *Session) Config() typesystem.CheckConfig { return s.config }

// Interner exposes the epoch's interner for constructing types directly.
func (s *Session) Interner() *typesystem.Interner { return s.in }

// Defs exposes the epoch's definition store.
func (s *Session) Defs() *typesystem.DefStore { return s.defs }

// Solver exposes the underlying query facade.
func (s *Session) Solver() *typesystem.Solver { return s.solver }

// Formatter renders diagnostics with this epoch's definition names.
func (s *Session) Formatter() *diagnostics.Formatter { return s.fmtr }

// Swap discards the entire epoch — types, strings, definitions — and
// starts a fresh one. Every handle handed out before the swap is dead.
// Returns the new epoch id.
func (s *Session) Swap() uuid.UUID {
	s.reset()
	return s.epoch
}

// Checkpoint is a point-in-time size report. Hosts use it to drive
// their swap policy.
type Checkpoint struct {
	Epoch   uuid.UUID
	Types   int
	Strings int
	Defs    int
}

// Checkpoint reports the epoch's current size.
func (s *Session) Checkpoint() Checkpoint {
	return Checkpoint{
		Epoch:   s.epoch,
		Types:   s.in.Count(),
		Strings: s.in.StringCount(),
		Defs:    s.defs.Len(),
	}
}

func (c Checkpoint) String() string {
	return fmt.Sprintf("epoch %s: %d types, %d strings, %d defs", c.Epoch, c.Types, c.Strings, c.Defs)
}

// Parse compiles a type expression into the epoch.
func (s *Session) Parse(src string) (typesystem.TypeID, error) {
	return typeexpr.Parse(src, s.in, s.lookup)
}

// Define registers a named definition from surface syntax. params is
// the comma-separated type parameter list, empty for monomorphic types.
// Redefining an existing name replaces its parameters and body, which
// is what interactive hosts want.
func (s *Session) Define(name, params, body string) error {
	id, exists := s.defs.Lookup(name)
	if !exists {
		id = s.defs.AddTypeAlias(name, nil, typesystem.NoType)
	}
	var ps []typesystem.TypeParamInfo
	if params != "" {
		var err error
		ps, err = typeexpr.ParseTypeParams(params, s.in, s.lookup)
		if err != nil {
			return fmt.Errorf("type parameters: %w", err)
		}
	}
	compiled, err := typeexpr.Parse(body, s.in, typeexpr.ParamLookup(s.in, ps, s.lookup))
	if err != nil {
		return err
	}
	s.defs.SetParams(id, ps)
	s.defs.SetBody(id, compiled)
	return nil
}

// IsAssignable reports whether source is assignable to target.
func (s *Session) IsAssignable(source, target typesystem.TypeID) bool {
	return s.solver.IsAssignable(source, target)
}

// Explain returns the failure chain for an unassignable pair, nil
// otherwise.
func (s *Session) Explain(source, target typesystem.TypeID) *typesystem.Failure {
	return s.solver.Explain(source, target)
}

// Evaluate forces a deferred type's outer shell.
func (s *Session) Evaluate(id typesystem.TypeID) typesystem.TypeID {
	return s.solver.Evaluate(id)
}

// Narrow applies a guard.
func (s *Session) Narrow(t typesystem.TypeID, g typesystem.Guard) typesystem.TypeID {
	return s.solver.Narrow(t, g)
}

// PropertyOf looks up a named property on a type.
func (s *Session) PropertyOf(t typesystem.TypeID, name string) typesystem.PropertyResult {
	return s.solver.PropertyOf(t, name)
}

// Sprint renders a type with the epoch's definition names.
func (s *Session) Sprint(id typesystem.TypeID) string {
	return s.in.SprintWith(s.defs, id)
}

// Fingerprint computes the stable structural fingerprint of a type,
// which survives epoch swaps and so can compare types across them.
func (s *Session) Fingerprint(id typesystem.TypeID) (uint64, error) {
	return typesystem.NewFingerprinter(s.in, s.defs).Fingerprint(id)
}
