package fixtures

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/funvibe/deft/internal/config"
	"github.com/funvibe/deft/internal/diagnostics"
	"github.com/funvibe/deft/internal/typeexpr"
	"github.com/funvibe/deft/internal/typesystem"
)

// Result is one executed case. Detail carries the rendered outcome: the
// diagnostic for an expected failure, the narrowed or evaluated type for
// the other kinds, or the reason a case did not pass. The baseline
// records it, so message drift shows up as a diff even when the verdict
// holds.
type Result struct {
	Fixture string
	Case    string
	Kind    string
	Pass    bool
	Detail  string
}

// Verdict is the stable string the baseline stores.
func (r Result) Verdict() string {
	if r.Pass {
		return "pass"
	}
	return "fail"
}

// Runner executes fixtures. Each fixture gets a fresh interner, store and
// solver so definitions and strictness overrides never leak across files.
type Runner struct {
	defaults config.Strictness
}

// NewRunner builds a runner checking under the given strictness unless a
// fixture overrides it.
func NewRunner(defaults config.Strictness) *Runner {
	return &Runner{defaults: defaults}
}

// Run executes every case of one fixture. An error means the fixture
// itself is unusable (a definition failed to compile); individual case
// problems become failing results instead.
func (r *Runner) Run(f *Fixture) ([]Result, error) {
	in := typesystem.NewInterner()
	defs := typesystem.NewDefStore(in)
	if err := RegisterDefs(in, defs, f); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}

	strict := r.defaults
	if f.Config != nil {
		strict = *f.Config
	}
	env := &caseEnv{
		in:     in,
		defs:   defs,
		solver: typesystem.NewSolver(in, defs, strict.CheckConfig()),
		fmtr:   diagnostics.NewFormatter(in, defs),
		lookup: typeexpr.DefLookup(in, defs),
	}

	results := make([]Result, 0, len(f.Cases))
	for _, c := range f.Cases {
		pass, detail := env.run(c)
		results = append(results, Result{
			Fixture: f.Name,
			Case:    c.Name,
			Kind:    c.Kind,
			Pass:    pass,
			Detail:  detail,
		})
	}
	return results, nil
}

// RunAll executes a batch of fixtures in order.
func (r *Runner) RunAll(fixtures []*Fixture) ([]Result, error) {
	var out []Result
	for _, f := range fixtures {
		results, err := r.Run(f)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

// RegisterDefs compiles the fixture's definitions into a store, in two
// passes so bodies can reference any definition regardless of
// declaration order, including themselves. Hosts that only want a
// fixture's definitions, without running its cases, call this directly.
func RegisterDefs(in *typesystem.Interner, defs *typesystem.DefStore, f *Fixture) error {
	ids := make([]typesystem.DefID, len(f.Defs))
	for i, d := range f.Defs {
		switch d.Kind {
		case "interface":
			ids[i] = defs.AddInterface(d.Name, nil, typesystem.NoType)
		case "class":
			ids[i] = defs.AddClass(d.Name, nil, typesystem.NoType)
		default:
			ids[i] = defs.AddTypeAlias(d.Name, nil, typesystem.NoType)
		}
	}
	byName := typeexpr.DefLookup(in, defs)
	for i, d := range f.Defs {
		var params []typesystem.TypeParamInfo
		if d.Params != "" {
			var err error
			params, err = typeexpr.ParseTypeParams(d.Params, in, byName)
			if err != nil {
				return fmt.Errorf("def %s: params: %w", d.Name, err)
			}
			defs.SetParams(ids[i], params)
		}
		body, err := typeexpr.Parse(d.Type, in, typeexpr.ParamLookup(in, params, byName))
		if err != nil {
			return fmt.Errorf("def %s: %w", d.Name, err)
		}
		defs.SetBody(ids[i], body)
	}
	return nil
}

// caseEnv bundles the per-fixture machinery a case executes against.
type caseEnv struct {
	in     *typesystem.Interner
	defs   *typesystem.DefStore
	solver *typesystem.Solver
	fmtr   *diagnostics.Formatter
	lookup typeexpr.Lookup
}

func (e *caseEnv) sprint(id typesystem.TypeID) string {
	return e.in.SprintWith(e.defs, id)
}

func (e *caseEnv) parse(field, src string) (typesystem.TypeID, bool, string) {
	id, err := typeexpr.Parse(src, e.in, e.lookup)
	if err != nil {
		return typesystem.NoType, false, fmt.Sprintf("%s: %s", field, err)
	}
	return id, true, ""
}

// equivalent reports whether two results are interchangeable. Forcing is
// shallow, so a structurally equal result can still differ as a handle
// when one side keeps a reference deferred; mutual assignability settles
// those. The error type never matches anything else, since it is
// assignable in both directions by construction.
func (e *caseEnv) equivalent(got, want typesystem.TypeID) bool {
	if got == want {
		return true
	}
	if got == typesystem.ErrorType || want == typesystem.ErrorType {
		return false
	}
	return e.solver.IsAssignable(got, want) && e.solver.IsAssignable(want, got)
}

func (e *caseEnv) run(c Case) (bool, string) {
	switch c.Kind {
	case "assignable":
		return e.runAssignable(c)
	case "not-assignable":
		return e.runNotAssignable(c)
	case "narrow":
		return e.runNarrow(c)
	case "eval":
		return e.runEval(c)
	case "property":
		return e.runProperty(c)
	}
	return false, fmt.Sprintf("unknown kind %q", c.Kind)
}

func (e *caseEnv) runAssignable(c Case) (bool, string) {
	src, ok, detail := e.parse("source", c.Source)
	if !ok {
		return false, detail
	}
	tgt, ok, detail := e.parse("target", c.Target)
	if !ok {
		return false, detail
	}
	if fail := e.solver.Explain(src, tgt); fail != nil {
		return false, e.fmtr.Assignment(fail).String()
	}
	return true, ""
}

func (e *caseEnv) runNotAssignable(c Case) (bool, string) {
	src, ok, detail := e.parse("source", c.Source)
	if !ok {
		return false, detail
	}
	tgt, ok, detail := e.parse("target", c.Target)
	if !ok {
		return false, detail
	}
	fail := e.solver.Explain(src, tgt)
	if fail == nil {
		return false, fmt.Sprintf("%s is assignable to %s", e.sprint(src), e.sprint(tgt))
	}
	d := e.fmtr.Assignment(fail)
	if c.Code != 0 && int(d.Code) != c.Code {
		return false, fmt.Sprintf("got code %d, want %d: %s", d.Code, c.Code, d.Message)
	}
	if c.Message != "" && d.Message != c.Message {
		return false, fmt.Sprintf("got message %q, want %q", d.Message, c.Message)
	}
	return true, d.String()
}

func (e *caseEnv) runNarrow(c Case) (bool, string) {
	subject, ok, detail := e.parse("subject", c.Subject)
	if !ok {
		return false, detail
	}
	want, ok, detail := e.parse("expect", c.Expect)
	if !ok {
		return false, detail
	}
	g, err := e.guard(c.Guard)
	if err != nil {
		return false, err.Error()
	}
	got := e.solver.Narrow(subject, g)
	if !e.equivalent(got, want) {
		return false, fmt.Sprintf("narrowed to %s, want %s", e.sprint(got), e.sprint(want))
	}
	return true, e.sprint(got)
}

func (e *caseEnv) runEval(c Case) (bool, string) {
	input, ok, detail := e.parse("input", c.Input)
	if !ok {
		return false, detail
	}
	want, ok, detail := e.parse("expect", c.Expect)
	if !ok {
		return false, detail
	}
	got := e.solver.Evaluate(input)
	if !e.equivalent(got, e.solver.Evaluate(want)) {
		return false, fmt.Sprintf("evaluated to %s, want %s", e.sprint(got), e.sprint(want))
	}
	return true, e.sprint(got)
}

func (e *caseEnv) runProperty(c Case) (bool, string) {
	receiver, ok, detail := e.parse("receiver", c.Receiver)
	if !ok {
		return false, detail
	}
	res := e.solver.PropertyOf(receiver, c.Property)
	if c.Missing {
		if res.Access == typesystem.PropertyNotFound {
			return true, fmt.Sprintf("no property %q", c.Property)
		}
		return false, fmt.Sprintf("property %q resolved to %s", c.Property, e.sprint(res.Type))
	}
	if d, bad := e.fmtr.Property(receiver, c.Property, res, nil); bad {
		return false, d.String()
	}
	want, ok, detail := e.parse("expect", c.Expect)
	if !ok {
		return false, detail
	}
	if !e.equivalent(res.Type, want) {
		return false, fmt.Sprintf("property %q has type %s, want %s", c.Property, e.sprint(res.Type), e.sprint(want))
	}
	return true, e.sprint(res.Type)
}

func (e *caseEnv) guard(spec *GuardSpec) (typesystem.Guard, error) {
	return spec.Guard(func(src string) (typesystem.TypeID, error) {
		return typeexpr.Parse(src, e.in, e.lookup)
	})
}

// Summary aggregates one run.
type Summary struct {
	Total  int
	Passed int
	Failed []Result
}

// Ok reports whether every case passed.
func (s Summary) Ok() bool { return len(s.Failed) == 0 }

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d cases passed", s.Passed, s.Total)
}

// Summarize folds results into pass counts and the failing remainder.
func Summarize(results []Result) Summary {
	failed := lo.Filter(results, func(r Result, _ int) bool { return !r.Pass })
	return Summary{
		Total:  len(results),
		Passed: len(results) - len(failed),
		Failed: failed,
	}
}
