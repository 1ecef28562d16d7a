package typesystem

// CheckConfig is the explicit strictness configuration for assignability.
// Every flag defaults to the strict profile; nothing reads ambient state.
type CheckConfig struct {
	// StrictNullChecks keeps null and undefined out of every other type.
	// When false, both are assignable to anything.
	StrictNullChecks bool

	// StrictFunctionTypes checks function parameters contravariantly.
	// When false, parameters check bivariantly. Method members check
	// bivariantly regardless.
	StrictFunctionTypes bool

	// ExactOptionalPropertyTypes stops optional properties from
	// accepting explicit undefined.
	ExactOptionalPropertyTypes bool

	// NoUncheckedIndexedAccess adds undefined to index-signature reads.
	NoUncheckedIndexedAccess bool
}

// DefaultCheckConfig is the strict profile.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		StrictNullChecks:    true,
		StrictFunctionTypes: true,
	}
}

// maxCheckDepth bounds structural recursion. A pair that blows the budget
// is reported unassignable with a depth failure, which the diagnostic
// layer maps to its own code rather than a plain mismatch.
const maxCheckDepth = 100

type typePair struct {
	source TypeID
	target TypeID
}

// Checker answers assignability questions over one interner. Verdicts are
// cached per (source, target) pair; in-flight pairs are assumed
// compatible, which is what lets recursive structures terminate.
//
// A Checker is bound to one evaluator and one resolver for its lifetime
// and, like the interner it wraps, is not safe for concurrent use.
type Checker struct {
	in       *Interner
	eval     *Evaluator
	config   CheckConfig
	cache    map[typePair]bool
	visiting map[typePair]bool
}

// NewChecker builds a checker over in, resolving lazy references through
// resolver.
func NewChecker(in *Interner, resolver Resolver, config CheckConfig) *Checker {
	c := &Checker{
		in:       in,
		config:   config,
		cache:    make(map[typePair]bool),
		visiting: make(map[typePair]bool),
	}
	c.eval = newEvaluator(in, resolver, c)
	return c
}

// Interner returns the interner the checker is bound to.
func (c *Checker) Interner() *Interner { return c.in }

// Evaluator returns the evaluator the checker forces meta-types with.
func (c *Checker) Evaluator() *Evaluator { return c.eval }

// Config returns the active strictness profile.
func (c *Checker) Config() CheckConfig { return c.config }

// IsAssignable reports whether source is assignable to target.
func (c *Checker) IsAssignable(source, target TypeID) bool {
	ok, _ := c.check(source, target, false, 0)
	return ok
}

// Explain returns nil when source is assignable to target, and otherwise
// the structured failure chain a diagnostic should carry.
func (c *Checker) Explain(source, target TypeID) *Failure {
	ok, fail := c.check(source, target, true, 0)
	if ok {
		return nil
	}
	if fail == nil {
		fail = failure(FailTypeMismatch, source, target)
	}
	return fail
}

// Comparable reports whether the two types overlap in either direction,
// which is the test behind comparison operators and case labels.
func (c *Checker) Comparable(a, b TypeID) bool {
	return c.IsAssignable(a, b) || c.IsAssignable(b, a)
}

// check runs the fast paths, forces meta-types, consults the caches and
// falls through to the structural rules. The error type is compatible in
// both directions so one upstream failure never fans out; any is likewise
// universal in both directions.
func (c *Checker) check(source, target TypeID, wantReason bool, depth int) (bool, *Failure) {
	if source == target {
		return true, nil
	}
	if source == ErrorType || target == ErrorType {
		return true, nil
	}
	if source == AnyType || target == AnyType {
		return true, nil
	}
	if target == UnknownType {
		return true, nil
	}
	if source == NeverType {
		return true, nil
	}
	if !c.config.StrictNullChecks && (source == NullType || source == UndefinedType) && target != NeverType {
		return true, nil
	}

	es := c.eval.Evaluate(source)
	et := c.eval.Evaluate(target)
	if es != source || et != target {
		return c.check(es, et, wantReason, depth+1)
	}

	if target == NeverType {
		return false, failure(FailTypeMismatch, source, target)
	}
	if depth > maxCheckDepth {
		return false, failure(FailDepthExceeded, source, target)
	}

	pair := typePair{source, target}
	if verdict, ok := c.cache[pair]; ok {
		if verdict || !wantReason {
			return verdict, nil
		}
		// Rebuild the reason for a known failure.
	} else if c.visiting[pair] {
		return true, nil
	}

	c.visiting[pair] = true
	ok, fail := c.structural(source, target, wantReason, depth)
	delete(c.visiting, pair)
	c.cache[pair] = ok
	return ok, fail
}
