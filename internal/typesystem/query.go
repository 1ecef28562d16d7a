package typesystem

// Solver bundles one interner, one checker, one evaluator and one
// narrower behind the operations a caller actually asks for. It is the
// package's front door; everything it does is expressible through the
// underlying pieces.
type Solver struct {
	in       *Interner
	checker  *Checker
	narrower *Narrower
}

// NewSolver wires a solver over an interner and a resolver.
func NewSolver(in *Interner, resolver Resolver, config CheckConfig) *Solver {
	checker := NewChecker(in, resolver, config)
	return &Solver{
		in:       in,
		checker:  checker,
		narrower: NewNarrower(checker),
	}
}

// Interner returns the underlying interner.
func (s *Solver) Interner() *Interner { return s.in }

// Checker returns the underlying compatibility checker.
func (s *Solver) Checker() *Checker { return s.checker }

// Evaluator returns the underlying evaluator.
func (s *Solver) Evaluator() *Evaluator { return s.checker.eval }

// Narrower returns the underlying narrower.
func (s *Solver) Narrower() *Narrower { return s.narrower }

// IsAssignable reports whether source is assignable to target.
func (s *Solver) IsAssignable(source, target TypeID) bool {
	return s.checker.IsAssignable(source, target)
}

// Explain returns the failure chain for an unassignable pair, nil
// otherwise.
func (s *Solver) Explain(source, target TypeID) *Failure {
	return s.checker.Explain(source, target)
}

// Evaluate forces a deferred type's outer shell.
func (s *Solver) Evaluate(id TypeID) TypeID {
	return s.checker.eval.Evaluate(id)
}

// Narrow applies a guard.
func (s *Solver) Narrow(t TypeID, g Guard) TypeID {
	return s.narrower.Apply(t, g)
}

// Instantiate substitutes type parameters and forces the result.
func (s *Solver) Instantiate(id TypeID, sub *Substitution) TypeID {
	return s.Evaluate(s.in.Instantiate(id, sub))
}

// TruthinessOf classifies a type's boolean behavior.
func (s *Solver) TruthinessOf(t TypeID) Truthiness {
	return s.narrower.TruthinessOf(t)
}

// Discriminants lists the discriminant properties of a union.
func (s *Solver) Discriminants(t TypeID) []Discriminant {
	return s.narrower.FindDiscriminants(t)
}

// Sprint renders a type for diagnostics.
func (s *Solver) Sprint(id TypeID) string { return s.in.Sprint(id) }

// SprintWith renders a type with definition names resolved through namer.
func (s *Solver) SprintWith(namer DefNamer, id TypeID) string {
	return s.in.SprintWith(namer, id)
}

// =============================================================================
// Property access
// =============================================================================

// PropertyAccess says how a property lookup concluded.
type PropertyAccess uint8

const (
	PropertyNotFound PropertyAccess = iota
	PropertyFound
	PropertyFromIndex
	PropertyOnAny
	PropertyOnUnknown
	PropertyOnError
	PropertyOnNullish
)

// PropertyResult is the outcome of a property lookup. Type is only
// meaningful for the found, index, any and error outcomes.
type PropertyResult struct {
	Access   PropertyAccess
	Type     TypeID
	Optional bool
	Readonly bool
}

// PropertyOf looks up a named property, forcing the receiver first.
// Unions join the results of the members that carry the property and
// only miss when no member has it; members without the property make
// the joined result optional. Accessing anything on a nullish receiver
// is its own outcome so the diagnostic layer can report it precisely.
func (s *Solver) PropertyOf(t TypeID, name string) PropertyResult {
	in := s.in
	forced := s.Evaluate(t)

	switch forced {
	case AnyType:
		return PropertyResult{Access: PropertyOnAny, Type: AnyType}
	case ErrorType:
		return PropertyResult{Access: PropertyOnError, Type: ErrorType}
	case UnknownType:
		return PropertyResult{Access: PropertyOnUnknown}
	case NullType, UndefinedType, VoidType:
		return PropertyResult{Access: PropertyOnNullish}
	}

	if members, ok := in.UnionMembers(forced); ok {
		joined := make([]TypeID, 0, len(members))
		var optional, readonly, missed bool
		nullish := 0
		access := PropertyFound
		for _, m := range members {
			r := s.PropertyOf(m, name)
			switch r.Access {
			case PropertyFound, PropertyFromIndex, PropertyOnAny:
				joined = append(joined, r.Type)
				optional = optional || r.Optional
				readonly = readonly || r.Readonly
				if r.Access == PropertyFromIndex {
					access = PropertyFromIndex
				}
			case PropertyOnError:
				return r
			case PropertyOnNullish:
				missed = true
				nullish++
			default:
				missed = true
			}
		}
		if len(joined) == 0 {
			if nullish == len(members) {
				return PropertyResult{Access: PropertyOnNullish}
			}
			return PropertyResult{Access: PropertyNotFound}
		}
		return PropertyResult{Access: access, Type: in.Union(joined...), Optional: optional || missed, Readonly: readonly}
	}

	if members, ok := in.IntersectionMembers(forced); ok {
		for _, m := range members {
			if r := s.PropertyOf(m, name); r.Access != PropertyNotFound {
				return r
			}
		}
		return PropertyResult{Access: PropertyNotFound}
	}

	nameID := in.InternString(name)
	if shape, ok := in.ObjectShapeOf(forced); ok {
		if p, found := shape.PropertyByName(nameID); found {
			result := PropertyResult{Access: PropertyFound, Type: s.Evaluate(p.Type), Optional: p.Optional, Readonly: p.Readonly}
			if p.Optional {
				result.Type = in.Union(result.Type, UndefinedType)
			}
			return result
		}
		if shape.StringIndex != nil {
			value := s.Evaluate(shape.StringIndex.Value)
			if s.checker.config.NoUncheckedIndexedAccess {
				value = in.Union(value, UndefinedType)
			}
			return PropertyResult{Access: PropertyFromIndex, Type: value, Readonly: shape.StringIndex.Readonly}
		}
		if shape.NumberIndex != nil && isNumericName(name) {
			value := s.Evaluate(shape.NumberIndex.Value)
			if s.checker.config.NoUncheckedIndexedAccess {
				value = in.Union(value, UndefinedType)
			}
			return PropertyResult{Access: PropertyFromIndex, Type: value, Readonly: shape.NumberIndex.Readonly}
		}
		return PropertyResult{Access: PropertyNotFound}
	}
	if cs, ok := in.CallableOf(forced); ok && cs.Shape != 0 {
		if p, found := in.shape(cs.Shape).PropertyByName(nameID); found {
			return PropertyResult{Access: PropertyFound, Type: s.Evaluate(p.Type), Optional: p.Optional, Readonly: p.Readonly}
		}
		return PropertyResult{Access: PropertyNotFound}
	}
	if p, ok := s.apparentMember(forced, name); ok {
		return p
	}
	return PropertyResult{Access: PropertyNotFound}
}

// apparentMember serves the built-in members primitives, arrays and
// tuples expose: length and the element-wise search methods on arrays,
// tuple element positions, charAt, toFixed, toString and valueOf on the
// primitives that carry them.
func (s *Solver) apparentMember(t TypeID, name string) (PropertyResult, bool) {
	in := s.in
	found := func(typ TypeID, readonly bool) (PropertyResult, bool) {
		return PropertyResult{Access: PropertyFound, Type: typ, Readonly: readonly}, true
	}

	switch in.KindOf(t) {
	case KindArray:
		elem, _ := in.ArrayElem(t)
		if name == "length" {
			return found(NumberType, false)
		}
		if isNumericName(name) {
			value := s.Evaluate(elem)
			if s.checker.config.NoUncheckedIndexedAccess {
				value = in.Union(value, UndefinedType)
			}
			return PropertyResult{Access: PropertyFromIndex, Type: value}, true
		}
		switch name {
		case "at":
			sig := in.Function(FunctionShape{
				Params: []Param{{Name: in.InternString("index"), Type: NumberType}},
				Return: in.Union(s.Evaluate(elem), UndefinedType),
				Method: true,
			})
			return found(sig, true)
		case "includes":
			sig := in.Function(FunctionShape{
				Params: []Param{{Name: in.InternString("searchElement"), Type: s.Evaluate(elem)}},
				Return: BooleanType,
				Method: true,
			})
			return found(sig, true)
		case "indexOf":
			sig := in.Function(FunctionShape{
				Params: []Param{{Name: in.InternString("searchElement"), Type: s.Evaluate(elem)}},
				Return: NumberType,
				Method: true,
			})
			return found(sig, true)
		case "join":
			sig := in.Function(FunctionShape{
				Params: []Param{{Name: in.InternString("separator"), Type: StringType, Optional: true}},
				Return: StringType,
				Method: true,
			})
			return found(sig, true)
		}

	case KindTuple:
		elems, _ := in.TupleElems(t)
		if name == "length" {
			for _, e := range elems {
				if e.Rest || e.Optional {
					return found(NumberType, true)
				}
			}
			return found(in.LiteralNumber(float64(len(elems))), true)
		}
		if isNumericName(name) {
			r := s.Evaluate(in.IndexAccess(t, in.LiteralNumber(parseNumericName(name))))
			if r == ErrorType {
				return PropertyResult{Access: PropertyNotFound}, true
			}
			return PropertyResult{Access: PropertyFound, Type: r}, true
		}

	case KindReadonly:
		inner, _ := in.ReadonlyInner(t)
		r, ok := s.apparentMember(inner, name)
		r.Readonly = true
		return r, ok
	}

	base := NoType
	switch t {
	case StringType:
		base = StringType
	case NumberType:
		base = NumberType
	case BooleanType:
		base = BooleanType
	case BigIntType:
		base = BigIntType
	}
	if lit, ok := in.LiteralOf(t); ok {
		switch lit.Kind {
		case LitString:
			base = StringType
		case LitNumber:
			base = NumberType
		case LitBoolean:
			base = BooleanType
		case LitBigInt:
			base = BigIntType
		}
	}
	if base == StringType {
		switch name {
		case "length":
			return found(NumberType, true)
		case "charAt":
			sig := in.Function(FunctionShape{
				Params: []Param{{Name: in.InternString("pos"), Type: NumberType}},
				Return: StringType,
				Method: true,
			})
			return found(sig, true)
		}
	}
	if base == NumberType && name == "toFixed" {
		sig := in.Function(FunctionShape{
			Params: []Param{{Name: in.InternString("fractionDigits"), Type: NumberType, Optional: true}},
			Return: StringType,
			Method: true,
		})
		return found(sig, true)
	}
	if base != NoType {
		switch name {
		case "toString":
			return found(in.Function(FunctionShape{Return: StringType, Method: true}), true)
		case "valueOf":
			return found(in.Function(FunctionShape{Return: base, Method: true}), true)
		}
	}
	return PropertyResult{}, false
}

// =============================================================================
// Callable access
// =============================================================================

// CallSignaturesOf returns the call signatures of a callable type, after
// forcing. Non-callables return nil.
func (s *Solver) CallSignaturesOf(t TypeID) []*FunctionShape {
	in := s.in
	forced := s.Evaluate(t)
	if f, ok := in.FunctionOf(forced); ok {
		if f.Constructor {
			return nil
		}
		return []*FunctionShape{f}
	}
	if cs, ok := in.CallableOf(forced); ok {
		out := make([]*FunctionShape, len(cs.CallSignatures))
		for i, fid := range cs.CallSignatures {
			out[i] = in.funcShape(fid)
		}
		return out
	}
	return nil
}

// ConstructSignaturesOf returns the construct signatures of a callable
// type, after forcing.
func (s *Solver) ConstructSignaturesOf(t TypeID) []*FunctionShape {
	in := s.in
	forced := s.Evaluate(t)
	if f, ok := in.FunctionOf(forced); ok {
		if !f.Constructor {
			return nil
		}
		return []*FunctionShape{f}
	}
	if cs, ok := in.CallableOf(forced); ok {
		out := make([]*FunctionShape, len(cs.ConstructSignatures))
		for i, fid := range cs.ConstructSignatures {
			out[i] = in.funcShape(fid)
		}
		return out
	}
	return nil
}
