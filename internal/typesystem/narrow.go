package typesystem

import "math"

// Narrowing refines a type under a runtime guard. Every operation returns
// a type assignable to its input; a guard can rule members out or sharpen
// them, never add anything.

// Truthiness classifies how a type behaves in a boolean position.
type Truthiness uint8

const (
	TruthinessMixed Truthiness = iota
	TruthinessTruthy
	TruthinessFalsy
)

// GuardKind enumerates the runtime checks narrowing understands.
type GuardKind uint8

const (
	GuardTypeof GuardKind = iota
	GuardInstanceof
	GuardIn
	GuardTruthiness
	GuardEquals
	GuardDiscriminant
	GuardPredicate
	GuardEveryElement
)

// Guard is one runtime check in a serializable form. Assume tells which
// branch is being narrowed: true for the branch where the check passed.
// Loose switches an equals guard from === to == semantics.
type Guard struct {
	Kind     GuardKind
	Tag      string
	Property string
	Target   TypeID
	Assume   bool
	Loose    bool
}

// Discriminant is a property that splits a union: present in every
// member, unit-typed in every member, with at least two distinct values.
type Discriminant struct {
	Name StringID
	// Values holds the property's type per union member, in member order.
	Values []TypeID
}

// Narrower applies guards using the checker's assignability relation.
type Narrower struct {
	checker *Checker
	in      *Interner
}

// NewNarrower builds a narrower over c.
func NewNarrower(c *Checker) *Narrower {
	return &Narrower{checker: c, in: c.in}
}

// Apply dispatches a guard, forcing the subject's outer shell first so
// a deferred reference narrows like its body.
func (n *Narrower) Apply(t TypeID, g Guard) TypeID {
	t = n.checker.eval.Evaluate(t)
	switch g.Kind {
	case GuardTypeof:
		return n.NarrowByTypeof(t, g.Tag, g.Assume)
	case GuardInstanceof, GuardPredicate:
		if g.Assume {
			return n.NarrowToType(t, g.Target)
		}
		return n.NarrowExcludingType(t, g.Target)
	case GuardIn:
		return n.NarrowByIn(t, g.Property, g.Assume)
	case GuardTruthiness:
		return n.NarrowByTruthiness(t, g.Assume)
	case GuardEquals:
		if g.Loose {
			return n.NarrowByLooseEquality(t, g.Target, g.Assume)
		}
		return n.NarrowByEquality(t, g.Target, g.Assume)
	case GuardDiscriminant:
		return n.NarrowByDiscriminant(t, g.Property, g.Target, g.Assume)
	case GuardEveryElement:
		return n.NarrowEveryElement(t, g.Target)
	}
	return t
}

// TypeofTarget returns the type a typeof tag selects, or NoType for an
// unknown tag. The "object" tag covers null; the "function" tag matches
// through a synthesized universal signature.
func (n *Narrower) TypeofTarget(tag string) TypeID {
	in := n.in
	switch tag {
	case "string":
		return StringType
	case "number":
		return NumberType
	case "boolean":
		return BooleanType
	case "bigint":
		return BigIntType
	case "symbol":
		return SymbolType
	case "undefined":
		return UndefinedType
	case "object":
		return in.Union(ObjectKeyword, NullType)
	case "function":
		return in.Function(FunctionShape{
			Params: []Param{{
				Name: in.InternString("args"),
				Type: in.Array(AnyType),
				Rest: true,
			}},
			Return: AnyType,
		})
	}
	return NoType
}

// NarrowByTypeof narrows under `typeof x === tag` (assume true) or its
// negation. An unrecognized tag leaves the type alone.
func (n *Narrower) NarrowByTypeof(t TypeID, tag string, assume bool) TypeID {
	target := n.TypeofTarget(tag)
	if target == NoType {
		return t
	}
	if assume {
		return n.NarrowToType(t, target)
	}
	return n.NarrowExcludingType(t, target)
}

// NarrowToType keeps the part of t that could be a target. Members
// assignable to the target survive as themselves; members the target
// sharpens (boolean against true, a primitive against its literal)
// become the target; everything else drops. An empty result is never.
func (n *Narrower) NarrowToType(t, target TypeID) TypeID {
	in := n.in
	if t == AnyType {
		return target
	}
	if t == ErrorType {
		return ErrorType
	}

	if info, ok := in.TypeParamOf(t); ok {
		base := info.Constraint
		if base == NoType {
			base = UnknownType
		}
		narrowed := n.NarrowToType(base, target)
		if narrowed == NeverType {
			return NeverType
		}
		if narrowed == base {
			return t
		}
		return in.Intersection(t, narrowed)
	}

	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			if r := n.narrowMember(m, target); r != NeverType {
				kept = append(kept, r)
			}
		}
		return in.Union(kept...)
	}
	return n.narrowMember(t, target)
}

func (n *Narrower) narrowMember(m, target TypeID) TypeID {
	if n.checker.IsAssignable(m, target) {
		return m
	}
	if tm, ok := n.in.UnionMembers(target); ok {
		// A union target sharpens member by member.
		parts := make([]TypeID, 0, len(tm))
		for _, tmem := range tm {
			if r := n.narrowMember(m, tmem); r != NeverType {
				parts = append(parts, r)
			}
		}
		return n.in.Union(parts...)
	}
	if n.checker.IsAssignable(target, m) {
		return target
	}
	return NeverType
}

// NarrowExcludingType removes the part of t a positive check would have
// kept. Boolean splits into its other literal; members the excluded type
// merely overlaps stay, since their other values remain possible.
func (n *Narrower) NarrowExcludingType(t, excluded TypeID) TypeID {
	in := n.in
	if t == ErrorType {
		return ErrorType
	}
	if t == AnyType {
		return AnyType
	}

	if info, ok := in.TypeParamOf(t); ok {
		base := info.Constraint
		if base == NoType {
			base = UnknownType
		}
		narrowed := n.NarrowExcludingType(base, excluded)
		if narrowed == NeverType {
			return NeverType
		}
		if narrowed == base {
			return t
		}
		return in.Intersection(t, narrowed)
	}

	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			if r := n.excludeMember(m, excluded); r != NeverType {
				kept = append(kept, r)
			}
		}
		return in.Union(kept...)
	}
	return n.excludeMember(t, excluded)
}

func (n *Narrower) excludeMember(m, excluded TypeID) TypeID {
	in := n.in
	if em, ok := in.UnionMembers(excluded); ok {
		cur := m
		for _, e := range em {
			cur = n.excludeMember(cur, e)
			if cur == NeverType {
				return NeverType
			}
		}
		return cur
	}
	if n.checker.IsAssignable(m, excluded) {
		return NeverType
	}
	if m == BooleanType {
		if excluded == TrueType {
			return FalseType
		}
		if excluded == FalseType {
			return TrueType
		}
	}
	return m
}

// NarrowByEquality narrows under `x === value` against a unit type.
func (n *Narrower) NarrowByEquality(t, value TypeID, assume bool) TypeID {
	if assume {
		return n.NarrowToType(t, value)
	}
	return n.NarrowExcludingType(t, value)
}

// NarrowByLooseEquality narrows under `x == value`. Loose comparison
// cannot tell null from undefined, so a nullish value keeps or removes
// both together. Any other unit value behaves like the strict form.
func (n *Narrower) NarrowByLooseEquality(t, value TypeID, assume bool) TypeID {
	if value == NullType || value == UndefinedType {
		nullish := n.in.Union(NullType, UndefinedType)
		if assume {
			return n.NarrowToType(t, nullish)
		}
		return n.NarrowExcludingType(t, nullish)
	}
	return n.NarrowByEquality(t, value, assume)
}

// NarrowByIn narrows under `"prop" in x`. A required property is definite
// presence, an optional property or index signature only possible, so
// those members survive both branches.
func (n *Narrower) NarrowByIn(t TypeID, prop string, assume bool) TypeID {
	in := n.in
	name := in.InternString(prop)

	presence := func(m TypeID) int {
		m = n.checker.eval.Evaluate(m)
		shape, ok := in.ObjectShapeOf(m)
		if !ok {
			if cs, isC := in.CallableOf(m); isC && cs.Shape != 0 {
				shape = in.shape(cs.Shape)
			} else {
				return 0
			}
		}
		if p, found := shape.PropertyByName(name); found {
			if p.Optional {
				return 1
			}
			return 2
		}
		if shape.StringIndex != nil || (shape.NumberIndex != nil && isNumericName(prop)) {
			return 1
		}
		return 0
	}

	filter := func(m TypeID) bool {
		switch presence(m) {
		case 2:
			return assume
		case 1:
			return true
		default:
			return !assume
		}
	}

	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			if filter(m) {
				kept = append(kept, m)
			}
		}
		return in.Union(kept...)
	}
	if filter(t) {
		return t
	}
	return NeverType
}

// TruthinessOf classifies a type's boolean behavior.
func (n *Narrower) TruthinessOf(t TypeID) Truthiness {
	in := n.in
	switch t {
	case FalseType, NullType, UndefinedType, VoidType:
		return TruthinessFalsy
	case TrueType, SymbolType, ObjectKeyword:
		return TruthinessTruthy
	case NeverType, ErrorType, AnyType, UnknownType,
		StringType, NumberType, BooleanType, BigIntType:
		return TruthinessMixed
	}
	if lit, ok := in.LiteralOf(t); ok {
		switch lit.Kind {
		case LitString:
			if in.StringOf(lit.Str) == "" {
				return TruthinessFalsy
			}
			return TruthinessTruthy
		case LitNumber:
			if lit.Num == 0 || math.IsNaN(lit.Num) {
				return TruthinessFalsy
			}
			return TruthinessTruthy
		case LitBigInt:
			if in.StringOf(lit.Str) == "0" {
				return TruthinessFalsy
			}
			return TruthinessTruthy
		}
		return TruthinessMixed
	}
	if members, ok := in.UnionMembers(t); ok {
		first := n.TruthinessOf(members[0])
		for _, m := range members[1:] {
			if n.TruthinessOf(m) != first {
				return TruthinessMixed
			}
		}
		return first
	}
	if in.IsObjectLike(t) || in.KindOf(t) == KindUniqueSymbol {
		return TruthinessTruthy
	}
	return TruthinessMixed
}

// NarrowByTruthiness narrows under `if (x)` (assume true) or its else
// branch. Boolean sharpens to its matching literal; string and number
// stay themselves in both branches since their falsy values are not
// separate types.
func (n *Narrower) NarrowByTruthiness(t TypeID, assume bool) TypeID {
	in := n.in
	refine := func(m TypeID) TypeID {
		switch n.TruthinessOf(m) {
		case TruthinessTruthy:
			if assume {
				return m
			}
			return NeverType
		case TruthinessFalsy:
			if assume {
				return NeverType
			}
			return m
		}
		if m == BooleanType {
			if assume {
				return TrueType
			}
			return FalseType
		}
		return m
	}

	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			if r := refine(m); r != NeverType {
				kept = append(kept, r)
			}
		}
		return in.Union(kept...)
	}
	return refine(t)
}

// NarrowByDiscriminant narrows a union under `x.prop === value`. A member
// without the property only matches when the tested value is undefined.
func (n *Narrower) NarrowByDiscriminant(t TypeID, prop string, value TypeID, assume bool) TypeID {
	in := n.in
	name := in.InternString(prop)

	matches := func(m TypeID) bool {
		shape, ok := in.ObjectShapeOf(n.checker.eval.Evaluate(m))
		if !ok {
			return false
		}
		p, found := shape.PropertyByName(name)
		if !found {
			return value == UndefinedType
		}
		propT := n.checker.eval.Evaluate(p.Type)
		if propT == value {
			return true
		}
		return n.checker.IsAssignable(value, propT)
	}

	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			if matches(m) == assume {
				kept = append(kept, m)
			}
		}
		return in.Union(kept...)
	}
	if matches(t) == assume {
		return t
	}
	return NeverType
}

// NarrowEveryElement narrows an array or tuple whose every element passed
// an element-level guard, as `xs.every(isT)` establishes.
func (n *Narrower) NarrowEveryElement(t, elemTarget TypeID) TypeID {
	in := n.in
	if inner, ok := in.ReadonlyInner(t); ok {
		return in.Readonly(n.NarrowEveryElement(inner, elemTarget))
	}
	if elem, ok := in.ArrayElem(t); ok {
		return in.Array(n.NarrowToType(elem, elemTarget))
	}
	if elems, ok := in.TupleElems(t); ok {
		out := make([]TupleElement, len(elems))
		for i, e := range elems {
			out[i] = e
			if e.Rest {
				if restInner, isArr := in.ArrayElem(e.Type); isArr {
					out[i].Type = in.Array(n.NarrowToType(restInner, elemTarget))
					continue
				}
			}
			out[i].Type = n.NarrowToType(e.Type, elemTarget)
		}
		return in.Tuple(out)
	}
	if members, ok := in.UnionMembers(t); ok {
		kept := make([]TypeID, 0, len(members))
		for _, m := range members {
			narrowed := n.NarrowEveryElement(m, elemTarget)
			if narrowed != NeverType {
				kept = append(kept, narrowed)
			}
		}
		return in.Union(kept...)
	}
	return t
}

// FindDiscriminants lists the properties that can discriminate a union.
func (n *Narrower) FindDiscriminants(t TypeID) []Discriminant {
	in := n.in
	members, ok := in.UnionMembers(t)
	if !ok {
		return nil
	}

	shapes := make([]*ObjectShape, len(members))
	for i, m := range members {
		shape, isObj := in.ObjectShapeOf(n.checker.eval.Evaluate(m))
		if !isObj {
			return nil
		}
		shapes[i] = shape
	}

	var out []Discriminant
	for _, candidate := range shapes[0].Properties {
		values := make([]TypeID, len(shapes))
		eligible := true
		for i, shape := range shapes {
			p, found := shape.PropertyByName(candidate.Name)
			if !found || !in.IsUnit(n.checker.eval.Evaluate(p.Type)) {
				eligible = false
				break
			}
			values[i] = n.checker.eval.Evaluate(p.Type)
		}
		if !eligible {
			continue
		}
		distinct := make(map[TypeID]bool, len(values))
		for _, v := range values {
			distinct[v] = true
		}
		if len(distinct) < 2 {
			continue
		}
		out = append(out, Discriminant{Name: candidate.Name, Values: values})
	}
	return out
}
