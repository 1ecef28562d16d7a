package typesystem

import "strings"

// maxEvalDepth caps evaluation nesting; defaultEvalFuel caps total
// evaluation steps per evaluator. Either budget running out surfaces as
// the error type, never as a silent any.
const (
	maxEvalDepth    = 50
	defaultEvalFuel = 1_000_000
)

// Evaluator forces deferred types (lazy references, generic applications,
// conditionals, mapped types, keyof, indexed access, template literals,
// string intrinsics) into concrete shells. Unions and intersections force
// member-wise. Evaluation is otherwise shallow: an object's properties
// stay deferred until something looks at them.
//
// Forcing is memoized per input handle. A handle that cannot make
// progress (a free type parameter in the wrong place) evaluates to
// itself; a handle whose resolution fails evaluates to the error type.
type Evaluator struct {
	in       *Interner
	resolver Resolver
	checker  *Checker
	cache    map[TypeID]TypeID
	visiting map[TypeID]bool
	depth    int
	fuel     int
}

func newEvaluator(in *Interner, resolver Resolver, checker *Checker) *Evaluator {
	return &Evaluator{
		in:       in,
		resolver: resolver,
		checker:  checker,
		cache:    make(map[TypeID]TypeID),
		visiting: make(map[TypeID]bool),
		fuel:     defaultEvalFuel,
	}
}

// NewEvaluator builds a standalone evaluator with the strict default
// configuration backing its assignability queries.
func NewEvaluator(in *Interner, resolver Resolver) *Evaluator {
	return NewChecker(in, resolver, DefaultCheckConfig()).Evaluator()
}

// Evaluate forces id's outer shell.
func (e *Evaluator) Evaluate(id TypeID) TypeID {
	switch e.in.keyOf(id).kind {
	case KindLazy, KindTypeQuery, KindApplication, KindConditional, KindMapped,
		KindTemplate, KindKeyOf, KindIndexAccess, KindStringIntrinsic, KindReadonly, KindNoInfer,
		KindUnion, KindIntersection:
	default:
		return id
	}
	if cached, ok := e.cache[id]; ok {
		return cached
	}
	if e.visiting[id] {
		// A self-referential mapped type contributes no keys on
		// re-entry; everything else just stays deferred.
		if e.in.keyOf(id).kind == KindMapped {
			return e.in.Object(nil)
		}
		return id
	}
	e.fuel--
	if e.fuel < 0 {
		return ErrorType
	}
	if e.depth >= maxEvalDepth {
		return ErrorType
	}

	e.visiting[id] = true
	e.depth++
	result := e.force(id)
	e.depth--
	delete(e.visiting, id)

	e.cache[id] = result
	return result
}

func (e *Evaluator) force(id TypeID) TypeID {
	in := e.in
	key := in.keyOf(id)
	switch key.kind {
	case KindLazy:
		resolved, ok := e.resolver.Resolve(DefID(key.x))
		if !ok {
			return ErrorType
		}
		return e.Evaluate(resolved)

	case KindTypeQuery:
		resolved, ok := e.resolver.Resolve(DefID(key.x))
		if !ok {
			return id
		}
		return e.Evaluate(resolved)

	case KindReadonly:
		inner := e.Evaluate(TypeID(key.x))
		return in.Readonly(inner)

	case KindNoInfer:
		inner := e.Evaluate(TypeID(key.x))
		return in.NoInfer(inner)

	case KindApplication:
		return e.forceApplication(id, TypeID(key.x), in.list(ListID(key.y)))

	case KindConditional:
		return e.forceConditional(id, in.cond(CondID(key.x)))

	case KindMapped:
		return e.forceMapped(id, in.mapped(MappedID(key.x)))

	case KindTemplate:
		return e.forceTemplate(id, in.spanList(SpanListID(key.x)))

	case KindKeyOf:
		return e.forceKeyOf(id, TypeID(key.x))

	case KindIndexAccess:
		return e.forceIndexAccess(id, TypeID(key.x), TypeID(key.y))

	case KindStringIntrinsic:
		return e.forceStringIntrinsic(id, StringIntrinsicKind(key.x), TypeID(key.y))

	case KindUnion:
		return e.forceMembers(id, in.list(ListID(key.x)), in.Union)

	case KindIntersection:
		return e.forceMembers(id, in.list(ListID(key.x)), in.Intersection)
	}
	return id
}

// forceMembers evaluates each member of a union or intersection. Members
// are usually concrete already; the rebuild only happens when instantiation
// left a deferred type (most often a distributed conditional) inside.
func (e *Evaluator) forceMembers(id TypeID, members []TypeID, rebuild func(...TypeID) TypeID) TypeID {
	changed := false
	forced := make([]TypeID, len(members))
	for i, m := range members {
		forced[i] = e.Evaluate(m)
		if forced[i] != m {
			changed = true
		}
	}
	if !changed {
		return id
	}
	return rebuild(forced...)
}

// =============================================================================
// Generic application
// =============================================================================

func (e *Evaluator) forceApplication(id, base TypeID, args []TypeID) TypeID {
	in := e.in
	switch in.KindOf(base) {
	case KindLazy:
		def, _ := in.LazyDef(base)
		body, ok := e.resolver.Resolve(def)
		if !ok {
			return ErrorType
		}
		var params []TypeParamInfo
		if gr, isGeneric := e.resolver.(GenericResolver); isGeneric {
			params = gr.TypeParams(def)
		}
		if len(params) == 0 {
			if typeHasFreeParams(in, body) {
				return ErrorType
			}
			return e.Evaluate(body)
		}
		return e.Evaluate(in.InstantiateGeneric(body, params, args))

	case KindTypeParam, KindInfer:
		return id

	default:
		forced := e.Evaluate(base)
		if forced == base {
			return id
		}
		return e.Evaluate(in.Application(forced, args))
	}
}

func typeHasFreeParams(in *Interner, id TypeID) bool {
	free := false
	in.Walk(id, func(t TypeID) bool {
		if k := in.KindOf(t); k == KindTypeParam || k == KindInfer {
			free = true
			return false
		}
		return true
	})
	return free
}

// =============================================================================
// Conditionals
// =============================================================================

func (e *Evaluator) forceConditional(id TypeID, c Conditional) TypeID {
	in := e.in
	check := e.Evaluate(c.Check)

	// A free check side keeps the whole conditional deferred.
	switch in.KindOf(check) {
	case KindTypeParam, KindInfer:
		return id
	}

	if c.Distributive {
		if check == NeverType {
			return NeverType
		}
		if check == AnyType {
			return in.Union(e.Evaluate(c.True), e.Evaluate(c.False))
		}
		if members, ok := in.UnionMembers(check); ok {
			parts := make([]TypeID, 0, len(members))
			for _, m := range members {
				branch := Conditional{
					Check:   m,
					Extends: c.Extends,
					True:    c.True,
					False:   c.False,
				}
				parts = append(parts, e.Evaluate(in.Conditional(branch)))
			}
			return in.Union(parts...)
		}
	}

	sub := NewSubstitution(in).WithInfer()
	e.inferTypes(check, c.Extends, sub)

	// Constraint filters: an infer that bound outside its constraint
	// falls through to the false branch.
	ok := true
	forEachInfer(in, c.Extends, func(info TypeParamInfo) {
		bound, has := sub.Lookup(info.Name)
		if !has {
			sub.Bind(info.Name, UnknownType)
			return
		}
		if info.Constraint != NoType && !e.checker.IsAssignable(bound, info.Constraint) {
			ok = false
		}
	})

	if ok {
		extendsApplied := in.Instantiate(c.Extends, sub)
		ok = e.checker.IsAssignable(check, extendsApplied)
	}
	if ok {
		return e.Evaluate(in.Instantiate(c.True, sub))
	}
	return e.Evaluate(c.False)
}

// inferTypes matches check against a pattern containing infer
// placeholders and records bindings. Matching descends through bare
// placeholders, arrays and tuples; repeated sites for one name union.
func (e *Evaluator) inferTypes(check, pattern TypeID, sub *Substitution) {
	in := e.in
	switch in.KindOf(pattern) {
	case KindInfer:
		info, _ := in.InferOf(pattern)
		if prev, ok := sub.Lookup(info.Name); ok {
			sub.Bind(info.Name, in.Union(prev, check))
		} else {
			sub.Bind(info.Name, check)
		}

	case KindArray:
		patElem, _ := in.ArrayElem(pattern)
		if elem, ok := in.ArrayElem(check); ok {
			e.inferTypes(elem, patElem, sub)
		} else if elems, ok := in.TupleElems(check); ok {
			for _, el := range elems {
				e.inferTypes(el.Type, patElem, sub)
			}
		}

	case KindTuple:
		patElems, _ := in.TupleElems(pattern)
		if elems, ok := in.TupleElems(check); ok && len(elems) == len(patElems) {
			for i := range patElems {
				e.inferTypes(elems[i].Type, patElems[i].Type, sub)
			}
		}

	case KindReadonly:
		inner, _ := in.ReadonlyInner(pattern)
		src := check
		if srcInner, ok := in.ReadonlyInner(check); ok {
			src = srcInner
		}
		e.inferTypes(src, inner, sub)
	}
}

func forEachInfer(in *Interner, pattern TypeID, fn func(TypeParamInfo)) {
	in.Walk(pattern, func(t TypeID) bool {
		if in.KindOf(t) == KindNoInfer {
			return false
		}
		if info, ok := in.InferOf(t); ok {
			fn(info)
		}
		return true
	})
}

// =============================================================================
// Mapped types
// =============================================================================

type mappedKey struct {
	name   StringID
	source TypeID
}

func (e *Evaluator) forceMapped(id TypeID, m MappedShape) TypeID {
	in := e.in
	constraint := e.Evaluate(m.Constraint)

	switch in.KindOf(constraint) {
	case KindTypeParam, KindInfer, KindKeyOf:
		return id
	}
	if constraint == ErrorType {
		return ErrorType
	}

	// Homomorphic mapped types copy optionality and readonly from the
	// source of their keyof constraint before modifiers apply.
	var homomorphic *ObjectShape
	if operand, isKeyOf := in.KeyOfOperand(m.Constraint); isKeyOf {
		if shape, isObj := in.ObjectShapeOf(e.Evaluate(operand)); isObj {
			homomorphic = shape
		}
	}

	var keys []mappedKey
	var stringIndexKeys, numberIndexKeys bool
	collect := func(k TypeID) {
		switch k {
		case StringType:
			stringIndexKeys = true
		case NumberType:
			numberIndexKeys = true
		case NeverType:
		default:
			if lit, ok := in.LiteralOf(k); ok {
				switch lit.Kind {
				case LitString:
					keys = append(keys, mappedKey{name: lit.Str, source: k})
				case LitNumber:
					keys = append(keys, mappedKey{name: in.InternString(FormatNumber(lit.Num)), source: k})
				}
			}
		}
	}
	if members, ok := in.UnionMembers(constraint); ok {
		for _, k := range members {
			collect(k)
		}
	} else {
		collect(constraint)
	}

	shape := ObjectShape{}
	bind := func(key TypeID) *Substitution {
		sub := NewSubstitution(in)
		sub.Bind(m.Param.Name, key)
		return sub
	}
	applyModifier := func(mod MappedModifier, base bool) bool {
		switch mod {
		case ModifierAdd:
			return true
		case ModifierRemove:
			return false
		}
		return base
	}

	for _, k := range keys {
		sub := bind(k.source)
		name := k.name
		if m.NameType != NoType {
			remapped := e.Evaluate(in.Instantiate(m.NameType, sub))
			if remapped == NeverType {
				continue
			}
			lit, isLit := in.LiteralOf(remapped)
			if !isLit || lit.Kind != LitString {
				continue
			}
			name = lit.Str
		}
		value := e.Evaluate(in.Instantiate(m.Template, sub))
		baseOptional, baseReadonly := false, false
		if homomorphic != nil {
			if p, ok := homomorphic.PropertyByName(k.name); ok {
				baseOptional, baseReadonly = p.Optional, p.Readonly
			}
		}
		shape.Properties = append(shape.Properties, Property{
			Name:     name,
			Type:     value,
			Optional: applyModifier(m.Optional, baseOptional),
			Readonly: applyModifier(m.Readonly, baseReadonly),
		})
	}

	if stringIndexKeys {
		value := e.Evaluate(in.Instantiate(m.Template, bind(StringType)))
		shape.StringIndex = &IndexSignature{
			Key:      StringType,
			Value:    value,
			Readonly: applyModifier(m.Readonly, false),
		}
	}
	if numberIndexKeys {
		value := e.Evaluate(in.Instantiate(m.Template, bind(NumberType)))
		shape.NumberIndex = &IndexSignature{
			Key:      NumberType,
			Value:    value,
			Readonly: applyModifier(m.Readonly, false),
		}
	}
	return in.ObjectWithIndex(shape)
}

// =============================================================================
// Template literals
// =============================================================================

func (e *Evaluator) forceTemplate(id TypeID, spans []TemplateSpan) TypeID {
	in := e.in
	expansions := []string{""}
	forced := make([]TemplateSpan, len(spans))
	expandable := true

	for i, span := range spans {
		forced[i] = span
		if span.Type == NoType {
			if expandable {
				expansions = appendText(expansions, in.StringOf(span.Text))
			}
			continue
		}
		t := e.Evaluate(span.Type)
		forced[i].Type = t
		if t == ErrorType {
			return ErrorType
		}
		if t == NeverType {
			return NeverType
		}
		if !expandable {
			continue
		}
		if span.Text != NoString {
			expansions = appendText(expansions, in.StringOf(span.Text))
		}
		texts, ok := e.literalTexts(t)
		if !ok {
			expandable = false
			continue
		}
		if len(expansions)*len(texts) > templateExpansionLimit {
			return StringType
		}
		next := make([]string, 0, len(expansions)*len(texts))
		for _, prefix := range expansions {
			for _, text := range texts {
				next = append(next, prefix+text)
			}
		}
		expansions = next
	}

	if expandable {
		members := make([]TypeID, len(expansions))
		for i, s := range expansions {
			members[i] = in.LiteralString(s)
		}
		return in.Union(members...)
	}

	// Some hole widened to string; keep the pattern with forced holes.
	return in.Template(forced)
}

func appendText(expansions []string, text string) []string {
	if text == "" {
		return expansions
	}
	out := make([]string, len(expansions))
	for i, s := range expansions {
		out[i] = s + text
	}
	return out
}

// literalTexts returns every string a type's values render to inside a
// template, when that set is finite.
func (e *Evaluator) literalTexts(t TypeID) ([]string, bool) {
	in := e.in
	if t == BooleanType {
		return []string{"false", "true"}, true
	}
	if lit, ok := in.LiteralOf(t); ok {
		switch lit.Kind {
		case LitString:
			return []string{in.StringOf(lit.Str)}, true
		case LitNumber:
			return []string{FormatNumber(lit.Num)}, true
		case LitBoolean:
			if lit.Bool {
				return []string{"true"}, true
			}
			return []string{"false"}, true
		case LitBigInt:
			text := in.StringOf(lit.Str)
			if lit.Neg {
				text = "-" + text
			}
			return []string{text}, true
		}
	}
	if members, ok := in.UnionMembers(t); ok {
		var out []string
		for _, m := range members {
			texts, finite := e.literalTexts(e.Evaluate(m))
			if !finite {
				return nil, false
			}
			out = append(out, texts...)
		}
		return out, true
	}
	return nil, false
}

// =============================================================================
// keyof
// =============================================================================

func (e *Evaluator) forceKeyOf(id, operand TypeID) TypeID {
	in := e.in
	t := e.Evaluate(operand)

	switch t {
	case ErrorType:
		return ErrorType
	case AnyType:
		return in.Union(StringType, NumberType, SymbolType)
	case NeverType:
		return in.Union(StringType, NumberType, SymbolType)
	case UnknownType:
		return NeverType
	}

	switch in.KindOf(t) {
	case KindTypeParam, KindInfer:
		return id

	case KindObject:
		shape, _ := in.ObjectShapeOf(t)
		var members []TypeID
		for _, p := range shape.Properties {
			members = append(members, in.LiteralString(in.StringOf(p.Name)))
		}
		if shape.StringIndex != nil {
			members = append(members, StringType, NumberType)
		}
		if shape.NumberIndex != nil {
			members = append(members, NumberType)
		}
		return in.Union(members...)

	case KindUnion:
		// Keys present in every branch survive.
		branches, _ := in.UnionMembers(t)
		sets := make([][]TypeID, len(branches))
		for i, b := range branches {
			sets[i] = e.keySet(e.Evaluate(in.KeyOf(b)))
		}
		common := sets[0]
		for _, set := range sets[1:] {
			common = e.intersectKeySets(common, set)
		}
		return in.Union(common...)

	case KindIntersection:
		branches, _ := in.IntersectionMembers(t)
		members := make([]TypeID, len(branches))
		for i, b := range branches {
			members[i] = e.Evaluate(in.KeyOf(b))
		}
		return in.Union(members...)

	case KindArray:
		return in.Union(NumberType, in.LiteralString("length"))

	case KindTuple:
		elems, _ := in.TupleElems(t)
		members := []TypeID{NumberType, in.LiteralString("length")}
		for i := range elems {
			members = append(members, in.LiteralString(FormatNumber(float64(i))))
		}
		return in.Union(members...)

	case KindCallable:
		cs, _ := in.CallableOf(t)
		var members []TypeID
		if cs.Shape != 0 {
			for _, p := range in.shape(cs.Shape).Properties {
				members = append(members, in.LiteralString(in.StringOf(p.Name)))
			}
		}
		return in.Union(members...)
	}

	if t == StringType {
		return in.Union(NumberType, in.LiteralString("length"))
	}
	if lit, ok := in.LiteralOf(t); ok && lit.Kind == LitString {
		return in.Union(NumberType, in.LiteralString("length"))
	}
	return NeverType
}

func (e *Evaluator) keySet(keys TypeID) []TypeID {
	if members, ok := e.in.UnionMembers(keys); ok {
		return members
	}
	if keys == NeverType {
		return nil
	}
	return []TypeID{keys}
}

// intersectKeySets keeps the keys present on both sides. A bare string or
// number key on one side admits the other side's literals of that class,
// and a string key admits number (string index signatures cover numeric
// keys too).
func (e *Evaluator) intersectKeySets(a, b []TypeID) []TypeID {
	var out []TypeID
	for _, k := range a {
		if e.keyInSet(k, b) {
			out = append(out, k)
		}
	}
	for _, k := range b {
		if !containsType(out, k) && e.keyInSet(k, a) {
			out = append(out, k)
		}
	}
	return out
}

func containsType(set []TypeID, k TypeID) bool {
	for _, m := range set {
		if m == k {
			return true
		}
	}
	return false
}

func (e *Evaluator) keyInSet(k TypeID, set []TypeID) bool {
	in := e.in
	for _, m := range set {
		if m == k {
			return true
		}
		if m == StringType {
			if k == NumberType {
				return true
			}
			if lit, ok := in.LiteralOf(k); ok && lit.Kind == LitString {
				return true
			}
		}
		if m == NumberType {
			if lit, ok := in.LiteralOf(k); ok && lit.Kind == LitNumber {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Indexed access
// =============================================================================

func (e *Evaluator) forceIndexAccess(id, obj, index TypeID) TypeID {
	in := e.in
	objT := e.Evaluate(obj)
	idxT := e.Evaluate(index)

	switch objT {
	case ErrorType:
		return ErrorType
	case AnyType:
		return AnyType
	case NeverType:
		return NeverType
	case NullType, UndefinedType, UnknownType, VoidType:
		return ErrorType
	}
	if idxT == ErrorType {
		return ErrorType
	}

	switch in.KindOf(objT) {
	case KindTypeParam, KindInfer:
		return id
	}
	switch in.KindOf(idxT) {
	case KindTypeParam, KindInfer:
		return id
	}

	// Union of keys distributes; an undefined key contributes nothing.
	if members, ok := in.UnionMembers(idxT); ok {
		parts := make([]TypeID, 0, len(members))
		for _, m := range members {
			if m == UndefinedType {
				continue
			}
			parts = append(parts, e.Evaluate(in.IndexAccess(objT, m)))
		}
		return in.Union(parts...)
	}

	// Union of objects distributes.
	if members, ok := in.UnionMembers(objT); ok {
		parts := make([]TypeID, 0, len(members))
		for _, m := range members {
			parts = append(parts, e.Evaluate(in.IndexAccess(m, idxT)))
		}
		return in.Union(parts...)
	}

	if lit, ok := in.LiteralOf(idxT); ok {
		switch lit.Kind {
		case LitString:
			return e.accessByName(objT, in.StringOf(lit.Str))
		case LitNumber:
			return e.accessByNumber(objT, lit.Num)
		}
		return ErrorType
	}

	switch idxT {
	case StringType:
		return e.accessByStringIndex(objT)
	case NumberType:
		return e.accessByNumberIndex(objT)
	case AnyType:
		return e.accessByStringIndex(objT)
	}
	return ErrorType
}

func (e *Evaluator) withIndexUndef(t TypeID) TypeID {
	if e.checker.config.NoUncheckedIndexedAccess {
		return e.in.Union(t, UndefinedType)
	}
	return t
}

func (e *Evaluator) accessByName(objT TypeID, name string) TypeID {
	in := e.in
	if shape, ok := in.ObjectShapeOf(objT); ok {
		if p, found := shape.PropertyByName(in.InternString(name)); found {
			if p.Optional {
				return in.Union(e.Evaluate(p.Type), UndefinedType)
			}
			return e.Evaluate(p.Type)
		}
		if shape.StringIndex != nil {
			return e.withIndexUndef(e.Evaluate(shape.StringIndex.Value))
		}
		return ErrorType
	}
	if cs, ok := in.CallableOf(objT); ok && cs.Shape != 0 {
		if p, found := in.shape(cs.Shape).PropertyByName(in.InternString(name)); found {
			return e.Evaluate(p.Type)
		}
		return ErrorType
	}
	if name == "length" {
		switch in.KindOf(objT) {
		case KindArray:
			return NumberType
		case KindTuple:
			elems, _ := in.TupleElems(objT)
			for _, el := range elems {
				if el.Rest || el.Optional {
					return NumberType
				}
			}
			return in.LiteralNumber(float64(len(elems)))
		}
	}
	return ErrorType
}

func (e *Evaluator) accessByNumber(objT TypeID, num float64) TypeID {
	in := e.in
	switch in.KindOf(objT) {
	case KindTuple:
		elems, _ := in.TupleElems(objT)
		idx := int(num)
		if float64(idx) != num || idx < 0 {
			return ErrorType
		}
		fixed := 0
		for _, el := range elems {
			if !el.Rest {
				fixed++
			}
		}
		if idx < fixed {
			el := elems[idx]
			t := e.Evaluate(el.Type)
			if el.Optional {
				return in.Union(t, UndefinedType)
			}
			return t
		}
		for _, el := range elems {
			if el.Rest {
				if elem, ok := in.ArrayElem(el.Type); ok {
					return e.withIndexUndef(e.Evaluate(elem))
				}
			}
		}
		return ErrorType

	case KindArray:
		elem, _ := in.ArrayElem(objT)
		return e.withIndexUndef(e.Evaluate(elem))
	}
	return e.accessByName(objT, FormatNumber(num))
}

func (e *Evaluator) accessByStringIndex(objT TypeID) TypeID {
	in := e.in
	if shape, ok := in.ObjectShapeOf(objT); ok {
		if shape.StringIndex != nil {
			return e.withIndexUndef(e.Evaluate(shape.StringIndex.Value))
		}
		var parts []TypeID
		for _, p := range shape.Properties {
			parts = append(parts, e.Evaluate(p.Type))
		}
		if shape.NumberIndex != nil {
			parts = append(parts, e.Evaluate(shape.NumberIndex.Value))
		}
		if len(parts) == 0 {
			return ErrorType
		}
		return in.Union(parts...)
	}
	return ErrorType
}

func (e *Evaluator) accessByNumberIndex(objT TypeID) TypeID {
	in := e.in
	switch in.KindOf(objT) {
	case KindArray:
		elem, _ := in.ArrayElem(objT)
		return e.withIndexUndef(e.Evaluate(elem))
	case KindTuple:
		elems, _ := in.TupleElems(objT)
		parts := make([]TypeID, 0, len(elems))
		for _, el := range elems {
			t := el.Type
			if el.Rest {
				if inner, ok := in.ArrayElem(el.Type); ok {
					t = inner
				}
			}
			parts = append(parts, e.Evaluate(t))
		}
		return e.withIndexUndef(in.Union(parts...))
	}
	if shape, ok := in.ObjectShapeOf(objT); ok {
		if shape.NumberIndex != nil {
			return e.withIndexUndef(e.Evaluate(shape.NumberIndex.Value))
		}
		if shape.StringIndex != nil {
			return e.withIndexUndef(e.Evaluate(shape.StringIndex.Value))
		}
		var parts []TypeID
		for _, p := range shape.Properties {
			if isNumericName(in.StringOf(p.Name)) {
				parts = append(parts, e.Evaluate(p.Type))
			}
		}
		if len(parts) == 0 {
			return ErrorType
		}
		return e.withIndexUndef(in.Union(parts...))
	}
	return ErrorType
}

// =============================================================================
// String intrinsics
// =============================================================================

func (e *Evaluator) forceStringIntrinsic(id TypeID, kind StringIntrinsicKind, operand TypeID) TypeID {
	in := e.in
	t := e.Evaluate(operand)

	switch t {
	case ErrorType:
		return ErrorType
	case NeverType:
		return NeverType
	case StringType, AnyType:
		return StringType
	}

	if lit, ok := in.LiteralOf(t); ok && lit.Kind == LitString {
		return in.LiteralString(applyStringIntrinsic(kind, in.StringOf(lit.Str)))
	}
	if members, ok := in.UnionMembers(t); ok {
		parts := make([]TypeID, len(members))
		for i, m := range members {
			parts[i] = e.Evaluate(in.StringIntrinsic(kind, m))
		}
		return in.Union(parts...)
	}
	switch in.KindOf(t) {
	case KindTypeParam, KindInfer, KindTemplate:
		if t == operand {
			return id
		}
		return in.StringIntrinsic(kind, t)
	}
	return ErrorType
}

func applyStringIntrinsic(kind StringIntrinsicKind, s string) string {
	switch kind {
	case StringUppercase:
		return strings.ToUpper(s)
	case StringLowercase:
		return strings.ToLower(s)
	case StringCapitalize:
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	case StringUncapitalize:
		if s == "" {
			return s
		}
		return strings.ToLower(s[:1]) + s[1:]
	}
	return s
}
