package typesystem

import (
	"strconv"
	"strings"
)

// structural applies the kind-directed rules after the fast paths have
// passed. Rule order matters: union sources decompose before anything
// looks at the target, and a constrained type parameter stands in for its
// constraint before union targets try member matching.
func (c *Checker) structural(source, target TypeID, wantReason bool, depth int) (bool, *Failure) {
	in := c.in
	sk := in.KindOf(source)
	tk := in.KindOf(target)

	if source == UndefinedType && target == VoidType {
		return true, nil
	}

	// A union source must fit the target member by member.
	if sk == KindUnion {
		members, _ := in.UnionMembers(source)
		for _, m := range members {
			ok, nested := c.check(m, target, wantReason, depth+1)
			if !ok {
				f := failure(FailTypeMismatch, source, target)
				f.Nested = orMismatch(nested, m, target)
				return false, f
			}
		}
		return true, nil
	}

	// A constrained type parameter stands in for its constraint.
	if sk == KindTypeParam || sk == KindInfer {
		info, _ := in.TypeParamOf(source)
		if sk == KindInfer {
			info, _ = in.InferOf(source)
		}
		if info.Constraint != NoType {
			return c.check(info.Constraint, target, wantReason, depth+1)
		}
		return false, failure(FailTypeMismatch, source, target)
	}

	// An intersection target requires the source to satisfy every member.
	if tk == KindIntersection {
		members, _ := in.IntersectionMembers(target)
		for _, m := range members {
			ok, nested := c.check(source, m, wantReason, depth+1)
			if !ok {
				f := failure(FailIntersectionMemberFails, source, target)
				f.Nested = orMismatch(nested, source, m)
				return false, f
			}
		}
		return true, nil
	}

	// A union target accepts the source if any member does.
	if tk == KindUnion {
		members, _ := in.UnionMembers(target)
		for _, m := range members {
			if ok, _ := c.check(source, m, false, depth+1); ok {
				return true, nil
			}
		}
		return false, failure(FailNoUnionMemberMatches, source, target)
	}

	// An intersection source fits if any member does. All-object
	// intersections were already merged at construction, so member
	// matching is complete here.
	if sk == KindIntersection {
		members, _ := in.IntersectionMembers(source)
		for _, m := range members {
			if ok, _ := c.check(m, target, false, depth+1); ok {
				return true, nil
			}
		}
		return false, failure(FailTypeMismatch, source, target)
	}

	// Readonly and no-infer wrappers.
	if tk == KindNoInfer {
		inner, _ := in.NoInferInner(target)
		return c.check(source, inner, wantReason, depth+1)
	}
	if sk == KindNoInfer {
		inner, _ := in.NoInferInner(source)
		return c.check(inner, target, wantReason, depth+1)
	}
	if tk == KindReadonly {
		inner, _ := in.ReadonlyInner(target)
		src := source
		if sk == KindReadonly {
			src, _ = in.ReadonlyInner(source)
		}
		return c.check(src, inner, wantReason, depth+1)
	}
	if sk == KindReadonly {
		// Dropping readonly is only allowed when the target has no
		// mutation surface to betray it.
		if tk == KindArray || tk == KindTuple {
			return false, failure(FailReadonlyPropertyMismatch, source, target)
		}
		inner, _ := in.ReadonlyInner(source)
		return c.check(inner, target, wantReason, depth+1)
	}

	// Literal widening and primitive membership.
	if sk == KindLiteral {
		if target == c.literalBase(source) {
			return true, nil
		}
		if tk == KindTemplate {
			lit, _ := in.LiteralOf(source)
			if lit.Kind == LitString {
				spans, _ := in.TemplateSpans(target)
				if c.templateAccepts(spans, in.StringOf(lit.Str)) {
					return true, nil
				}
			}
			return false, failure(FailLiteralMismatch, source, target)
		}
	}
	if sk == KindTemplate && target == StringType {
		return true, nil
	}
	if sk == KindUniqueSymbol && target == SymbolType {
		return true, nil
	}

	// The empty object shape admits everything with structure, which is
	// every type except the nullish ones and bare unknown.
	if tk == KindObject {
		shape, _ := in.ObjectShapeOf(target)
		if len(shape.Properties) == 0 && shape.StringIndex == nil && shape.NumberIndex == nil {
			switch source {
			case NullType, UndefinedType, VoidType, UnknownType:
				return false, failure(FailTypeMismatch, source, target)
			}
			return true, nil
		}
	}
	if target == ObjectKeyword {
		if in.IsObjectLike(source) || source == ObjectKeyword {
			return true, nil
		}
		return false, failure(FailTypeMismatch, source, target)
	}

	switch tk {
	case KindObject:
		shape, _ := in.ObjectShapeOf(target)
		return c.checkObjectTarget(source, target, shape, wantReason, depth)

	case KindArray:
		tgtElem, _ := in.ArrayElem(target)
		switch sk {
		case KindArray:
			srcElem, _ := in.ArrayElem(source)
			ok, nested := c.check(srcElem, tgtElem, wantReason, depth+1)
			if !ok {
				f := failure(FailArrayElementMismatch, srcElem, tgtElem)
				f.Nested = nested
				return false, f
			}
			return true, nil
		case KindTuple:
			elems, _ := in.TupleElems(source)
			for i, e := range elems {
				et := e.Type
				if e.Rest {
					et = c.restElem(et)
				}
				ok, nested := c.check(et, tgtElem, wantReason, depth+1)
				if !ok {
					f := failure(FailTupleElementMismatch, source, target)
					f.Index = i
					f.Nested = orMismatch(nested, et, tgtElem)
					return false, f
				}
			}
			return true, nil
		}
		return false, failure(FailTypeMismatch, source, target)

	case KindTuple:
		return c.checkTupleTarget(source, target, wantReason, depth)

	case KindFunction, KindCallable:
		return c.checkCallableTarget(source, target, wantReason, depth)

	case KindTemplate:
		return false, failure(FailTypeMismatch, source, target)
	}

	return false, failure(mismatchCode(sk, tk), source, target)
}

func mismatchCode(sk, tk Kind) FailureCode {
	if sk == KindIntrinsic && tk == KindIntrinsic {
		return FailIntrinsicMismatch
	}
	if sk == KindLiteral && tk == KindLiteral {
		return FailLiteralMismatch
	}
	return FailTypeMismatch
}

func orMismatch(nested *Failure, source, target TypeID) *Failure {
	if nested != nil {
		return nested
	}
	return failure(FailTypeMismatch, source, target)
}

// literalBase returns the primitive a literal widens to.
func (c *Checker) literalBase(id TypeID) TypeID {
	lit, ok := c.in.LiteralOf(id)
	if !ok {
		return NoType
	}
	switch lit.Kind {
	case LitString:
		return StringType
	case LitNumber:
		return NumberType
	case LitBoolean:
		return BooleanType
	case LitBigInt:
		return BigIntType
	}
	return NoType
}

// restElem unwraps the element type of a rest slot, which stores its
// array type.
func (c *Checker) restElem(t TypeID) TypeID {
	if elem, ok := c.in.ArrayElem(t); ok {
		return elem
	}
	if inner, ok := c.in.ReadonlyInner(t); ok {
		if elem, ok := c.in.ArrayElem(inner); ok {
			return elem
		}
	}
	return AnyType
}

// =============================================================================
// Object targets
// =============================================================================

func isWeakShape(shape *ObjectShape) bool {
	if len(shape.Properties) == 0 || shape.StringIndex != nil || shape.NumberIndex != nil {
		return false
	}
	for _, p := range shape.Properties {
		if !p.Optional {
			return false
		}
	}
	return true
}

// propertyForCompat finds the source-side property visible to
// assignability, including the apparent members of arrays, tuples,
// strings and hybrid callables.
func (c *Checker) propertyForCompat(source TypeID, name StringID) (Property, bool) {
	in := c.in
	if shape, ok := in.ObjectShapeOf(source); ok {
		p, ok := shape.PropertyByName(name)
		return p, ok
	}
	if cs, ok := in.CallableOf(source); ok && cs.Shape != 0 {
		p, ok := in.shape(cs.Shape).PropertyByName(name)
		return p, ok
	}
	if in.StringOf(name) == "length" {
		switch in.KindOf(source) {
		case KindArray:
			return Property{Name: name, Type: NumberType, WriteType: NumberType}, true
		case KindTuple:
			elems, _ := in.TupleElems(source)
			fixed := true
			for _, e := range elems {
				if e.Rest || e.Optional {
					fixed = false
					break
				}
			}
			t := NumberType
			if fixed {
				t = in.LiteralNumber(float64(len(elems)))
			}
			return Property{Name: name, Type: t, WriteType: t, Readonly: true}, true
		}
		if source == StringType {
			return Property{Name: name, Type: NumberType, WriteType: NumberType, Readonly: true}, true
		}
		if lit, ok := in.LiteralOf(source); ok && lit.Kind == LitString {
			return Property{Name: name, Type: NumberType, WriteType: NumberType, Readonly: true}, true
		}
	}
	return Property{}, false
}

func (c *Checker) checkObjectTarget(source, target TypeID, tgtShape *ObjectShape, wantReason bool, depth int) (bool, *Failure) {
	in := c.in
	srcShape, srcIsObject := in.ObjectShapeOf(source)

	// Weak-type rule: a target of nothing but optional properties still
	// demands at least one property in common.
	if srcIsObject && len(srcShape.Properties) > 0 && isWeakShape(tgtShape) {
		overlap := false
		for _, sp := range srcShape.Properties {
			if _, ok := tgtShape.PropertyByName(sp.Name); ok {
				overlap = true
				break
			}
		}
		if !overlap {
			return false, failure(FailWeakTypeNoOverlap, source, target)
		}
	}

	// Excess properties are rejected only while the literal is fresh; the
	// same value through a widened alias passes.
	if srcIsObject && srcShape.Flags&FlagFreshLiteral != 0 &&
		tgtShape.StringIndex == nil && tgtShape.NumberIndex == nil {
		for _, sp := range srcShape.Properties {
			if _, ok := tgtShape.PropertyByName(sp.Name); !ok {
				f := failure(FailExcessProperty, source, target)
				f.Property = sp.Name
				return false, f
			}
		}
	}

	for _, tp := range tgtShape.Properties {
		sp, ok := c.propertyForCompat(source, tp.Name)
		if !ok {
			if tp.Optional {
				continue
			}
			f := failure(FailMissingProperty, source, target)
			f.Property = tp.Name
			return false, f
		}
		if sp.Optional && !tp.Optional && c.config.StrictNullChecks {
			f := failure(FailOptionalPropertyRequired, source, target)
			f.Property = tp.Name
			return false, f
		}
		if sp.Readonly && !tp.Readonly && !sp.Method {
			f := failure(FailReadonlyPropertyMismatch, source, target)
			f.Property = tp.Name
			return false, f
		}
		effTgt := tp.Type
		if tp.Optional && !c.config.ExactOptionalPropertyTypes {
			effTgt = in.Union(tp.Type, UndefinedType)
		}
		ok, nested := c.check(sp.Type, effTgt, wantReason, depth+1)
		if !ok {
			f := failure(FailPropertyTypeMismatch, source, target)
			f.Property = tp.Name
			f.Nested = orMismatch(nested, sp.Type, effTgt)
			return false, f
		}
	}

	if fail := c.checkIndexTargets(source, target, srcShape, srcIsObject, tgtShape, wantReason, depth); fail != nil {
		return false, fail
	}
	return true, nil
}

func (c *Checker) checkIndexTargets(source, target TypeID, srcShape *ObjectShape, srcIsObject bool, tgtShape *ObjectShape, wantReason bool, depth int) *Failure {
	in := c.in

	indexFail := func(kind string, nested *Failure) *Failure {
		f := failure(FailIndexSignatureMismatch, source, target)
		f.Property = in.InternString(kind)
		f.Nested = nested
		return f
	}

	if tsig := tgtShape.StringIndex; tsig != nil {
		switch {
		case srcIsObject && srcShape.StringIndex != nil:
			ok, nested := c.check(srcShape.StringIndex.Value, tsig.Value, wantReason, depth+1)
			if !ok {
				return indexFail("string", nested)
			}
		case srcIsObject:
			for _, sp := range srcShape.Properties {
				ok, nested := c.check(sp.Type, tsig.Value, wantReason, depth+1)
				if !ok {
					return indexFail("string", orMismatch(nested, sp.Type, tsig.Value))
				}
			}
		default:
			return indexFail("string", nil)
		}
	}

	if tsig := tgtShape.NumberIndex; tsig != nil {
		switch {
		case srcIsObject && srcShape.NumberIndex != nil:
			ok, nested := c.check(srcShape.NumberIndex.Value, tsig.Value, wantReason, depth+1)
			if !ok {
				return indexFail("number", nested)
			}
		case srcIsObject:
			for _, sp := range srcShape.Properties {
				if !isNumericName(in.StringOf(sp.Name)) {
					continue
				}
				ok, nested := c.check(sp.Type, tsig.Value, wantReason, depth+1)
				if !ok {
					return indexFail("number", orMismatch(nested, sp.Type, tsig.Value))
				}
			}
		case in.KindOf(source) == KindArray:
			elem, _ := in.ArrayElem(source)
			ok, nested := c.check(elem, tsig.Value, wantReason, depth+1)
			if !ok {
				return indexFail("number", orMismatch(nested, elem, tsig.Value))
			}
		case in.KindOf(source) == KindTuple:
			elems, _ := in.TupleElems(source)
			for _, e := range elems {
				et := e.Type
				if e.Rest {
					et = c.restElem(et)
				}
				ok, nested := c.check(et, tsig.Value, wantReason, depth+1)
				if !ok {
					return indexFail("number", orMismatch(nested, et, tsig.Value))
				}
			}
		default:
			return indexFail("number", nil)
		}
	}
	return nil
}

func isNumericName(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseNumericName(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// =============================================================================
// Tuple targets
// =============================================================================

func tupleArity(elems []TupleElement) (required, fixed int, hasRest bool) {
	for _, e := range elems {
		if e.Rest {
			hasRest = true
			continue
		}
		fixed++
		if !e.Optional {
			required++
		}
	}
	return required, fixed, hasRest
}

func (c *Checker) checkTupleTarget(source, target TypeID, wantReason bool, depth int) (bool, *Failure) {
	in := c.in
	tgtElems, _ := in.TupleElems(target)
	tgtRequired, tgtFixed, tgtHasRest := tupleArity(tgtElems)

	if in.KindOf(source) == KindArray {
		// An array only fits a tuple that is a pure rest pattern.
		if tgtHasRest && tgtFixed == 0 && len(tgtElems) == 1 {
			srcElem, _ := in.ArrayElem(source)
			ok, nested := c.check(srcElem, c.restElem(tgtElems[0].Type), wantReason, depth+1)
			if !ok {
				f := failure(FailTupleElementMismatch, source, target)
				f.Nested = nested
				return false, f
			}
			return true, nil
		}
		return false, failure(FailTypeMismatch, source, target)
	}

	srcElems, ok := in.TupleElems(source)
	if !ok {
		return false, failure(FailTypeMismatch, source, target)
	}
	srcRequired, srcFixed, srcHasRest := tupleArity(srcElems)

	if !tgtHasRest {
		if srcHasRest {
			f := failure(FailTupleLengthMismatch, source, target)
			f.Index = srcFixed
			f.Count = tgtFixed
			return false, f
		}
		if srcRequired < tgtRequired || srcFixed > tgtFixed {
			f := failure(FailTupleLengthMismatch, source, target)
			f.Index = srcFixed
			f.Count = tgtRequired
			return false, f
		}
	} else if srcRequired < tgtRequired {
		f := failure(FailTupleLengthMismatch, source, target)
		f.Index = srcFixed
		f.Count = tgtRequired
		return false, f
	}

	tgtRest := NoType
	if tgtHasRest {
		tgtRest = c.restElem(tgtElems[len(tgtElems)-1].Type)
	}

	for i, se := range srcElems {
		var tgtType TypeID
		switch {
		case i < tgtFixed:
			tgtType = tgtElems[i].Type
		case tgtHasRest:
			tgtType = tgtRest
		default:
			tgtType = NoType
		}
		if tgtType == NoType {
			continue
		}
		srcType := se.Type
		if se.Rest {
			srcType = c.restElem(srcType)
			if !tgtHasRest {
				continue
			}
			tgtType = tgtRest
		}
		ok, nested := c.check(srcType, tgtType, wantReason, depth+1)
		if !ok {
			f := failure(FailTupleElementMismatch, source, target)
			f.Index = i
			f.Nested = orMismatch(nested, srcType, tgtType)
			return false, f
		}
	}
	return true, nil
}

// =============================================================================
// Callable targets
// =============================================================================

// callParts splits a callable-like type into its call signatures,
// construct signatures and hybrid shape.
func (c *Checker) callParts(id TypeID) (calls, constructs []FuncID, shape ShapeID, ok bool) {
	in := c.in
	if f, isFn := in.FunctionOf(id); isFn {
		key := in.keyOf(id)
		if f.Constructor {
			return nil, []FuncID{FuncID(key.x)}, 0, true
		}
		return []FuncID{FuncID(key.x)}, nil, 0, true
	}
	if cs, isC := in.CallableOf(id); isC {
		return cs.CallSignatures, cs.ConstructSignatures, cs.Shape, true
	}
	return nil, nil, 0, false
}

func (c *Checker) checkCallableTarget(source, target TypeID, wantReason bool, depth int) (bool, *Failure) {
	in := c.in
	tgtCalls, tgtConstructs, tgtShape, _ := c.callParts(target)
	srcCalls, srcConstructs, _, srcOK := c.callParts(source)
	if !srcOK {
		return false, failure(FailTypeMismatch, source, target)
	}

	matchSome := func(tgtSig FuncID, pool []FuncID) (bool, *Failure) {
		var firstFail *Failure
		for _, srcSig := range pool {
			ok, fail := c.signatureAssignable(in.funcShape(srcSig), in.funcShape(tgtSig), wantReason, depth)
			if ok {
				return true, nil
			}
			if firstFail == nil {
				firstFail = fail
			}
		}
		return false, firstFail
	}

	for _, tgtSig := range tgtCalls {
		ok, fail := matchSome(tgtSig, srcCalls)
		if !ok {
			f := failure(FailTypeMismatch, source, target)
			f.Nested = fail
			return false, f
		}
	}
	for _, tgtSig := range tgtConstructs {
		ok, fail := matchSome(tgtSig, srcConstructs)
		if !ok {
			f := failure(FailTypeMismatch, source, target)
			f.Nested = fail
			return false, f
		}
	}
	if tgtShape != 0 {
		return c.checkObjectTarget(source, target, in.shape(tgtShape), wantReason, depth)
	}
	return true, nil
}

func paramAt(f *FunctionShape, i int, elem func(TypeID) TypeID) TypeID {
	if i < len(f.Params) {
		p := f.Params[i]
		if p.Rest {
			return elem(p.Type)
		}
		return p.Type
	}
	if n := len(f.Params); n > 0 && f.Params[n-1].Rest {
		return elem(f.Params[n-1].Type)
	}
	return NoType
}

// signatureAssignable relates two signatures: parameters contravariantly
// (bivariantly for methods or when strict function types is off), this
// contravariantly, returns covariantly with void targets absorbing any
// return.
func (c *Checker) signatureAssignable(srcF, tgtF *FunctionShape, wantReason bool, depth int) (bool, *Failure) {
	srcMin := srcF.MinArity()
	tgtTotal := len(tgtF.Params)
	if !tgtF.HasRest() && srcMin > tgtTotal {
		f := &Failure{Code: FailTooManyParameters, Index: srcMin, Count: tgtTotal}
		return false, f
	}

	bivariant := !c.config.StrictFunctionTypes || srcF.Method || tgtF.Method
	paramOK := func(srcT, tgtT TypeID) bool {
		if ok, _ := c.check(tgtT, srcT, false, depth+1); ok {
			return true
		}
		if bivariant {
			ok, _ := c.check(srcT, tgtT, false, depth+1)
			return ok
		}
		return false
	}

	for i := range tgtF.Params {
		tgtP := tgtF.Params[i]
		if tgtP.Rest {
			tgtRest := c.restElem(tgtP.Type)
			for j := i; j < len(srcF.Params); j++ {
				srcT := srcF.Params[j].Type
				if srcF.Params[j].Rest {
					srcT = c.restElem(srcT)
				}
				if !paramOK(srcT, tgtRest) {
					f := &Failure{Code: FailParameterTypeMismatch, Source: srcT, Target: tgtRest, Index: j}
					return false, f
				}
			}
			break
		}
		srcT := paramAt(srcF, i, c.restElem)
		if srcT == NoType {
			continue
		}
		if !paramOK(srcT, tgtP.Type) {
			f := &Failure{Code: FailParameterTypeMismatch, Source: srcT, Target: tgtP.Type, Index: i}
			return false, f
		}
	}

	if srcF.This != NoType && tgtF.This != NoType {
		if ok, _ := c.check(tgtF.This, srcF.This, false, depth+1); !ok {
			return false, failure(FailParameterTypeMismatch, srcF.This, tgtF.This)
		}
	}

	if tgtF.Predicate != nil {
		if srcF.Predicate == nil {
			return false, failure(FailReturnTypeMismatch, srcF.Return, tgtF.Return)
		}
		ok, nested := c.check(srcF.Predicate.Type, tgtF.Predicate.Type, wantReason, depth+1)
		if !ok {
			f := failure(FailReturnTypeMismatch, srcF.Predicate.Type, tgtF.Predicate.Type)
			f.Nested = nested
			return false, f
		}
		return true, nil
	}

	if tgtF.Return == VoidType {
		return true, nil
	}
	srcRet := srcF.Return
	if srcF.Predicate != nil {
		srcRet = BooleanType
	}
	ok, nested := c.check(srcRet, tgtF.Return, wantReason, depth+1)
	if !ok {
		f := failure(FailReturnTypeMismatch, srcRet, tgtF.Return)
		f.Nested = orMismatch(nested, srcRet, tgtF.Return)
		return false, f
	}
	return true, nil
}

// =============================================================================
// Template-literal matching
// =============================================================================

// templateAccepts reports whether text matches the template pattern.
// Holes are matched by backtracking over split points; a string hole
// accepts anything including the empty string, a number hole accepts a
// numeric rendering, and literal or union holes accept their members.
func (c *Checker) templateAccepts(spans []TemplateSpan, text string) bool {
	var match func(spanIdx, pos int) bool
	match = func(spanIdx, pos int) bool {
		if spanIdx == len(spans) {
			return pos == len(text)
		}
		span := spans[spanIdx]
		if span.Text != NoString {
			lit := c.in.StringOf(span.Text)
			if !strings.HasPrefix(text[pos:], lit) {
				return false
			}
			pos += len(lit)
		}
		if span.Type == NoType {
			return match(spanIdx+1, pos)
		}
		for l := 0; l <= len(text)-pos; l++ {
			if c.holeAccepts(span.Type, text[pos:pos+l]) && match(spanIdx+1, pos+l) {
				return true
			}
		}
		return false
	}
	return match(0, 0)
}

func (c *Checker) holeAccepts(hole TypeID, text string) bool {
	in := c.in
	switch hole {
	case StringType, AnyType:
		return true
	case NumberType:
		return isNumericName(text)
	case BigIntType:
		if text == "" {
			return false
		}
		body := strings.TrimPrefix(text, "-")
		if body == "" {
			return false
		}
		for _, r := range body {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}
	if lit, ok := in.LiteralOf(hole); ok {
		switch lit.Kind {
		case LitString:
			return in.StringOf(lit.Str) == text
		case LitNumber:
			return FormatNumber(lit.Num) == text
		case LitBoolean:
			if lit.Bool {
				return text == "true"
			}
			return text == "false"
		}
		return false
	}
	if members, ok := in.UnionMembers(hole); ok {
		for _, m := range members {
			if c.holeAccepts(m, text) {
				return true
			}
		}
		return false
	}
	if spans, ok := in.TemplateSpans(hole); ok {
		return c.templateAccepts(spans, text)
	}
	return false
}
