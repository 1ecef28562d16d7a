package typesystem

import (
	"math"
	"sort"
)

// Classification is the only supported way to look inside a handle. Every
// accessor follows the comma-ok shape: the zero value plus false when the
// handle is some other kind. Callers switch on KindOf first and then pull
// the payload they need; nothing outside this package sees typeKey.

// KindOf reports the structural kind of a handle.
func (in *Interner) KindOf(id TypeID) Kind {
	return in.keyOf(id).kind
}

// IntrinsicOf returns which intrinsic an intrinsic handle is.
func (in *Interner) IntrinsicOf(id TypeID) (Intrinsic, bool) {
	key := in.keyOf(id)
	if key.kind != KindIntrinsic {
		return IntrinsicInvalid, false
	}
	return Intrinsic(key.x), true
}

// LiteralOf returns the value of a literal handle.
func (in *Interner) LiteralOf(id TypeID) (LiteralValue, bool) {
	key := in.keyOf(id)
	if key.kind != KindLiteral {
		return LiteralValue{}, false
	}
	switch LiteralKind(key.x) {
	case LitString:
		return LiteralValue{Kind: LitString, Str: StringID(key.y)}, true
	case LitNumber:
		bits := uint64(key.y)<<32 | uint64(key.z)
		return LiteralValue{Kind: LitNumber, Num: math.Float64frombits(bits)}, true
	case LitBoolean:
		return LiteralValue{Kind: LitBoolean, Bool: key.y == 1}, true
	case LitBigInt:
		return LiteralValue{Kind: LitBigInt, Str: StringID(key.y), Neg: key.z == 1}, true
	}
	return LiteralValue{}, false
}

// UnionMembers returns the canonical member list of a union handle. The
// returned slice is shared storage; callers must not mutate it.
func (in *Interner) UnionMembers(id TypeID) ([]TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindUnion {
		return nil, false
	}
	return in.list(ListID(key.x)), true
}

// IntersectionMembers returns the canonical member list of an intersection.
func (in *Interner) IntersectionMembers(id TypeID) ([]TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindIntersection {
		return nil, false
	}
	return in.list(ListID(key.x)), true
}

// ObjectShapeOf returns the shape of an object handle.
func (in *Interner) ObjectShapeOf(id TypeID) (*ObjectShape, bool) {
	key := in.keyOf(id)
	if key.kind != KindObject {
		return nil, false
	}
	return in.shape(ShapeID(key.x)), true
}

// ArrayElem returns the element type of an array handle.
func (in *Interner) ArrayElem(id TypeID) (TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindArray {
		return NoType, false
	}
	return TypeID(key.x), true
}

// TupleElems returns the ordered elements of a tuple handle.
func (in *Interner) TupleElems(id TypeID) ([]TupleElement, bool) {
	key := in.keyOf(id)
	if key.kind != KindTuple {
		return nil, false
	}
	return in.tupleList(TupleListID(key.x)), true
}

// FunctionOf returns the signature of a single-signature callable.
func (in *Interner) FunctionOf(id TypeID) (*FunctionShape, bool) {
	key := in.keyOf(id)
	if key.kind != KindFunction {
		return nil, false
	}
	return in.funcShape(FuncID(key.x)), true
}

// CallableOf returns the signature set of an overloaded callable.
func (in *Interner) CallableOf(id TypeID) (*CallableShape, bool) {
	key := in.keyOf(id)
	if key.kind != KindCallable {
		return nil, false
	}
	return in.callableShape(CallableID(key.x)), true
}

// Signature resolves a FuncID stored inside a callable shape.
func (in *Interner) Signature(id FuncID) *FunctionShape {
	return in.funcShape(id)
}

// TypeParamOf returns the declaration info behind a type-parameter handle.
func (in *Interner) TypeParamOf(id TypeID) (TypeParamInfo, bool) {
	key := in.keyOf(id)
	if key.kind != KindTypeParam {
		return TypeParamInfo{}, false
	}
	return in.paramInfo(ParamID(key.x)), true
}

// InferOf returns the declaration info behind an infer placeholder.
func (in *Interner) InferOf(id TypeID) (TypeParamInfo, bool) {
	key := in.keyOf(id)
	if key.kind != KindInfer {
		return TypeParamInfo{}, false
	}
	return in.paramInfo(ParamID(key.x)), true
}

// LazyDef returns the definition a lazy reference points at.
func (in *Interner) LazyDef(id TypeID) (DefID, bool) {
	key := in.keyOf(id)
	if key.kind != KindLazy {
		return NoDef, false
	}
	return DefID(key.x), true
}

// TypeQueryDef returns the definition a typeof query points at.
func (in *Interner) TypeQueryDef(id TypeID) (DefID, bool) {
	key := in.keyOf(id)
	if key.kind != KindTypeQuery {
		return NoDef, false
	}
	return DefID(key.x), true
}

// UniqueSymbolDef returns the declaration a unique symbol is tied to.
func (in *Interner) UniqueSymbolDef(id TypeID) (DefID, bool) {
	key := in.keyOf(id)
	if key.kind != KindUniqueSymbol {
		return NoDef, false
	}
	return DefID(key.x), true
}

// NamespaceDef returns the definition behind a namespace handle.
func (in *Interner) NamespaceDef(id TypeID) (DefID, bool) {
	key := in.keyOf(id)
	if key.kind != KindNamespace {
		return NoDef, false
	}
	return DefID(key.x), true
}

// ApplicationOf returns the base and argument list of a generic
// application handle.
func (in *Interner) ApplicationOf(id TypeID) (TypeID, []TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindApplication {
		return NoType, nil, false
	}
	return TypeID(key.x), in.list(ListID(key.y)), true
}

// ConditionalOf returns the parts of a conditional handle.
func (in *Interner) ConditionalOf(id TypeID) (Conditional, bool) {
	key := in.keyOf(id)
	if key.kind != KindConditional {
		return Conditional{}, false
	}
	return in.cond(CondID(key.x)), true
}

// MappedOf returns the parts of a mapped handle.
func (in *Interner) MappedOf(id TypeID) (MappedShape, bool) {
	key := in.keyOf(id)
	if key.kind != KindMapped {
		return MappedShape{}, false
	}
	return in.mapped(MappedID(key.x)), true
}

// TemplateSpans returns the span list of a template-literal handle.
func (in *Interner) TemplateSpans(id TypeID) ([]TemplateSpan, bool) {
	key := in.keyOf(id)
	if key.kind != KindTemplate {
		return nil, false
	}
	return in.spanList(SpanListID(key.x)), true
}

// KeyOfOperand returns the operand of a keyof handle.
func (in *Interner) KeyOfOperand(id TypeID) (TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindKeyOf {
		return NoType, false
	}
	return TypeID(key.x), true
}

// IndexAccessOf returns the object and index of an indexed-access handle.
func (in *Interner) IndexAccessOf(id TypeID) (TypeID, TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindIndexAccess {
		return NoType, NoType, false
	}
	return TypeID(key.x), TypeID(key.y), true
}

// ReadonlyInner returns the type under a readonly wrapper.
func (in *Interner) ReadonlyInner(id TypeID) (TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindReadonly {
		return NoType, false
	}
	return TypeID(key.x), true
}

// NoInferInner returns the type under a no-infer wrapper.
func (in *Interner) NoInferInner(id TypeID) (TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindNoInfer {
		return NoType, false
	}
	return TypeID(key.x), true
}

// StringIntrinsicOf returns the operation and operand of a string
// intrinsic handle.
func (in *Interner) StringIntrinsicOf(id TypeID) (StringIntrinsicKind, TypeID, bool) {
	key := in.keyOf(id)
	if key.kind != KindStringIntrinsic {
		return 0, NoType, false
	}
	return StringIntrinsicKind(key.x), TypeID(key.y), true
}

// =============================================================================
// Predicates
// =============================================================================

// IsLiteral reports whether the handle is a literal type.
func (in *Interner) IsLiteral(id TypeID) bool {
	return in.keyOf(id).kind == KindLiteral
}

// IsFreshLiteral reports whether the handle is an object literal type that
// has not yet been widened.
func (in *Interner) IsFreshLiteral(id TypeID) bool {
	shape, ok := in.ObjectShapeOf(id)
	return ok && shape.Flags&FlagFreshLiteral != 0
}

// IsUnit reports whether the handle denotes exactly one runtime value.
func (in *Interner) IsUnit(id TypeID) bool {
	switch id {
	case NullType, UndefinedType, VoidType:
		return true
	}
	switch in.keyOf(id).kind {
	case KindLiteral, KindUniqueSymbol:
		return true
	}
	return false
}

// IsPrimitive reports whether the handle is one of the primitive keyword
// types.
func (in *Interner) IsPrimitive(id TypeID) bool {
	switch id {
	case StringType, NumberType, BooleanType, BigIntType, SymbolType,
		NullType, UndefinedType, VoidType:
		return true
	}
	return false
}

// IsObjectLike reports whether the handle has object structure a property
// access could succeed on.
func (in *Interner) IsObjectLike(id TypeID) bool {
	switch in.keyOf(id).kind {
	case KindObject, KindArray, KindTuple, KindFunction, KindCallable, KindNamespace:
		return true
	}
	return false
}

// ContainsUndefined reports whether undefined inhabits the type directly
// or as a union member.
func (in *Interner) ContainsUndefined(id TypeID) bool {
	if id == UndefinedType || id == VoidType {
		return true
	}
	if members, ok := in.UnionMembers(id); ok {
		for _, m := range members {
			if m == UndefinedType || m == VoidType {
				return true
			}
		}
	}
	return false
}

// =============================================================================
// Traversal
// =============================================================================

// children appends the immediate structural children of id to dst. Lazy
// references, type queries and unique symbols have no children; their
// definitions are outside the graph.
func (in *Interner) children(id TypeID, dst []TypeID) []TypeID {
	key := in.keyOf(id)
	switch key.kind {
	case KindUnion, KindIntersection:
		dst = append(dst, in.list(ListID(key.x))...)
	case KindObject:
		shape := in.shape(ShapeID(key.x))
		for _, p := range shape.Properties {
			dst = append(dst, p.Type)
			if p.WriteType != p.Type {
				dst = append(dst, p.WriteType)
			}
		}
		if shape.StringIndex != nil {
			dst = append(dst, shape.StringIndex.Key, shape.StringIndex.Value)
		}
		if shape.NumberIndex != nil {
			dst = append(dst, shape.NumberIndex.Key, shape.NumberIndex.Value)
		}
	case KindArray, KindKeyOf, KindReadonly, KindNoInfer:
		dst = append(dst, TypeID(key.x))
	case KindTuple:
		for _, e := range in.tupleList(TupleListID(key.x)) {
			dst = append(dst, e.Type)
		}
	case KindFunction:
		dst = in.funcChildren(FuncID(key.x), dst)
	case KindCallable:
		c := in.callableShape(CallableID(key.x))
		for _, f := range c.CallSignatures {
			dst = in.funcChildren(f, dst)
		}
		for _, f := range c.ConstructSignatures {
			dst = in.funcChildren(f, dst)
		}
	case KindTypeParam, KindInfer:
		info := in.paramInfo(ParamID(key.x))
		if info.Constraint != NoType {
			dst = append(dst, info.Constraint)
		}
		if info.Default != NoType {
			dst = append(dst, info.Default)
		}
	case KindApplication:
		dst = append(dst, TypeID(key.x))
		dst = append(dst, in.list(ListID(key.y))...)
	case KindConditional:
		c := in.cond(CondID(key.x))
		dst = append(dst, c.Check, c.Extends, c.True, c.False)
	case KindMapped:
		m := in.mapped(MappedID(key.x))
		dst = append(dst, m.Constraint, m.Template)
		if m.NameType != NoType {
			dst = append(dst, m.NameType)
		}
	case KindTemplate:
		for _, s := range in.spanList(SpanListID(key.x)) {
			if s.Type != NoType {
				dst = append(dst, s.Type)
			}
		}
	case KindIndexAccess:
		dst = append(dst, TypeID(key.x), TypeID(key.y))
	case KindStringIntrinsic:
		dst = append(dst, TypeID(key.y))
	}
	return dst
}

func (in *Interner) funcChildren(id FuncID, dst []TypeID) []TypeID {
	f := in.funcShape(id)
	for _, tp := range f.TypeParams {
		if tp.Constraint != NoType {
			dst = append(dst, tp.Constraint)
		}
		if tp.Default != NoType {
			dst = append(dst, tp.Default)
		}
	}
	for _, p := range f.Params {
		dst = append(dst, p.Type)
	}
	if f.This != NoType {
		dst = append(dst, f.This)
	}
	dst = append(dst, f.Return)
	if f.Predicate != nil {
		dst = append(dst, f.Predicate.Type)
	}
	return dst
}

// Walk visits id and every type reachable from it, preorder, each handle
// once. Returning false from visit stops the walk.
func (in *Interner) Walk(id TypeID, visit func(TypeID) bool) {
	seen := make(map[TypeID]bool)
	stack := []TypeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if !visit(cur) {
			return
		}
		stack = in.children(cur, stack)
	}
}

// CollectReferenced returns every handle reachable from id, including id,
// in ascending order.
func (in *Interner) CollectReferenced(id TypeID) []TypeID {
	var out []TypeID
	in.Walk(id, func(t TypeID) bool {
		out = append(out, t)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
