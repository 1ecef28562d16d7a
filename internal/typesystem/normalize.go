package typesystem

import "sort"

// Union and intersection construction is where canonical form is enforced.
// Every rule here is order-insensitive: the result of Union(a, b) and
// Union(b, a) is the same handle, which is what makes TypeID equality mean
// structural equality.

type primitiveClass uint8

const (
	classNone primitiveClass = iota
	classString
	classNumber
	classBoolean
	classBigInt
	classSymbol
)

func (in *Interner) classOf(id TypeID) primitiveClass {
	switch id {
	case StringType:
		return classString
	case NumberType:
		return classNumber
	case BooleanType:
		return classBoolean
	case BigIntType:
		return classBigInt
	case SymbolType:
		return classSymbol
	}
	key := in.keyOf(id)
	if key.kind != KindLiteral {
		return classNone
	}
	switch LiteralKind(key.x) {
	case LitString:
		return classString
	case LitNumber:
		return classNumber
	case LitBoolean:
		return classBoolean
	case LitBigInt:
		return classBigInt
	}
	return classNone
}

// Union constructs the canonical union of the given members.
//
// Normalization: nested unions flatten, error poisons, any then unknown
// absorb everything, never members drop, duplicates collapse, literals are
// absorbed by their base primitive, and true|false collapses to boolean.
// An empty union is never; a single survivor is returned unwrapped.
func (in *Interner) Union(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	var hasError, hasAny, hasUnknown bool
	var flatten func(id TypeID)
	flatten = func(id TypeID) {
		switch id {
		case ErrorType:
			hasError = true
			return
		case AnyType:
			hasAny = true
			return
		case UnknownType:
			hasUnknown = true
			return
		case NeverType:
			return
		}
		if key := in.keyOf(id); key.kind == KindUnion {
			for _, m := range in.list(ListID(key.x)) {
				flatten(m)
			}
			return
		}
		flat = append(flat, id)
	}
	for _, m := range members {
		flatten(m)
	}
	if hasError {
		return ErrorType
	}
	if hasAny {
		return AnyType
	}
	if hasUnknown {
		return UnknownType
	}

	seen := make(map[TypeID]bool, len(flat))
	deduped := flat[:0]
	for _, m := range flat {
		if !seen[m] {
			seen[m] = true
			deduped = append(deduped, m)
		}
	}

	if seen[TrueType] && seen[FalseType] {
		filtered := deduped[:0]
		for _, m := range deduped {
			if m != TrueType && m != FalseType {
				filtered = append(filtered, m)
			}
		}
		if !seen[BooleanType] {
			filtered = append(filtered, BooleanType)
			seen[BooleanType] = true
		}
		deduped = filtered
	}

	if seen[StringType] || seen[NumberType] || seen[BooleanType] || seen[BigIntType] {
		filtered := deduped[:0]
		for _, m := range deduped {
			cls := in.classOf(m)
			if in.keyOf(m).kind == KindIntrinsic {
				filtered = append(filtered, m)
				continue
			}
			switch {
			case cls == classString && seen[StringType]:
			case cls == classNumber && seen[NumberType]:
			case cls == classBoolean && seen[BooleanType]:
			case cls == classBigInt && seen[BigIntType]:
			case seen[StringType] && in.keyOf(m).kind == KindTemplate:
			default:
				filtered = append(filtered, m)
			}
		}
		deduped = filtered
	}

	switch len(deduped) {
	case 0:
		return NeverType
	case 1:
		return deduped[0]
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i] < deduped[j] })
	return in.intern(typeKey{kind: KindUnion, x: uint32(in.internList(deduped))})
}

// Intersection constructs the canonical intersection of the given members.
//
// Normalization: nested intersections flatten, error poisons, never wins,
// any absorbs the rest, unknown members drop, duplicates collapse, disjoint
// primitives or unequal same-class literals reduce to never, a literal
// absorbs its own base primitive, and an all-object intersection merges
// into a single object shape. An empty intersection is unknown; a single
// survivor is returned unwrapped.
func (in *Interner) Intersection(members ...TypeID) TypeID {
	flat := make([]TypeID, 0, len(members))
	var hasError, hasNever, hasAny bool
	var flatten func(id TypeID)
	flatten = func(id TypeID) {
		switch id {
		case ErrorType:
			hasError = true
			return
		case NeverType:
			hasNever = true
			return
		case AnyType:
			hasAny = true
			return
		case UnknownType:
			return
		}
		if key := in.keyOf(id); key.kind == KindIntersection {
			for _, m := range in.list(ListID(key.x)) {
				flatten(m)
			}
			return
		}
		flat = append(flat, id)
	}
	for _, m := range members {
		flatten(m)
	}
	if hasError {
		return ErrorType
	}
	if hasNever {
		return NeverType
	}
	if hasAny {
		return AnyType
	}

	seen := make(map[TypeID]bool, len(flat))
	deduped := flat[:0]
	for _, m := range flat {
		if !seen[m] {
			seen[m] = true
			deduped = append(deduped, m)
		}
	}

	// Disjoint primitive reduction. Two members from different primitive
	// classes, or two unequal literals of the same class, make the whole
	// intersection uninhabited. A literal absorbs its own primitive.
	var activeClass primitiveClass
	var classLiteral TypeID
	var classPrimitive bool
	for _, m := range deduped {
		cls := in.classOf(m)
		if cls == classNone {
			continue
		}
		if activeClass == classNone {
			activeClass = cls
		} else if cls != activeClass {
			return NeverType
		}
		if in.keyOf(m).kind == KindLiteral {
			if classLiteral != NoType && classLiteral != m {
				return NeverType
			}
			classLiteral = m
		} else {
			classPrimitive = true
		}
	}
	if classLiteral != NoType && classPrimitive {
		filtered := deduped[:0]
		for _, m := range deduped {
			if in.classOf(m) != classNone && m != classLiteral {
				continue
			}
			filtered = append(filtered, m)
		}
		deduped = filtered
	}

	if len(deduped) >= 2 {
		allObjects := true
		for _, m := range deduped {
			if in.keyOf(m).kind != KindObject {
				allObjects = false
				break
			}
		}
		if allObjects {
			merged, ok := in.mergeObjectIntersection(deduped)
			if !ok {
				return NeverType
			}
			deduped = deduped[:0]
			deduped = append(deduped, merged)
		}
	}

	switch len(deduped) {
	case 0:
		return UnknownType
	case 1:
		return deduped[0]
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i] < deduped[j] })
	return in.intern(typeKey{kind: KindIntersection, x: uint32(in.internList(deduped))})
}

// mergeObjectIntersection folds plain object members into one shape.
// Shared properties intersect their types, optionality survives only when
// every side is optional, and readonly sticks if any side has it. Two
// unequal literal types for the same property are a contradiction and make
// the intersection never (ok=false).
func (in *Interner) mergeObjectIntersection(objects []TypeID) (TypeID, bool) {
	var props []Property
	byName := make(map[StringID]int)
	var stringIndex, numberIndex *IndexSignature

	mergeIndex := func(dst **IndexSignature, src *IndexSignature) {
		if src == nil {
			return
		}
		if *dst == nil {
			cp := *src
			*dst = &cp
			return
		}
		(*dst).Value = in.Intersection((*dst).Value, src.Value)
		(*dst).Readonly = (*dst).Readonly || src.Readonly
	}

	for _, obj := range objects {
		shape := in.shape(ShapeID(in.keyOf(obj).x))
		for _, p := range shape.Properties {
			idx, exists := byName[p.Name]
			if !exists {
				byName[p.Name] = len(props)
				props = append(props, p)
				continue
			}
			existing := &props[idx]
			ek, pk := in.keyOf(existing.Type), in.keyOf(p.Type)
			if ek.kind == KindLiteral && pk.kind == KindLiteral && existing.Type != p.Type {
				return NoType, false
			}
			existing.Type = in.Intersection(existing.Type, p.Type)
			existing.WriteType = in.Intersection(existing.WriteType, p.WriteType)
			existing.Optional = existing.Optional && p.Optional
			existing.Readonly = existing.Readonly || p.Readonly
			existing.Method = existing.Method && p.Method
		}
		mergeIndex(&stringIndex, shape.StringIndex)
		mergeIndex(&numberIndex, shape.NumberIndex)
	}

	return in.ObjectWithIndex(ObjectShape{
		Properties:  props,
		StringIndex: stringIndex,
		NumberIndex: numberIndex,
	}), true
}
