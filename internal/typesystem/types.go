package typesystem

import "fmt"

// TypeID is an opaque handle to one canonical, interned type structure.
// Two TypeIDs are equal if and only if the underlying structures are equal,
// so equality is O(1) and handles are safe map keys. A TypeID is only valid
// for the Interner that issued it.
type TypeID uint32

// NoType marks the absence of a type. It is never a real type.
const NoType TypeID = 0

// Pre-seeded sentinel handles. Every Interner issues exactly these IDs for
// the intrinsic types, so they can be compared against constants without a
// lookup.
const (
	ErrorType     TypeID = 1 // already-diagnosed failure; never cascades
	NeverType     TypeID = 2
	UnknownType   TypeID = 3
	AnyType       TypeID = 4
	VoidType      TypeID = 5
	UndefinedType TypeID = 6
	NullType      TypeID = 7
	BooleanType   TypeID = 8
	NumberType    TypeID = 9
	StringType    TypeID = 10
	BigIntType    TypeID = 11
	SymbolType    TypeID = 12
	ObjectKeyword TypeID = 13 // the `object` upper bound for non-primitives
	TrueType      TypeID = 14
	FalseType     TypeID = 15

	// firstUserType is the first handle issued for constructed types.
	firstUserType TypeID = 100
)

// IsIntrinsic reports whether the handle is one of the pre-seeded sentinels.
func (id TypeID) IsIntrinsic() bool {
	return id != NoType && id < firstUserType
}

// IsValid reports whether the handle refers to a type at all.
func (id TypeID) IsValid() bool { return id != NoType }

// StringID is an interned string atom.
type StringID uint32

// NoString marks the absence of an atom.
const NoString StringID = 0

// Secondary id spaces for variable-size payloads. Keeping these out of the
// type descriptor keeps the descriptor comparable, which is what makes map
// based interning work.
type (
	ListID      uint32 // interned []TypeID
	TupleListID uint32 // interned []TupleElement
	ShapeID     uint32 // interned ObjectShape
	FuncID      uint32 // interned FunctionShape
	CallableID  uint32 // interned CallableShape
	ParamID     uint32 // interned TypeParamInfo
	CondID      uint32 // interned Conditional
	MappedID    uint32 // interned MappedShape
	SpanListID  uint32 // interned []TemplateSpan
)

// Kind classifies a type structure. It is the only shape discriminator
// visible outside this package; see classify.go for the accessor layer.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindIntrinsic
	KindLiteral
	KindUnion
	KindIntersection
	KindObject
	KindArray
	KindTuple
	KindFunction
	KindCallable
	KindTypeParam
	KindInfer
	KindLazy
	KindTypeQuery
	KindApplication
	KindConditional
	KindMapped
	KindTemplate
	KindKeyOf
	KindIndexAccess
	KindReadonly
	KindNoInfer
	KindUniqueSymbol
	KindStringIntrinsic
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindIntrinsic:
		return "intrinsic"
	case KindLiteral:
		return "literal"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindFunction:
		return "function"
	case KindCallable:
		return "callable"
	case KindTypeParam:
		return "type parameter"
	case KindInfer:
		return "infer"
	case KindLazy:
		return "lazy reference"
	case KindTypeQuery:
		return "type query"
	case KindApplication:
		return "generic application"
	case KindConditional:
		return "conditional"
	case KindMapped:
		return "mapped"
	case KindTemplate:
		return "template literal"
	case KindKeyOf:
		return "keyof"
	case KindIndexAccess:
		return "indexed access"
	case KindReadonly:
		return "readonly"
	case KindNoInfer:
		return "no-infer"
	case KindUniqueSymbol:
		return "unique symbol"
	case KindStringIntrinsic:
		return "string intrinsic"
	case KindNamespace:
		return "namespace"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Intrinsic enumerates the built-in primitive types.
type Intrinsic uint8

const (
	IntrinsicInvalid Intrinsic = iota
	IntrinsicError
	IntrinsicNever
	IntrinsicUnknown
	IntrinsicAny
	IntrinsicVoid
	IntrinsicUndefined
	IntrinsicNull
	IntrinsicBoolean
	IntrinsicNumber
	IntrinsicString
	IntrinsicBigInt
	IntrinsicSymbol
	IntrinsicObject
)

// LiteralKind discriminates LiteralValue.
type LiteralKind uint8

const (
	LitInvalid LiteralKind = iota
	LitString
	LitNumber
	LitBoolean
	LitBigInt
)

// LiteralValue is the value payload of a literal type. Number literals keep
// their exact bit pattern so distinct NaN payloads and -0 stay distinct,
// matching the interner's structural identity rule.
type LiteralValue struct {
	Kind LiteralKind
	Str  StringID // LitString text, LitBigInt digits
	Num  float64  // LitNumber
	Bool bool     // LitBoolean
	Neg  bool     // LitBigInt sign
}

// Property describes one member of an object shape. Type is the read type;
// WriteType the accepted write type (equal to Type unless the property has
// divergent getter/setter types).
type Property struct {
	Name      StringID
	Type      TypeID
	WriteType TypeID
	Optional  bool
	Readonly  bool
	Method    bool
}

// IndexSignature describes a string or number indexer on an object shape.
type IndexSignature struct {
	Key      TypeID // StringType or NumberType
	Value    TypeID
	Readonly bool
}

// ObjectFlags carry identity-relevant object metadata. Freshness makes a
// literal structurally distinct from its widened twin so excess-property
// checking can tell them apart.
type ObjectFlags uint8

const (
	// FlagFreshLiteral marks a shape that came directly from an object
	// literal and is still subject to excess-property checking.
	FlagFreshLiteral ObjectFlags = 1 << 0
)

// ObjectShape is the structural payload of an object type. Properties are
// stored sorted by name; the interner enforces this.
type ObjectShape struct {
	Properties  []Property
	StringIndex *IndexSignature
	NumberIndex *IndexSignature
	Flags       ObjectFlags
}

// PropertyByName returns the property with the given name, if present.
func (s *ObjectShape) PropertyByName(name StringID) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// HasIndex reports whether the shape carries any index signature.
func (s *ObjectShape) HasIndex() bool {
	return s.StringIndex != nil || s.NumberIndex != nil
}

// TupleElement is one slot of a tuple type.
type TupleElement struct {
	Type     TypeID
	Name     StringID // optional label, NoString when unnamed
	Optional bool
	Rest     bool
}

// Param is one parameter of a call or construct signature.
type Param struct {
	Name     StringID
	Type     TypeID
	Optional bool
	Rest     bool
}

// TypePredicate is a user-defined type guard result: `param is Type`.
type TypePredicate struct {
	Param StringID
	Type  TypeID
}

// FunctionShape is the structural payload of a single signature.
type FunctionShape struct {
	TypeParams  []TypeParamInfo
	Params      []Param
	This        TypeID // NoType when unconstrained
	Return      TypeID
	Predicate   *TypePredicate
	Constructor bool
	Method      bool // methods get bivariant parameter checking
}

// MinArity counts the required parameters of a signature.
func (f *FunctionShape) MinArity() int {
	n := 0
	for _, p := range f.Params {
		if p.Optional || p.Rest {
			break
		}
		n++
	}
	return n
}

// HasRest reports whether the final parameter is a rest parameter.
func (f *FunctionShape) HasRest() bool {
	return len(f.Params) > 0 && f.Params[len(f.Params)-1].Rest
}

// CallableShape is an overloaded or hybrid callable: any number of call and
// construct signatures plus an optional property bag.
type CallableShape struct {
	CallSignatures      []FuncID
	ConstructSignatures []FuncID
	Shape               ShapeID // 0 when the callable carries no members
}

// TypeParamInfo describes a declared type parameter or an infer placeholder.
type TypeParamInfo struct {
	Name       StringID
	Constraint TypeID // NoType when unconstrained
	Default    TypeID // NoType when absent
	Const      bool
}

// Conditional is `Check extends Extends ? True : False`. Distributive is
// recorded at construction time when the check type is a naked parameter.
type Conditional struct {
	Check        TypeID
	Extends      TypeID
	True         TypeID
	False        TypeID
	Distributive bool
}

// MappedModifier adjusts readonly/optional flags during mapping.
type MappedModifier uint8

const (
	ModifierKeep MappedModifier = iota
	ModifierAdd
	ModifierRemove
)

// MappedShape is `{ [Param in Constraint as NameType]: Template }` with its
// modifier adjustments.
type MappedShape struct {
	Param      TypeParamInfo
	Constraint TypeID
	NameType   TypeID // NoType when no `as` clause
	Template   TypeID
	Readonly   MappedModifier
	Optional   MappedModifier
}

// TemplateSpan is one segment of a template literal type: literal text when
// Type is NoType, otherwise an interpolated type.
type TemplateSpan struct {
	Text StringID
	Type TypeID
}

// StringIntrinsicKind enumerates the built-in string mapping types.
type StringIntrinsicKind uint8

const (
	StringUppercase StringIntrinsicKind = iota + 1
	StringLowercase
	StringCapitalize
	StringUncapitalize
)

// typeKey is the content-addressed identity of a type: a compact comparable
// descriptor. Payload meaning depends on kind; variable-size payloads are
// interned separately and referenced here by id. This struct is the entire
// interning key and never escapes the package.
type typeKey struct {
	kind Kind
	x    uint32
	y    uint32
	z    uint32
}
