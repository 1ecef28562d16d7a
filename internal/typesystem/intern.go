package typesystem

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interner is the single source of truth for canonical type structures.
// Construction is idempotent: structurally equal inputs always return the
// same TypeID. Storage is append-only; nothing is ever mutated or removed.
//
// An Interner belongs to exactly one checking pass or session epoch and is
// not safe for concurrent use. Workers that check independent compilation
// units each own their own Interner; bounding long-session growth is the
// session's job (it drops the whole Interner at an epoch swap).
type Interner struct {
	keys  []typeKey
	index map[typeKey]TypeID

	strings  []string
	strIndex map[string]StringID

	lists     [][]TypeID
	listIndex map[string]ListID

	tuples     [][]TupleElement
	tupleIndex map[string]TupleListID

	shapes     []ObjectShape
	shapeIndex map[string]ShapeID

	funcs     []FunctionShape
	funcIndex map[string]FuncID

	callables     []CallableShape
	callableIndex map[string]CallableID

	params     []TypeParamInfo
	paramIndex map[TypeParamInfo]ParamID

	conds     []Conditional
	condIndex map[Conditional]CondID

	mappeds     []MappedShape
	mappedIndex map[MappedShape]MappedID

	spans     [][]TemplateSpan
	spanIndex map[string]SpanListID
}

// templateExpansionLimit bounds template-literal cross products; beyond it
// the template widens to string instead of materializing the union.
const templateExpansionLimit = 10000

// NewInterner constructs an interner pre-seeded with the sentinel handles.
func NewInterner() *Interner {
	in := &Interner{
		keys:          make([]typeKey, firstUserType),
		index:         make(map[typeKey]TypeID, 256),
		strings:       []string{""},
		strIndex:      map[string]StringID{"": 0},
		lists:         [][]TypeID{nil},
		listIndex:     make(map[string]ListID, 64),
		tuples:        [][]TupleElement{nil},
		tupleIndex:    make(map[string]TupleListID, 16),
		shapes:        []ObjectShape{{}},
		shapeIndex:    make(map[string]ShapeID, 64),
		funcs:         []FunctionShape{{}},
		funcIndex:     make(map[string]FuncID, 32),
		callables:     []CallableShape{{}},
		callableIndex: make(map[string]CallableID, 8),
		params:        []TypeParamInfo{{}},
		paramIndex:    make(map[TypeParamInfo]ParamID, 16),
		conds:         []Conditional{{}},
		condIndex:     make(map[Conditional]CondID, 8),
		mappeds:       []MappedShape{{}},
		mappedIndex:   make(map[MappedShape]MappedID, 8),
		spans:         [][]TemplateSpan{nil},
		spanIndex:     make(map[string]SpanListID, 8),
	}

	seed := func(id TypeID, key typeKey) {
		in.keys[id] = key
		in.index[key] = id
	}
	seed(ErrorType, keyIntrinsic(IntrinsicError))
	seed(NeverType, keyIntrinsic(IntrinsicNever))
	seed(UnknownType, keyIntrinsic(IntrinsicUnknown))
	seed(AnyType, keyIntrinsic(IntrinsicAny))
	seed(VoidType, keyIntrinsic(IntrinsicVoid))
	seed(UndefinedType, keyIntrinsic(IntrinsicUndefined))
	seed(NullType, keyIntrinsic(IntrinsicNull))
	seed(BooleanType, keyIntrinsic(IntrinsicBoolean))
	seed(NumberType, keyIntrinsic(IntrinsicNumber))
	seed(StringType, keyIntrinsic(IntrinsicString))
	seed(BigIntType, keyIntrinsic(IntrinsicBigInt))
	seed(SymbolType, keyIntrinsic(IntrinsicSymbol))
	seed(ObjectKeyword, keyIntrinsic(IntrinsicObject))
	seed(TrueType, keyLiteralBool(true))
	seed(FalseType, keyLiteralBool(false))
	return in
}

func keyIntrinsic(k Intrinsic) typeKey { return typeKey{kind: KindIntrinsic, x: uint32(k)} }

func keyLiteralBool(b bool) typeKey {
	v := uint32(0)
	if b {
		v = 1
	}
	return typeKey{kind: KindLiteral, x: uint32(LitBoolean), y: v}
}

// intern returns the canonical handle for a key, issuing a new one when the
// structure has not been seen before.
func (in *Interner) intern(key typeKey) TypeID {
	if id, ok := in.index[key]; ok {
		return id
	}
	id := TypeID(len(in.keys))
	in.keys = append(in.keys, key)
	in.index[key] = id
	return id
}

// keyOf returns the descriptor for a handle. An out-of-range handle is a
// programming error (most likely a handle that outlived its epoch) and
// panics rather than limping on.
func (in *Interner) keyOf(id TypeID) typeKey {
	if id == NoType || int(id) >= len(in.keys) {
		panic(fmt.Sprintf("typesystem: invalid TypeID %d", id))
	}
	k := in.keys[id]
	if k.kind == KindInvalid {
		panic(fmt.Sprintf("typesystem: unseeded TypeID %d", id))
	}
	return k
}

// Count reports how many constructed (non-sentinel) types this interner
// holds. Sessions use it to decide when to swap epochs.
func (in *Interner) Count() int {
	return len(in.keys) - int(firstUserType)
}

// =============================================================================
// String atoms
// =============================================================================

// StringCount reports how many string atoms are interned, not counting
// the empty-string sentinel.
func (in *Interner) StringCount() int {
	return len(in.strings) - 1
}

// InternString returns the atom for s, creating it on first sight.
func (in *Interner) InternString(s string) StringID {
	if id, ok := in.strIndex[s]; ok {
		return id
	}
	id := StringID(len(in.strings))
	in.strings = append(in.strings, s)
	in.strIndex[s] = id
	return id
}

// StringOf resolves an atom back to its text.
func (in *Interner) StringOf(id StringID) string {
	if int(id) >= len(in.strings) {
		panic(fmt.Sprintf("typesystem: invalid StringID %d", id))
	}
	return in.strings[id]
}

// =============================================================================
// Side-table interning
// =============================================================================

func appendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

func appendBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func (in *Interner) internList(members []TypeID) ListID {
	buf := make([]byte, 0, 4*len(members))
	for _, m := range members {
		buf = appendU32(buf, uint32(m))
	}
	key := string(buf)
	if id, ok := in.listIndex[key]; ok {
		return id
	}
	id := ListID(len(in.lists))
	in.lists = append(in.lists, append([]TypeID(nil), members...))
	in.listIndex[key] = id
	return id
}

func (in *Interner) list(id ListID) []TypeID {
	if int(id) >= len(in.lists) {
		panic(fmt.Sprintf("typesystem: invalid ListID %d", id))
	}
	return in.lists[id]
}

func (in *Interner) internTupleList(elems []TupleElement) TupleListID {
	buf := make([]byte, 0, 12*len(elems))
	for _, e := range elems {
		buf = appendU32(buf, uint32(e.Type))
		buf = appendU32(buf, uint32(e.Name))
		buf = appendBool(buf, e.Optional)
		buf = appendBool(buf, e.Rest)
	}
	key := string(buf)
	if id, ok := in.tupleIndex[key]; ok {
		return id
	}
	id := TupleListID(len(in.tuples))
	in.tuples = append(in.tuples, append([]TupleElement(nil), elems...))
	in.tupleIndex[key] = id
	return id
}

func (in *Interner) tupleList(id TupleListID) []TupleElement {
	if int(id) >= len(in.tuples) {
		panic(fmt.Sprintf("typesystem: invalid TupleListID %d", id))
	}
	return in.tuples[id]
}

func appendIndexSignature(buf []byte, sig *IndexSignature) []byte {
	if sig == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = appendU32(buf, uint32(sig.Key))
	buf = appendU32(buf, uint32(sig.Value))
	return appendBool(buf, sig.Readonly)
}

func encodeShape(shape *ObjectShape) string {
	buf := make([]byte, 0, 16*len(shape.Properties)+16)
	for _, p := range shape.Properties {
		buf = appendU32(buf, uint32(p.Name))
		buf = appendU32(buf, uint32(p.Type))
		buf = appendU32(buf, uint32(p.WriteType))
		buf = appendBool(buf, p.Optional)
		buf = appendBool(buf, p.Readonly)
		buf = appendBool(buf, p.Method)
	}
	buf = append(buf, 0xff)
	buf = appendIndexSignature(buf, shape.StringIndex)
	buf = appendIndexSignature(buf, shape.NumberIndex)
	buf = append(buf, byte(shape.Flags))
	return string(buf)
}

func (in *Interner) internShape(shape ObjectShape) ShapeID {
	key := encodeShape(&shape)
	if id, ok := in.shapeIndex[key]; ok {
		return id
	}
	id := ShapeID(len(in.shapes))
	shape.Properties = append([]Property(nil), shape.Properties...)
	if shape.StringIndex != nil {
		cp := *shape.StringIndex
		shape.StringIndex = &cp
	}
	if shape.NumberIndex != nil {
		cp := *shape.NumberIndex
		shape.NumberIndex = &cp
	}
	in.shapes = append(in.shapes, shape)
	in.shapeIndex[key] = id
	return id
}

func (in *Interner) shape(id ShapeID) *ObjectShape {
	if id == 0 || int(id) >= len(in.shapes) {
		panic(fmt.Sprintf("typesystem: invalid ShapeID %d", id))
	}
	return &in.shapes[id]
}

func encodeFunc(f *FunctionShape) string {
	buf := make([]byte, 0, 16*len(f.Params)+24)
	for _, tp := range f.TypeParams {
		buf = appendU32(buf, uint32(tp.Name))
		buf = appendU32(buf, uint32(tp.Constraint))
		buf = appendU32(buf, uint32(tp.Default))
		buf = appendBool(buf, tp.Const)
	}
	buf = append(buf, 0xfe)
	for _, p := range f.Params {
		buf = appendU32(buf, uint32(p.Name))
		buf = appendU32(buf, uint32(p.Type))
		buf = appendBool(buf, p.Optional)
		buf = appendBool(buf, p.Rest)
	}
	buf = append(buf, 0xff)
	buf = appendU32(buf, uint32(f.This))
	buf = appendU32(buf, uint32(f.Return))
	if f.Predicate != nil {
		buf = append(buf, 1)
		buf = appendU32(buf, uint32(f.Predicate.Param))
		buf = appendU32(buf, uint32(f.Predicate.Type))
	} else {
		buf = append(buf, 0)
	}
	buf = appendBool(buf, f.Constructor)
	buf = appendBool(buf, f.Method)
	return string(buf)
}

func (in *Interner) internFunc(f FunctionShape) FuncID {
	key := encodeFunc(&f)
	if id, ok := in.funcIndex[key]; ok {
		return id
	}
	id := FuncID(len(in.funcs))
	f.TypeParams = append([]TypeParamInfo(nil), f.TypeParams...)
	f.Params = append([]Param(nil), f.Params...)
	if f.Predicate != nil {
		cp := *f.Predicate
		f.Predicate = &cp
	}
	in.funcs = append(in.funcs, f)
	in.funcIndex[key] = id
	return id
}

func (in *Interner) funcShape(id FuncID) *FunctionShape {
	if id == 0 || int(id) >= len(in.funcs) {
		panic(fmt.Sprintf("typesystem: invalid FuncID %d", id))
	}
	return &in.funcs[id]
}

func (in *Interner) internCallable(c CallableShape) CallableID {
	buf := make([]byte, 0, 4*(len(c.CallSignatures)+len(c.ConstructSignatures))+8)
	for _, s := range c.CallSignatures {
		buf = appendU32(buf, uint32(s))
	}
	buf = append(buf, 0xff)
	for _, s := range c.ConstructSignatures {
		buf = appendU32(buf, uint32(s))
	}
	buf = append(buf, 0xff)
	buf = appendU32(buf, uint32(c.Shape))
	key := string(buf)
	if id, ok := in.callableIndex[key]; ok {
		return id
	}
	id := CallableID(len(in.callables))
	c.CallSignatures = append([]FuncID(nil), c.CallSignatures...)
	c.ConstructSignatures = append([]FuncID(nil), c.ConstructSignatures...)
	in.callables = append(in.callables, c)
	in.callableIndex[key] = id
	return id
}

func (in *Interner) callableShape(id CallableID) *CallableShape {
	if id == 0 || int(id) >= len(in.callables) {
		panic(fmt.Sprintf("typesystem: invalid CallableID %d", id))
	}
	return &in.callables[id]
}

func (in *Interner) internParam(info TypeParamInfo) ParamID {
	if id, ok := in.paramIndex[info]; ok {
		return id
	}
	id := ParamID(len(in.params))
	in.params = append(in.params, info)
	in.paramIndex[info] = id
	return id
}

func (in *Interner) paramInfo(id ParamID) TypeParamInfo {
	if id == 0 || int(id) >= len(in.params) {
		panic(fmt.Sprintf("typesystem: invalid ParamID %d", id))
	}
	return in.params[id]
}

func (in *Interner) internCond(c Conditional) CondID {
	if id, ok := in.condIndex[c]; ok {
		return id
	}
	id := CondID(len(in.conds))
	in.conds = append(in.conds, c)
	in.condIndex[c] = id
	return id
}

func (in *Interner) cond(id CondID) Conditional {
	if id == 0 || int(id) >= len(in.conds) {
		panic(fmt.Sprintf("typesystem: invalid CondID %d", id))
	}
	return in.conds[id]
}

func (in *Interner) internMapped(m MappedShape) MappedID {
	if id, ok := in.mappedIndex[m]; ok {
		return id
	}
	id := MappedID(len(in.mappeds))
	in.mappeds = append(in.mappeds, m)
	in.mappedIndex[m] = id
	return id
}

func (in *Interner) mapped(id MappedID) MappedShape {
	if id == 0 || int(id) >= len(in.mappeds) {
		panic(fmt.Sprintf("typesystem: invalid MappedID %d", id))
	}
	return in.mappeds[id]
}

func (in *Interner) internSpans(spans []TemplateSpan) SpanListID {
	buf := make([]byte, 0, 8*len(spans))
	for _, s := range spans {
		buf = appendU32(buf, uint32(s.Text))
		buf = appendU32(buf, uint32(s.Type))
	}
	key := string(buf)
	if id, ok := in.spanIndex[key]; ok {
		return id
	}
	id := SpanListID(len(in.spans))
	in.spans = append(in.spans, append([]TemplateSpan(nil), spans...))
	in.spanIndex[key] = id
	return id
}

func (in *Interner) spanList(id SpanListID) []TemplateSpan {
	if int(id) >= len(in.spans) {
		panic(fmt.Sprintf("typesystem: invalid SpanListID %d", id))
	}
	return in.spans[id]
}

// =============================================================================
// Constructors
// =============================================================================

// LiteralString interns the string literal type for s.
func (in *Interner) LiteralString(s string) TypeID {
	return in.intern(typeKey{kind: KindLiteral, x: uint32(LitString), y: uint32(in.InternString(s))})
}

// LiteralNumber interns the number literal type for f. The exact bit
// pattern is the identity, so -0 and 0 are distinct handles.
func (in *Interner) LiteralNumber(f float64) TypeID {
	bits := math.Float64bits(f)
	return in.intern(typeKey{kind: KindLiteral, x: uint32(LitNumber), y: uint32(bits >> 32), z: uint32(bits)})
}

// LiteralBoolean returns the pre-seeded true/false literal handle.
func (in *Interner) LiteralBoolean(b bool) TypeID {
	if b {
		return TrueType
	}
	return FalseType
}

// LiteralBigInt interns a bigint literal from its sign and digit string.
// Digits normalize before interning: leading zeros drop and zero loses
// its sign, so 007n, 7n and -0n, 0n collapse pairwise.
func (in *Interner) LiteralBigInt(negative bool, digits string) TypeID {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
		negative = false
	}
	sign := uint32(0)
	if negative {
		sign = 1
	}
	return in.intern(typeKey{kind: KindLiteral, x: uint32(LitBigInt), y: uint32(in.InternString(digits)), z: sign})
}

// Array interns `Elem[]`.
func (in *Interner) Array(elem TypeID) TypeID {
	return in.intern(typeKey{kind: KindArray, x: uint32(elem)})
}

// Readonly wraps a type in the readonly modifier. Wrapping is idempotent.
func (in *Interner) Readonly(inner TypeID) TypeID {
	if in.keyOf(inner).kind == KindReadonly {
		return inner
	}
	return in.intern(typeKey{kind: KindReadonly, x: uint32(inner)})
}

// NoInfer wraps a type in the no-infer modifier.
func (in *Interner) NoInfer(inner TypeID) TypeID {
	if in.keyOf(inner).kind == KindNoInfer {
		return inner
	}
	return in.intern(typeKey{kind: KindNoInfer, x: uint32(inner)})
}

// KeyOf interns `keyof Operand` without evaluating it.
func (in *Interner) KeyOf(operand TypeID) TypeID {
	return in.intern(typeKey{kind: KindKeyOf, x: uint32(operand)})
}

// IndexAccess interns `Obj[Index]` without evaluating it.
func (in *Interner) IndexAccess(obj, index TypeID) TypeID {
	return in.intern(typeKey{kind: KindIndexAccess, x: uint32(obj), y: uint32(index)})
}

// Lazy interns an unresolved reference to a definition. The handle stays a
// reference until the evaluator forces it; the representation never inlines
// resolution, which is what keeps cyclic definitions representable.
func (in *Interner) Lazy(def DefID) TypeID {
	return in.intern(typeKey{kind: KindLazy, x: uint32(def)})
}

// TypeQuery interns `typeof def`, resolved on demand like Lazy.
func (in *Interner) TypeQuery(def DefID) TypeID {
	return in.intern(typeKey{kind: KindTypeQuery, x: uint32(def)})
}

// UniqueSymbol interns the unique symbol type tied to a declaration.
func (in *Interner) UniqueSymbol(def DefID) TypeID {
	return in.intern(typeKey{kind: KindUniqueSymbol, x: uint32(def)})
}

// Namespace interns the module-namespace type for a definition.
func (in *Interner) Namespace(def DefID) TypeID {
	return in.intern(typeKey{kind: KindNamespace, x: uint32(def)})
}

// StringIntrinsic interns Uppercase/Lowercase/Capitalize/Uncapitalize over
// an operand, unevaluated.
func (in *Interner) StringIntrinsic(kind StringIntrinsicKind, operand TypeID) TypeID {
	return in.intern(typeKey{kind: KindStringIntrinsic, x: uint32(kind), y: uint32(operand)})
}

// TypeParameter interns a reference to a declared type parameter.
func (in *Interner) TypeParameter(info TypeParamInfo) TypeID {
	return in.intern(typeKey{kind: KindTypeParam, x: uint32(in.internParam(info))})
}

// Infer interns an `infer` placeholder.
func (in *Interner) Infer(info TypeParamInfo) TypeID {
	return in.intern(typeKey{kind: KindInfer, x: uint32(in.internParam(info))})
}

// Application interns `Base<Args>`, unexpanded.
func (in *Interner) Application(base TypeID, args []TypeID) TypeID {
	return in.intern(typeKey{kind: KindApplication, x: uint32(base), y: uint32(in.internList(args))})
}

// Conditional interns `Check extends Extends ? True : False`, unevaluated.
func (in *Interner) Conditional(c Conditional) TypeID {
	return in.intern(typeKey{kind: KindConditional, x: uint32(in.internCond(c))})
}

// Mapped interns a mapped type, unevaluated.
func (in *Interner) Mapped(m MappedShape) TypeID {
	return in.intern(typeKey{kind: KindMapped, x: uint32(in.internMapped(m))})
}

// Template interns a template literal type. Text-only spans coalesce into
// the next hole's prefix so equivalent span lists share one handle, and
// all-text templates collapse to a plain string literal immediately.
func (in *Interner) Template(spans []TemplateSpan) TypeID {
	norm := make([]TemplateSpan, 0, len(spans))
	pending := ""
	for _, s := range spans {
		if s.Type == NoType {
			pending += in.StringOf(s.Text)
			continue
		}
		norm = append(norm, TemplateSpan{Text: in.InternString(pending + in.StringOf(s.Text)), Type: s.Type})
		pending = ""
	}
	if len(norm) == 0 {
		return in.LiteralString(pending)
	}
	if pending != "" {
		norm = append(norm, TemplateSpan{Text: in.InternString(pending)})
	}
	return in.intern(typeKey{kind: KindTemplate, x: uint32(in.internSpans(norm))})
}

// Tuple interns an ordered tuple type.
func (in *Interner) Tuple(elems []TupleElement) TypeID {
	return in.intern(typeKey{kind: KindTuple, x: uint32(in.internTupleList(elems))})
}

// Function interns a single-signature callable.
func (in *Interner) Function(shape FunctionShape) TypeID {
	return in.intern(typeKey{kind: KindFunction, x: uint32(in.internFunc(shape))})
}

// Callable interns an overloaded or hybrid callable.
func (in *Interner) Callable(shape CallableShape) TypeID {
	return in.intern(typeKey{kind: KindCallable, x: uint32(in.internCallable(shape))})
}

// InternSignature interns one signature for use inside a CallableShape.
func (in *Interner) InternSignature(shape FunctionShape) FuncID {
	return in.internFunc(shape)
}

// InternMembers interns the named members of a hybrid callable. Zero means
// no members.
func (in *Interner) InternMembers(props []Property) ShapeID {
	if len(props) == 0 {
		return 0
	}
	return in.internShape(ObjectShape{Properties: in.normalizeProps(props)})
}

// Object interns a plain object type from its properties.
func (in *Interner) Object(props []Property) TypeID {
	return in.ObjectWithFlags(props, 0)
}

// FreshObject interns an object literal type still subject to
// excess-property checking.
func (in *Interner) FreshObject(props []Property) TypeID {
	return in.ObjectWithFlags(props, FlagFreshLiteral)
}

// ObjectWithFlags interns an object type with explicit flags. Properties
// are normalized to name order, and a missing write type defaults to the
// read type.
func (in *Interner) ObjectWithFlags(props []Property, flags ObjectFlags) TypeID {
	normalized := in.normalizeProps(props)
	shape := ObjectShape{Properties: normalized, Flags: flags}
	return in.intern(typeKey{kind: KindObject, x: uint32(in.internShape(shape))})
}

// ObjectWithIndex interns an object type that may carry index signatures.
func (in *Interner) ObjectWithIndex(shape ObjectShape) TypeID {
	shape.Properties = in.normalizeProps(shape.Properties)
	return in.intern(typeKey{kind: KindObject, x: uint32(in.internShape(shape))})
}

func (in *Interner) normalizeProps(props []Property) []Property {
	out := append([]Property(nil), props...)
	for i := range out {
		if out[i].WriteType == NoType {
			out[i].WriteType = out[i].Type
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return in.StringOf(out[i].Name) < in.StringOf(out[j].Name)
	})
	return out
}

// WidenFresh returns the non-fresh twin of a fresh object literal type, or
// the input unchanged when it is not fresh. Freshness never survives past
// the first assignment site.
func (in *Interner) WidenFresh(id TypeID) TypeID {
	key := in.keyOf(id)
	if key.kind != KindObject {
		return id
	}
	shape := in.shape(ShapeID(key.x))
	if shape.Flags&FlagFreshLiteral == 0 {
		return id
	}
	widened := ObjectShape{
		Properties:  shape.Properties,
		StringIndex: shape.StringIndex,
		NumberIndex: shape.NumberIndex,
		Flags:       shape.Flags &^ FlagFreshLiteral,
	}
	return in.intern(typeKey{kind: KindObject, x: uint32(in.internShape(widened))})
}
