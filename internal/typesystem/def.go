package typesystem

// DefID names a type-level definition (alias, interface, class, enum,
// namespace) owned by the surrounding program representation. The solver
// never manufactures DefIDs; it only stores them inside lazy references
// and hands them back through a Resolver when evaluation needs the body.
type DefID uint32

// NoDef is the invalid definition handle.
const NoDef DefID = 0

// IsValid reports whether the handle names a real definition.
func (d DefID) IsValid() bool { return d != NoDef }

// DefKind classifies a definition site.
type DefKind uint8

const (
	DefInvalid DefKind = iota
	DefTypeAlias
	DefInterface
	DefClass
	DefEnum
	DefNamespace
)

func (k DefKind) String() string {
	switch k {
	case DefTypeAlias:
		return "type alias"
	case DefInterface:
		return "interface"
	case DefClass:
		return "class"
	case DefEnum:
		return "enum"
	case DefNamespace:
		return "namespace"
	default:
		return "invalid"
	}
}

// Resolver supplies definition bodies on demand. It is the only channel
// through which evaluation reaches outside the interner; a miss is an
// ordinary outcome (the definition does not exist or is not checkable) and
// surfaces as the error type, never as any.
type Resolver interface {
	Resolve(def DefID) (TypeID, bool)
}

// GenericResolver additionally exposes declared type parameters, which
// generic application expansion needs to substitute arguments. Resolvers
// that only serve monomorphic definitions can skip it.
type GenericResolver interface {
	Resolver
	TypeParams(def DefID) []TypeParamInfo
}

// EnumValueKind discriminates how an enum member's value is known.
type EnumValueKind uint8

const (
	EnumNumber EnumValueKind = iota
	EnumString
	EnumComputed
)

// EnumMember is one declared member of an enum definition.
type EnumMember struct {
	Name string
	Kind EnumValueKind
	Num  float64
	Str  string
}

// NumberMember builds a numeric enum member.
func NumberMember(name string, value float64) EnumMember {
	return EnumMember{Name: name, Kind: EnumNumber, Num: value}
}

// StringMember builds a string enum member.
func StringMember(name, value string) EnumMember {
	return EnumMember{Name: name, Kind: EnumString, Str: value}
}

// ComputedMember builds a member whose value is only known to be a number.
func ComputedMember(name string) EnumMember {
	return EnumMember{Name: name, Kind: EnumComputed}
}

// Definition is the stored form of one definition site.
type Definition struct {
	Name       string
	Kind       DefKind
	TypeParams []TypeParamInfo
	Body       TypeID
	Extends    []DefID // interface extends and class implements heritage
	Members    []EnumMember
}

// DefStore is the in-process definition registry. It implements Resolver
// (and GenericResolver), so a store can back evaluation directly; remote
// or layered resolvers wrap one.
type DefStore struct {
	interner *Interner
	defs     []Definition
	byName   map[string]DefID
}

// NewDefStore builds an empty registry bound to an interner.
func NewDefStore(in *Interner) *DefStore {
	return &DefStore{
		interner: in,
		defs:     make([]Definition, 1),
		byName:   make(map[string]DefID),
	}
}

func (s *DefStore) add(d Definition) DefID {
	id := DefID(len(s.defs))
	s.defs = append(s.defs, d)
	s.byName[d.Name] = id
	return id
}

// AddTypeAlias registers `type Name<Params> = Body`.
func (s *DefStore) AddTypeAlias(name string, params []TypeParamInfo, body TypeID) DefID {
	return s.add(Definition{Name: name, Kind: DefTypeAlias, TypeParams: params, Body: body})
}

// AddInterface registers an interface whose declared shape is body.
func (s *DefStore) AddInterface(name string, params []TypeParamInfo, body TypeID) DefID {
	return s.add(Definition{Name: name, Kind: DefInterface, TypeParams: params, Body: body})
}

// AddClass registers a class; body is the instance shape.
func (s *DefStore) AddClass(name string, params []TypeParamInfo, body TypeID) DefID {
	return s.add(Definition{Name: name, Kind: DefClass, TypeParams: params, Body: body})
}

// AddNamespace registers a namespace whose exports form the body shape.
func (s *DefStore) AddNamespace(name string, body TypeID) DefID {
	return s.add(Definition{Name: name, Kind: DefNamespace, Body: body})
}

// AddEnum registers an enum. The enum's type is the union of its member
// literal types; computed members contribute plain number.
func (s *DefStore) AddEnum(name string, members []EnumMember) DefID {
	memberTypes := make([]TypeID, 0, len(members))
	for _, m := range members {
		switch m.Kind {
		case EnumNumber:
			memberTypes = append(memberTypes, s.interner.LiteralNumber(m.Num))
		case EnumString:
			memberTypes = append(memberTypes, s.interner.LiteralString(m.Str))
		case EnumComputed:
			memberTypes = append(memberTypes, NumberType)
		}
	}
	return s.add(Definition{
		Name:    name,
		Kind:    DefEnum,
		Body:    s.interner.Union(memberTypes...),
		Members: members,
	})
}

// Definition returns the stored record for a handle.
func (s *DefStore) Definition(def DefID) (*Definition, bool) {
	if def == NoDef || int(def) >= len(s.defs) {
		return nil, false
	}
	return &s.defs[def], true
}

// SetBody replaces a definition's body. Self-referential definitions
// register with NoType first, build a body that mentions their own
// handle, then fill it in here.
func (s *DefStore) SetBody(def DefID, body TypeID) bool {
	d, ok := s.Definition(def)
	if !ok {
		return false
	}
	d.Body = body
	return true
}

// SetParams replaces a definition's declared type parameters. Two-pass
// registration fills these in together with the body.
func (s *DefStore) SetParams(def DefID, params []TypeParamInfo) bool {
	d, ok := s.Definition(def)
	if !ok {
		return false
	}
	d.TypeParams = params
	return true
}

// SetExtends records heritage. Bases may be registered after the
// definition itself; they stay lazy until evaluation merges them.
func (s *DefStore) SetExtends(def DefID, bases ...DefID) bool {
	d, ok := s.Definition(def)
	if !ok {
		return false
	}
	d.Extends = bases
	return true
}

// Lookup finds a definition by declared name.
func (s *DefStore) Lookup(name string) (DefID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// Resolve implements Resolver. A definition with heritage resolves to
// the intersection of its own body and its bases as lazy references, so
// heritage cycles terminate through the evaluator like any other cycle.
func (s *DefStore) Resolve(def DefID) (TypeID, bool) {
	d, ok := s.Definition(def)
	if !ok || d.Body == NoType {
		return NoType, false
	}
	if len(d.Extends) == 0 {
		return d.Body, true
	}
	parts := make([]TypeID, 0, len(d.Extends)+1)
	parts = append(parts, d.Body)
	for _, base := range d.Extends {
		parts = append(parts, s.interner.Lazy(base))
	}
	return s.interner.Intersection(parts...), true
}

// TypeParams implements GenericResolver.
func (s *DefStore) TypeParams(def DefID) []TypeParamInfo {
	d, ok := s.Definition(def)
	if !ok {
		return nil
	}
	return d.TypeParams
}

// Len reports how many definitions are registered.
func (s *DefStore) Len() int { return len(s.defs) - 1 }
