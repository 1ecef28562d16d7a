package typesystem

// maxInstantiationDepth caps recursive generic expansion. Blowing the cap
// is reported as the error type so a runaway `T<T<...>>` chain terminates
// with a diagnostic instead of a stack overflow.
const maxInstantiationDepth = 50

// Substitution maps type-parameter names to replacement types. Bindings
// are keyed by declared name, which is how shadowing works: an inner
// declaration of the same name suspends the outer binding for its scope.
type Substitution struct {
	in           *Interner
	bindings     map[StringID]TypeID
	includeInfer bool
}

// NewSubstitution builds an empty substitution.
func NewSubstitution(in *Interner) *Substitution {
	return &Substitution{in: in, bindings: make(map[StringID]TypeID)}
}

// Bind adds or replaces a binding.
func (s *Substitution) Bind(name StringID, t TypeID) {
	s.bindings[name] = t
}

// Lookup returns the binding for a name.
func (s *Substitution) Lookup(name StringID) (TypeID, bool) {
	t, ok := s.bindings[name]
	return t, ok
}

// WithInfer marks the substitution as applying to infer placeholders too,
// which conditional-type evaluation needs when it commits inference
// results into the true branch.
func (s *Substitution) WithInfer() *Substitution {
	s.includeInfer = true
	return s
}

func (s *Substitution) shadow(name StringID) (TypeID, bool) {
	prev, had := s.bindings[name]
	delete(s.bindings, name)
	return prev, had
}

func (s *Substitution) unshadow(name StringID, prev TypeID, had bool) {
	if had {
		s.bindings[name] = prev
	}
}

// SubstitutionFromArgs pairs declared parameters with supplied arguments.
// Missing trailing arguments fall back to the parameter default, itself
// instantiated against the bindings accumulated so far, and to unknown
// when no default exists.
func SubstitutionFromArgs(in *Interner, params []TypeParamInfo, args []TypeID) *Substitution {
	sub := NewSubstitution(in)
	for i, p := range params {
		switch {
		case i < len(args) && args[i] != NoType:
			sub.Bind(p.Name, args[i])
		case p.Default != NoType:
			sub.Bind(p.Name, in.Instantiate(p.Default, sub))
		default:
			sub.Bind(p.Name, UnknownType)
		}
	}
	return sub
}

// Instantiate rewrites id with every bound type parameter replaced,
// rebuilding containers bottom-up so the result is canonical. Unbound
// parameters and lazy references pass through untouched.
func (in *Interner) Instantiate(id TypeID, sub *Substitution) TypeID {
	return in.instantiate(id, sub, 0)
}

// InstantiateGeneric expands a definition body against explicit arguments.
func (in *Interner) InstantiateGeneric(body TypeID, params []TypeParamInfo, args []TypeID) TypeID {
	if len(params) == 0 {
		return body
	}
	return in.Instantiate(body, SubstitutionFromArgs(in, params, args))
}

func (in *Interner) instantiate(id TypeID, sub *Substitution, depth int) TypeID {
	if depth > maxInstantiationDepth {
		return ErrorType
	}
	key := in.keyOf(id)
	switch key.kind {
	case KindIntrinsic, KindLiteral, KindLazy, KindTypeQuery, KindUniqueSymbol, KindNamespace:
		return id

	case KindTypeParam:
		info := in.paramInfo(ParamID(key.x))
		if t, ok := sub.Lookup(info.Name); ok {
			return t
		}
		return id

	case KindInfer:
		if !sub.includeInfer {
			return id
		}
		info := in.paramInfo(ParamID(key.x))
		if t, ok := sub.Lookup(info.Name); ok {
			return t
		}
		return id

	case KindUnion:
		members, changed := in.instantiateList(in.list(ListID(key.x)), sub, depth)
		if !changed {
			return id
		}
		return in.Union(members...)

	case KindIntersection:
		members, changed := in.instantiateList(in.list(ListID(key.x)), sub, depth)
		if !changed {
			return id
		}
		return in.Intersection(members...)

	case KindObject:
		return in.instantiateObject(id, ShapeID(key.x), sub, depth)

	case KindArray:
		elem := in.instantiate(TypeID(key.x), sub, depth+1)
		if elem == TypeID(key.x) {
			return id
		}
		return in.Array(elem)

	case KindTuple:
		elems := in.tupleList(TupleListID(key.x))
		out := make([]TupleElement, len(elems))
		changed := false
		for i, e := range elems {
			out[i] = e
			out[i].Type = in.instantiate(e.Type, sub, depth+1)
			changed = changed || out[i].Type != e.Type
		}
		if !changed {
			return id
		}
		return in.Tuple(out)

	case KindFunction:
		f, changed := in.instantiateFunc(FuncID(key.x), sub, depth)
		if !changed {
			return id
		}
		return in.Function(f)

	case KindCallable:
		c := in.callableShape(CallableID(key.x))
		out := CallableShape{Shape: c.Shape}
		changed := false
		out.CallSignatures = make([]FuncID, len(c.CallSignatures))
		for i, fid := range c.CallSignatures {
			f, ch := in.instantiateFunc(fid, sub, depth)
			if ch {
				out.CallSignatures[i] = in.internFunc(f)
				changed = true
			} else {
				out.CallSignatures[i] = fid
			}
		}
		out.ConstructSignatures = make([]FuncID, len(c.ConstructSignatures))
		for i, fid := range c.ConstructSignatures {
			f, ch := in.instantiateFunc(fid, sub, depth)
			if ch {
				out.ConstructSignatures[i] = in.internFunc(f)
				changed = true
			} else {
				out.ConstructSignatures[i] = fid
			}
		}
		if c.Shape != 0 {
			shapeType := in.intern(typeKey{kind: KindObject, x: uint32(c.Shape)})
			newShape := in.instantiateObject(shapeType, c.Shape, sub, depth)
			if newShape != shapeType {
				newKey := in.keyOf(newShape)
				out.Shape = ShapeID(newKey.x)
				changed = true
			}
		}
		if !changed {
			return id
		}
		return in.Callable(out)

	case KindApplication:
		base := in.instantiate(TypeID(key.x), sub, depth+1)
		args, argsChanged := in.instantiateList(in.list(ListID(key.y)), sub, depth)
		if base == TypeID(key.x) && !argsChanged {
			return id
		}
		return in.Application(base, args)

	case KindConditional:
		c := in.cond(CondID(key.x))
		// A distributive conditional whose checked parameter binds to a
		// union distributes member by member; never distributes to
		// nothing at all.
		if c.Distributive {
			if info, isParam := in.TypeParamOf(c.Check); isParam {
				if bound, ok := sub.Lookup(info.Name); ok {
					if bound == NeverType {
						return NeverType
					}
					if members, isUnion := in.UnionMembers(bound); isUnion {
						parts := make([]TypeID, len(members))
						for i, m := range members {
							sub.Bind(info.Name, m)
							parts[i] = in.instantiate(id, sub, depth+1)
						}
						sub.Bind(info.Name, bound)
						return in.Union(parts...)
					}
				}
			}
		}
		out := Conditional{
			Check:        in.instantiate(c.Check, sub, depth+1),
			Extends:      in.instantiate(c.Extends, sub, depth+1),
			True:         in.instantiate(c.True, sub, depth+1),
			False:        in.instantiate(c.False, sub, depth+1),
			Distributive: c.Distributive,
		}
		if out == c {
			return id
		}
		return in.Conditional(out)

	case KindMapped:
		m := in.mapped(MappedID(key.x))
		prev, had := sub.shadow(m.Param.Name)
		out := m
		out.Constraint = in.instantiate(m.Constraint, sub, depth+1)
		if m.NameType != NoType {
			out.NameType = in.instantiate(m.NameType, sub, depth+1)
		}
		out.Template = in.instantiate(m.Template, sub, depth+1)
		sub.unshadow(m.Param.Name, prev, had)
		if out == m {
			return id
		}
		return in.Mapped(out)

	case KindTemplate:
		spans := in.spanList(SpanListID(key.x))
		out := make([]TemplateSpan, len(spans))
		changed := false
		for i, s := range spans {
			out[i] = s
			if s.Type != NoType {
				out[i].Type = in.instantiate(s.Type, sub, depth+1)
				changed = changed || out[i].Type != s.Type
			}
		}
		if !changed {
			return id
		}
		return in.Template(out)

	case KindKeyOf:
		inner := in.instantiate(TypeID(key.x), sub, depth+1)
		if inner == TypeID(key.x) {
			return id
		}
		return in.KeyOf(inner)

	case KindIndexAccess:
		obj := in.instantiate(TypeID(key.x), sub, depth+1)
		idx := in.instantiate(TypeID(key.y), sub, depth+1)
		if obj == TypeID(key.x) && idx == TypeID(key.y) {
			return id
		}
		return in.IndexAccess(obj, idx)

	case KindReadonly:
		inner := in.instantiate(TypeID(key.x), sub, depth+1)
		if inner == TypeID(key.x) {
			return id
		}
		return in.Readonly(inner)

	case KindNoInfer:
		inner := in.instantiate(TypeID(key.x), sub, depth+1)
		if inner == TypeID(key.x) {
			return id
		}
		return in.NoInfer(inner)

	case KindStringIntrinsic:
		operand := in.instantiate(TypeID(key.y), sub, depth+1)
		if operand == TypeID(key.y) {
			return id
		}
		return in.StringIntrinsic(StringIntrinsicKind(key.x), operand)
	}
	return id
}

func (in *Interner) instantiateList(members []TypeID, sub *Substitution, depth int) ([]TypeID, bool) {
	out := make([]TypeID, len(members))
	changed := false
	for i, m := range members {
		out[i] = in.instantiate(m, sub, depth+1)
		changed = changed || out[i] != m
	}
	return out, changed
}

func (in *Interner) instantiateObject(id TypeID, shapeID ShapeID, sub *Substitution, depth int) TypeID {
	shape := in.shape(shapeID)
	out := ObjectShape{Flags: shape.Flags}
	changed := false
	out.Properties = make([]Property, len(shape.Properties))
	for i, p := range shape.Properties {
		out.Properties[i] = p
		out.Properties[i].Type = in.instantiate(p.Type, sub, depth+1)
		out.Properties[i].WriteType = in.instantiate(p.WriteType, sub, depth+1)
		changed = changed || out.Properties[i].Type != p.Type || out.Properties[i].WriteType != p.WriteType
	}
	instIndex := func(sig *IndexSignature) *IndexSignature {
		if sig == nil {
			return nil
		}
		cp := *sig
		cp.Value = in.instantiate(sig.Value, sub, depth+1)
		changed = changed || cp.Value != sig.Value
		return &cp
	}
	out.StringIndex = instIndex(shape.StringIndex)
	out.NumberIndex = instIndex(shape.NumberIndex)
	if !changed {
		return id
	}
	return in.ObjectWithIndex(out)
}

func (in *Interner) instantiateFunc(id FuncID, sub *Substitution, depth int) (FunctionShape, bool) {
	f := in.funcShape(id)
	var shadowed []struct {
		name StringID
		prev TypeID
		had  bool
	}
	for _, tp := range f.TypeParams {
		prev, had := sub.shadow(tp.Name)
		shadowed = append(shadowed, struct {
			name StringID
			prev TypeID
			had  bool
		}{tp.Name, prev, had})
	}
	defer func() {
		for i := len(shadowed) - 1; i >= 0; i-- {
			sub.unshadow(shadowed[i].name, shadowed[i].prev, shadowed[i].had)
		}
	}()

	out := FunctionShape{
		TypeParams:  f.TypeParams,
		This:        f.This,
		Return:      in.instantiate(f.Return, sub, depth+1),
		Constructor: f.Constructor,
		Method:      f.Method,
	}
	changed := out.Return != f.Return
	out.Params = make([]Param, len(f.Params))
	for i, p := range f.Params {
		out.Params[i] = p
		out.Params[i].Type = in.instantiate(p.Type, sub, depth+1)
		changed = changed || out.Params[i].Type != p.Type
	}
	if f.This != NoType {
		out.This = in.instantiate(f.This, sub, depth+1)
		changed = changed || out.This != f.This
	}
	if f.Predicate != nil {
		cp := *f.Predicate
		cp.Type = in.instantiate(f.Predicate.Type, sub, depth+1)
		out.Predicate = &cp
		changed = changed || cp.Type != f.Predicate.Type
	}
	return out, changed
}
