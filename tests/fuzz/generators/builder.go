package generators

import (
	"fmt"

	"github.com/funvibe/deft/internal/typesystem"
)

// Builder interns random type structures directly, without going through
// the parser. It stays on the closed, printable surface: no lazy
// references, no free type parameters, no overload sets, so every built
// type renders to notation that parses back to the same handle.
type Builder struct {
	*Generator
	in *typesystem.Interner
}

func NewBuilder(data []byte, in *typesystem.Interner) *Builder {
	return &Builder{Generator: NewFromData(data), in: in}
}

var builtinIDs = []typesystem.TypeID{
	typesystem.StringType, typesystem.NumberType, typesystem.BooleanType,
	typesystem.AnyType, typesystem.UnknownType, typesystem.NeverType,
	typesystem.VoidType, typesystem.UndefinedType, typesystem.NullType,
	typesystem.BigIntType, typesystem.SymbolType, typesystem.ObjectKeyword,
	typesystem.TrueType, typesystem.FalseType,
}

// BuildType interns one random type.
func (b *Builder) BuildType() typesystem.TypeID {
	if b.depth > MaxDepth {
		return b.buildLeaf()
	}
	b.depth++
	defer func() { b.depth-- }()

	switch b.Intn(14) {
	case 0:
		return b.in.Union(b.BuildType(), b.BuildType())
	case 1:
		return b.in.Intersection(b.BuildType(), b.BuildType())
	case 2:
		return b.in.Array(b.BuildType())
	case 3:
		return b.in.Readonly(b.in.Array(b.buildLeaf()))
	case 4:
		return b.BuildObject()
	case 5:
		return b.buildTuple()
	case 6:
		return b.buildSignature()
	case 7:
		return b.in.KeyOf(b.BuildType())
	case 8:
		return b.in.IndexAccess(b.BuildObject(), typesystem.StringType)
	case 9:
		return b.buildTemplate()
	case 10:
		return b.buildConditional()
	case 11:
		return b.buildMapped()
	case 12:
		kinds := []typesystem.StringIntrinsicKind{
			typesystem.StringUppercase, typesystem.StringLowercase,
			typesystem.StringCapitalize, typesystem.StringUncapitalize,
		}
		return b.in.StringIntrinsic(kinds[b.Intn(4)], b.BuildType())
	default:
		return b.buildLeaf()
	}
}

func (b *Builder) buildLeaf() typesystem.TypeID {
	switch b.Intn(6) {
	case 0:
		return b.in.LiteralString(words[b.Intn(len(words))])
	case 1:
		return b.in.LiteralNumber(float64(b.Intn(201) - 100))
	case 2:
		return b.in.LiteralNumber(float64(b.Intn(100)) + 0.5)
	case 3:
		return b.in.LiteralBoolean(b.Intn(2) == 0)
	default:
		return builtinIDs[b.Intn(len(builtinIDs))]
	}
}

// BuildObject interns a random object, sometimes with an index signature.
func (b *Builder) BuildObject() typesystem.TypeID {
	count := b.Intn(4)
	var props []typesystem.Property
	used := map[string]bool{}
	for i := 0; i < count; i++ {
		name := memberNames[b.Intn(len(memberNames))]
		if used[name] {
			continue
		}
		used[name] = true
		props = append(props, typesystem.Property{
			Name:     b.in.InternString(name),
			Type:     b.BuildType(),
			Optional: b.Intn(4) == 0,
			Readonly: b.Intn(5) == 0,
		})
	}
	if b.Intn(5) == 0 {
		shape := typesystem.ObjectShape{Properties: props}
		if b.Intn(2) == 0 {
			shape.StringIndex = &typesystem.IndexSignature{Key: typesystem.StringType, Value: b.BuildType()}
		} else {
			shape.NumberIndex = &typesystem.IndexSignature{Key: typesystem.NumberType, Value: b.BuildType()}
		}
		return b.in.ObjectWithIndex(shape)
	}
	return b.in.Object(props)
}

func (b *Builder) buildTuple() typesystem.TypeID {
	count := b.Intn(3)
	var elems []typesystem.TupleElement
	for i := 0; i < count; i++ {
		elem := typesystem.TupleElement{Type: b.BuildType()}
		switch b.Intn(5) {
		case 0:
			elem.Optional = true
		case 1:
			elem.Name = b.in.InternString(memberNames[b.Intn(len(memberNames))])
		}
		elems = append(elems, elem)
	}
	if b.Intn(4) == 0 {
		elems = append(elems, typesystem.TupleElement{Type: b.in.Array(b.buildLeaf()), Rest: true})
	}
	return b.in.Tuple(elems)
}

// buildSignature interns a function or constructor. Parameters always get
// names because rendering invents none.
func (b *Builder) buildSignature() typesystem.TypeID {
	shape := typesystem.FunctionShape{Return: b.BuildType()}
	count := b.Intn(3)
	for i := 0; i < count; i++ {
		shape.Params = append(shape.Params, typesystem.Param{
			Name:     b.in.InternString(fmt.Sprintf("p%d", i)),
			Type:     b.BuildType(),
			Optional: b.Intn(4) == 0,
		})
	}
	switch {
	case b.Intn(5) == 0:
		shape.Constructor = true
	case count > 0 && b.Intn(6) == 0:
		// Guards always return boolean.
		shape.Predicate = &typesystem.TypePredicate{Param: shape.Params[0].Name, Type: b.BuildType()}
		shape.Return = typesystem.BooleanType
	case b.Intn(5) == 0:
		shape.Params = append(shape.Params, typesystem.Param{
			Name: b.in.InternString("rest"),
			Type: b.in.Array(b.buildLeaf()),
			Rest: true,
		})
	}
	return b.in.Function(shape)
}

func (b *Builder) buildTemplate() typesystem.TypeID {
	var spans []typesystem.TemplateSpan
	holes := b.Intn(2) + 1
	for i := 0; i < holes; i++ {
		if b.Intn(2) == 0 {
			spans = append(spans, typesystem.TemplateSpan{Text: b.in.InternString(words[b.Intn(len(words))])})
		}
		spans = append(spans, typesystem.TemplateSpan{Type: b.BuildType()})
	}
	if b.Intn(2) == 0 {
		spans = append(spans, typesystem.TemplateSpan{Text: b.in.InternString(words[b.Intn(len(words))])})
	}
	return b.in.Template(spans)
}

// buildConditional interns a closed conditional. The check is never a bare
// parameter, so it does not distribute.
func (b *Builder) buildConditional() typesystem.TypeID {
	return b.in.Conditional(typesystem.Conditional{
		Check:   b.BuildType(),
		Extends: b.BuildType(),
		True:    b.BuildType(),
		False:   b.BuildType(),
	})
}

func (b *Builder) buildMapped() typesystem.TypeID {
	info := typesystem.TypeParamInfo{Name: b.in.InternString("K")}
	m := typesystem.MappedShape{
		Param:    info,
		Template: b.BuildType(),
	}
	switch b.Intn(3) {
	case 0:
		m.Constraint = b.in.Union(
			b.in.LiteralString(words[b.Intn(len(words))]),
			b.in.LiteralString(memberNames[b.Intn(len(memberNames))]),
		)
	case 1:
		m.Constraint = b.in.KeyOf(b.BuildObject())
	default:
		m.Constraint = typesystem.StringType
	}
	switch b.Intn(6) {
	case 0:
		m.Readonly = typesystem.ModifierAdd
	case 1:
		m.Readonly = typesystem.ModifierRemove
	}
	switch b.Intn(6) {
	case 0:
		m.Optional = typesystem.ModifierAdd
	case 1:
		m.Optional = typesystem.ModifierRemove
	}
	if b.Intn(4) == 0 {
		m.NameType = b.in.StringIntrinsic(typesystem.StringUppercase, b.in.TypeParameter(info))
	}
	if b.Intn(4) == 0 {
		m.Template = b.in.TypeParameter(info)
	}
	return b.in.Mapped(m)
}

// BuildGuard produces a random runtime check for narrowing.
func (b *Builder) BuildGuard() typesystem.Guard {
	g := typesystem.Guard{Assume: b.Intn(2) == 0}
	switch b.Intn(8) {
	case 0:
		g.Kind = typesystem.GuardTypeof
		g.Tag = b.GenerateTypeofTag()
	case 1:
		g.Kind = typesystem.GuardInstanceof
		g.Target = b.BuildObject()
	case 2:
		g.Kind = typesystem.GuardIn
		g.Property = memberNames[b.Intn(len(memberNames))]
	case 3:
		g.Kind = typesystem.GuardTruthiness
	case 4:
		g.Kind = typesystem.GuardEquals
		g.Target = b.buildUnitTarget()
		g.Loose = b.Intn(2) == 0
	case 5:
		g.Kind = typesystem.GuardDiscriminant
		g.Property = memberNames[b.Intn(len(memberNames))]
		g.Target = b.buildUnitTarget()
	case 6:
		g.Kind = typesystem.GuardPredicate
		g.Target = b.BuildType()
	default:
		g.Kind = typesystem.GuardEveryElement
		g.Target = b.BuildType()
	}
	return g
}

func (b *Builder) buildUnitTarget() typesystem.TypeID {
	switch b.Intn(5) {
	case 0:
		return b.in.LiteralString(words[b.Intn(len(words))])
	case 1:
		return b.in.LiteralNumber(float64(b.Intn(10)))
	case 2:
		return typesystem.TrueType
	case 3:
		return typesystem.NullType
	default:
		return typesystem.UndefinedType
	}
}
