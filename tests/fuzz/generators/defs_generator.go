package generators

import (
	"fmt"

	"github.com/funvibe/deft/internal/typesystem"
)

// DefGenerator fills a definition store with random aliases, including
// recursive and mutually referential ones, so evaluation fuzzing can
// exercise cycle handling.
type DefGenerator struct {
	*Builder
	defs *typesystem.DefStore
	ids  []typesystem.DefID
}

func NewDefGenerator(data []byte, in *typesystem.Interner, defs *typesystem.DefStore) *DefGenerator {
	return &DefGenerator{Builder: NewBuilder(data, in), defs: defs}
}

// PopulateDefs registers count aliases in two passes: names first, then
// bodies, so any body can reference any name, forward or backward.
func (g *DefGenerator) PopulateDefs(count int) []typesystem.DefID {
	g.ids = make([]typesystem.DefID, count)
	for i := 0; i < count; i++ {
		g.ids[i] = g.defs.AddTypeAlias(fmt.Sprintf("D%d", i), nil, typesystem.UnknownType)
	}
	for i := 0; i < count; i++ {
		if g.Intn(4) == 0 {
			info := typesystem.TypeParamInfo{Name: g.in.InternString("T")}
			g.defs.SetParams(g.ids[i], []typesystem.TypeParamInfo{info})
			g.defs.SetBody(g.ids[i], g.in.Object([]typesystem.Property{{
				Name: g.in.InternString("value"),
				Type: g.in.TypeParameter(info),
			}}))
			continue
		}
		g.defs.SetBody(g.ids[i], g.buildDefBody(i))
	}
	return g.ids
}

// buildDefBody builds an alias body that may reference other aliases, the
// alias itself included.
func (g *DefGenerator) buildDefBody(i int) typesystem.TypeID {
	switch g.Intn(5) {
	case 0:
		return g.in.Lazy(g.ids[g.Intn(len(g.ids))])
	case 1:
		return g.in.Array(g.in.Lazy(g.ids[g.Intn(len(g.ids))]))
	case 2:
		return g.in.Union(typesystem.NullType, g.in.Lazy(g.ids[i]))
	case 3:
		return g.in.Object([]typesystem.Property{{
			Name:     g.in.InternString("next"),
			Type:     g.in.Lazy(g.ids[i]),
			Optional: true,
		}})
	default:
		return g.BuildType()
	}
}

// ReferenceType returns a random reference to one of the registered
// aliases, applied when the alias is generic.
func (g *DefGenerator) ReferenceType() typesystem.TypeID {
	id := g.ids[g.Intn(len(g.ids))]
	if d, ok := g.defs.Definition(id); ok && len(d.TypeParams) > 0 {
		return g.in.Application(g.in.Lazy(id), []typesystem.TypeID{g.BuildType()})
	}
	return g.in.Lazy(id)
}
