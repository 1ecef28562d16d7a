// Package generators produces random but syntactically well-formed type
// notation, plus directly interned type structures, for the fuzz targets.
package generators

import (
	"fmt"
	"math/rand"
	"strings"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness. Exhausted data
// keeps answering zero, which collapses generation toward leaves.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 255.0
}

// Generator generates random type notation.
type Generator struct {
	src   RandomSource
	depth int
}

// MaxDepth caps nesting; past it generation emits leaves only.
const MaxDepth = 5

var (
	primitives = []string{
		"string", "number", "boolean", "any", "unknown", "never", "void",
		"undefined", "null", "bigint", "symbol", "object", "true", "false",
	}
	memberNames = []string{"a", "b", "c", "id", "kind", "name", "value", "size"}
	words       = []string{"red", "green", "blue", "circle", "square", "on", "off"}
	typeofTags  = []string{"string", "number", "boolean", "bigint", "symbol", "undefined", "object", "function"}
)

func New(seed int64) *Generator {
	return &Generator{src: &RandSource{rand.New(rand.NewSource(seed))}}
}

func NewFromData(data []byte) *Generator {
	return &Generator{src: &ByteSource{data: data}}
}

// Intn exposes the random source's Intn method for embedded structs.
func (g *Generator) Intn(n int) int {
	return g.src.Intn(n)
}

// Src returns the random source of the generator.
func (g *Generator) Src() RandomSource {
	return g.src
}

// GenerateSource wraps one type expression in optional noise the lexer
// must skip.
func (g *Generator) GenerateSource() string {
	return g.GenerateNoise() + g.GenerateType() + g.GenerateNoise()
}

// GenerateNoise emits whitespace or a comment with low probability.
func (g *Generator) GenerateNoise() string {
	if g.src.Intn(10) != 0 {
		return ""
	}
	switch g.src.Intn(4) {
	case 0:
		return "  "
	case 1:
		return "\n"
	case 2:
		return "/* note */ "
	default:
		return "\t"
	}
}

// GenerateType emits one type expression. Every production composes out
// of smaller valid expressions, so the result always lexes and parses.
func (g *Generator) GenerateType() string {
	if g.depth > MaxDepth {
		return g.GenerateLeaf()
	}
	g.depth++
	defer func() { g.depth-- }()

	// Weighted choice; leaves dominate so depth stays shallow on average.
	choice := g.src.Intn(20)
	switch {
	case choice < 6:
		return g.GenerateLeaf()
	case choice < 8:
		return g.GenerateUnion()
	case choice < 9:
		return g.GenerateIntersection()
	case choice < 10:
		return g.GeneratePostfix()
	case choice < 12:
		return g.GenerateObject()
	case choice < 13:
		return g.GenerateTuple()
	case choice < 15:
		return g.GenerateSignature()
	case choice < 16:
		return g.GenerateMapped()
	case choice < 17:
		return g.GenerateTemplate()
	case choice < 18:
		return g.GenerateConditional()
	case choice < 19:
		return g.GenerateOperator()
	default:
		return "(" + g.GenerateType() + ")"
	}
}

func (g *Generator) GenerateLeaf() string {
	switch g.src.Intn(8) {
	case 0, 1, 2, 3:
		return primitives[g.src.Intn(len(primitives))]
	case 4:
		return fmt.Sprintf("%q", words[g.src.Intn(len(words))])
	case 5:
		return fmt.Sprintf("%d", g.src.Intn(201)-100)
	case 6:
		return fmt.Sprintf("%d.5", g.src.Intn(100))
	default:
		return fmt.Sprintf("%dn", g.src.Intn(1000))
	}
}

func (g *Generator) GenerateUnion() string {
	count := g.src.Intn(2) + 2
	members := make([]string, count)
	for i := range members {
		members[i] = g.GenerateType()
	}
	return strings.Join(members, " | ")
}

func (g *Generator) GenerateIntersection() string {
	return g.GenerateType() + " & " + g.GenerateType()
}

// GeneratePostfix emits array and indexed-access suffixes. Composite
// operands get parenthesized half the time for variety; both spellings
// are valid.
func (g *Generator) GeneratePostfix() string {
	base := g.GenerateType()
	if g.src.Intn(2) == 0 {
		base = "(" + base + ")"
	}
	switch g.src.Intn(4) {
	case 0:
		return base + "[][]"
	case 1:
		return fmt.Sprintf("%s[%q]", base, memberNames[g.src.Intn(len(memberNames))])
	case 2:
		return base + "[number]"
	default:
		return base + "[]"
	}
}

func (g *Generator) GenerateObject() string {
	count := g.src.Intn(4)
	if count == 0 {
		return "{}"
	}
	var members []string
	used := map[string]bool{}
	for i := 0; i < count; i++ {
		name := memberNames[g.src.Intn(len(memberNames))]
		if used[name] {
			continue
		}
		used[name] = true
		prefix := ""
		if g.src.Intn(5) == 0 {
			prefix = "readonly "
		}
		opt := ""
		if g.src.Intn(4) == 0 {
			opt = "?"
		}
		members = append(members, fmt.Sprintf("%s%s%s: %s", prefix, name, opt, g.GenerateType()))
	}
	if g.src.Intn(4) == 0 {
		if g.src.Intn(2) == 0 {
			members = append(members, "[k: string]: "+g.GenerateType())
		} else {
			members = append(members, "[i: number]: "+g.GenerateType())
		}
	}
	if len(members) == 0 {
		return "{}"
	}
	sep := "; "
	if g.src.Intn(4) == 0 {
		sep = ", "
	}
	return "{ " + strings.Join(members, sep) + " }"
}

func (g *Generator) GenerateTuple() string {
	count := g.src.Intn(3)
	if count == 0 {
		return "[]"
	}
	var elems []string
	for i := 0; i < count; i++ {
		elem := g.GenerateType()
		switch g.src.Intn(5) {
		case 0:
			elem += "?"
		case 1:
			elem = fmt.Sprintf("%s: %s", memberNames[g.src.Intn(len(memberNames))], elem)
		}
		elems = append(elems, elem)
	}
	if g.src.Intn(4) == 0 {
		elems = append(elems, "..."+g.GenerateLeaf()+"[]")
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

func (g *Generator) GenerateSignature() string {
	var sb strings.Builder
	generic := g.src.Intn(5) == 0
	if g.src.Intn(5) == 0 {
		sb.WriteString("new ")
		generic = false
	}
	if generic {
		if g.src.Intn(2) == 0 {
			sb.WriteString("<T extends " + g.GenerateLeaf() + ">")
		} else {
			sb.WriteString("<T>")
		}
	}
	sb.WriteByte('(')
	count := g.src.Intn(3)
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		opt := ""
		if g.src.Intn(4) == 0 {
			opt = "?"
		}
		pt := g.GenerateType()
		if generic && g.src.Intn(2) == 0 {
			pt = "T"
		}
		fmt.Fprintf(&sb, "p%d%s: %s", i, opt, pt)
	}
	if g.src.Intn(5) == 0 {
		if count > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...rest: " + g.GenerateLeaf() + "[]")
	}
	sb.WriteString(") => ")
	switch {
	case generic && g.src.Intn(2) == 0:
		sb.WriteString("T")
	case !generic && count > 0 && g.src.Intn(6) == 0:
		sb.WriteString("p0 is " + g.GenerateType())
	default:
		sb.WriteString(g.GenerateType())
	}
	return sb.String()
}

func (g *Generator) GenerateMapped() string {
	var sb strings.Builder
	sb.WriteString("{ ")
	switch g.src.Intn(6) {
	case 0:
		sb.WriteString("readonly ")
	case 1:
		sb.WriteString("-readonly ")
	}
	sb.WriteString("[K in ")
	switch g.src.Intn(3) {
	case 0:
		fmt.Fprintf(&sb, "%q | %q", words[g.src.Intn(len(words))], memberNames[g.src.Intn(len(memberNames))])
	case 1:
		sb.WriteString("keyof " + g.GenerateObject())
	default:
		sb.WriteString("string")
	}
	if g.src.Intn(4) == 0 {
		sb.WriteString(" as Uppercase<K>")
	}
	sb.WriteByte(']')
	switch g.src.Intn(6) {
	case 0:
		sb.WriteString("?")
	case 1:
		sb.WriteString("-?")
	}
	sb.WriteString(": ")
	if g.src.Intn(4) == 0 {
		sb.WriteString("K")
	} else {
		sb.WriteString(g.GenerateType())
	}
	sb.WriteString(" }")
	return sb.String()
}

func (g *Generator) GenerateTemplate() string {
	var sb strings.Builder
	sb.WriteByte('`')
	holes := g.src.Intn(2) + 1
	for i := 0; i < holes; i++ {
		if g.src.Intn(2) == 0 {
			sb.WriteString(words[g.src.Intn(len(words))])
		}
		sb.WriteString("${")
		sb.WriteString(g.GenerateType())
		sb.WriteByte('}')
	}
	if g.src.Intn(2) == 0 {
		sb.WriteString(words[g.src.Intn(len(words))])
	}
	sb.WriteByte('`')
	return sb.String()
}

// GenerateConditional emits `C extends E ? T : F`. The extends operand
// stays at union precedence, so composite operands get parenthesized.
func (g *Generator) GenerateConditional() string {
	if g.src.Intn(3) == 0 {
		return fmt.Sprintf("%s extends (infer E)[] ? E : %s", g.GenerateType(), g.GenerateType())
	}
	ext := g.GenerateLeaf()
	if g.src.Intn(3) == 0 {
		ext = "(" + g.GenerateType() + ")"
	}
	return fmt.Sprintf("%s extends %s ? %s : %s",
		g.GenerateType(), ext, g.GenerateType(), g.GenerateType())
}

func (g *Generator) GenerateOperator() string {
	switch g.src.Intn(5) {
	case 0:
		return "keyof " + g.GenerateType()
	case 1:
		return "readonly " + g.GenerateLeaf() + "[]"
	case 2:
		name := []string{"Uppercase", "Lowercase", "Capitalize", "Uncapitalize"}[g.src.Intn(4)]
		return fmt.Sprintf("%s<%s>", name, g.GenerateType())
	case 3:
		return fmt.Sprintf("NoInfer<%s>", g.GenerateType())
	default:
		return fmt.Sprintf("%s[%q]", g.GenerateObject(), memberNames[g.src.Intn(len(memberNames))])
	}
}

// GenerateTypeofTag picks a typeof operand tag, occasionally one the
// narrower does not recognize.
func (g *Generator) GenerateTypeofTag() string {
	if g.src.Intn(8) == 0 {
		return "wibble"
	}
	return typeofTags[g.src.Intn(len(typeofTags))]
}
