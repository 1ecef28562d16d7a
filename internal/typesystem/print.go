package typesystem

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// DefNamer supplies display names for definitions during rendering.
// DefStore implements it; renderers fall back to numbered placeholders
// when no namer is available.
type DefNamer interface {
	DefName(def DefID) (string, bool)
}

// DefName implements DefNamer.
func (s *DefStore) DefName(def DefID) (string, bool) {
	d, ok := s.Definition(def)
	if !ok {
		return "", false
	}
	return d.Name, true
}

// Sprint renders a type for diagnostics. Output is deterministic: equal
// handles always render identically, and canonical member order carries
// through unchanged.
func (in *Interner) Sprint(id TypeID) string {
	return in.SprintWith(nil, id)
}

// SprintWith renders a type, resolving definition references to their
// declared names through namer.
func (in *Interner) SprintWith(namer DefNamer, id TypeID) string {
	p := &printer{in: in, namer: namer}
	p.print(id, precTop)
	return p.sb.String()
}

type printPrec int

const (
	precTop printPrec = iota
	precUnion
	precIntersection
	precPostfix
)

type printer struct {
	in    *Interner
	namer DefNamer
	sb    strings.Builder
}

func (p *printer) defName(def DefID) string {
	if p.namer != nil {
		if name, ok := p.namer.DefName(def); ok {
			return name
		}
	}
	return fmt.Sprintf("ref#%d", def)
}

func (p *printer) print(id TypeID, prec printPrec) {
	key := p.in.keyOf(id)
	switch key.kind {
	case KindIntrinsic:
		p.sb.WriteString(intrinsicName(Intrinsic(key.x)))
	case KindLiteral:
		p.printLiteral(id)
	case KindUnion:
		p.printJoined(ListID(key.x), " | ", prec > precUnion, precUnion)
	case KindIntersection:
		p.printJoined(ListID(key.x), " & ", prec > precIntersection, precIntersection)
	case KindObject:
		p.printObject(p.in.shape(ShapeID(key.x)))
	case KindArray:
		p.print(TypeID(key.x), precPostfix)
		p.sb.WriteString("[]")
	case KindTuple:
		p.printTuple(p.in.tupleList(TupleListID(key.x)))
	case KindFunction:
		p.printSignature(p.in.funcShape(FuncID(key.x)), prec > precTop)
	case KindCallable:
		p.printCallable(p.in.callableShape(CallableID(key.x)))
	case KindTypeParam:
		p.sb.WriteString(p.in.StringOf(p.in.paramInfo(ParamID(key.x)).Name))
	case KindInfer:
		if prec > precUnion {
			p.sb.WriteByte('(')
		}
		p.sb.WriteString("infer ")
		p.sb.WriteString(p.in.StringOf(p.in.paramInfo(ParamID(key.x)).Name))
		if prec > precUnion {
			p.sb.WriteByte(')')
		}
	case KindLazy:
		p.sb.WriteString(p.defName(DefID(key.x)))
	case KindTypeQuery:
		p.sb.WriteString("typeof ")
		p.sb.WriteString(p.defName(DefID(key.x)))
	case KindApplication:
		p.print(TypeID(key.x), precPostfix)
		p.sb.WriteByte('<')
		for i, arg := range p.in.list(ListID(key.y)) {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.print(arg, precTop)
		}
		p.sb.WriteByte('>')
	case KindConditional:
		c := p.in.cond(CondID(key.x))
		if prec > precTop {
			p.sb.WriteByte('(')
		}
		p.print(c.Check, precUnion)
		p.sb.WriteString(" extends ")
		p.print(c.Extends, precUnion)
		p.sb.WriteString(" ? ")
		p.print(c.True, precTop)
		p.sb.WriteString(" : ")
		p.print(c.False, precTop)
		if prec > precTop {
			p.sb.WriteByte(')')
		}
	case KindMapped:
		p.printMapped(p.in.mapped(MappedID(key.x)))
	case KindTemplate:
		p.printTemplate(p.in.spanList(SpanListID(key.x)))
	case KindKeyOf:
		if prec > precUnion {
			p.sb.WriteByte('(')
		}
		p.sb.WriteString("keyof ")
		p.print(TypeID(key.x), precPostfix)
		if prec > precUnion {
			p.sb.WriteByte(')')
		}
	case KindIndexAccess:
		p.print(TypeID(key.x), precPostfix)
		p.sb.WriteByte('[')
		p.print(TypeID(key.y), precTop)
		p.sb.WriteByte(']')
	case KindReadonly:
		if prec > precUnion {
			p.sb.WriteByte('(')
		}
		p.sb.WriteString("readonly ")
		p.print(TypeID(key.x), precPostfix)
		if prec > precUnion {
			p.sb.WriteByte(')')
		}
	case KindNoInfer:
		p.sb.WriteString("NoInfer<")
		p.print(TypeID(key.x), precTop)
		p.sb.WriteByte('>')
	case KindUniqueSymbol:
		p.sb.WriteString("unique symbol")
	case KindNamespace:
		p.sb.WriteString("typeof ")
		p.sb.WriteString(p.defName(DefID(key.x)))
	case KindStringIntrinsic:
		p.sb.WriteString(stringIntrinsicName(StringIntrinsicKind(key.x)))
		p.sb.WriteByte('<')
		p.print(TypeID(key.y), precTop)
		p.sb.WriteByte('>')
	default:
		p.sb.WriteString("<invalid>")
	}
}

func intrinsicName(k Intrinsic) string {
	switch k {
	case IntrinsicError:
		return "error"
	case IntrinsicNever:
		return "never"
	case IntrinsicUnknown:
		return "unknown"
	case IntrinsicAny:
		return "any"
	case IntrinsicVoid:
		return "void"
	case IntrinsicUndefined:
		return "undefined"
	case IntrinsicNull:
		return "null"
	case IntrinsicBoolean:
		return "boolean"
	case IntrinsicNumber:
		return "number"
	case IntrinsicString:
		return "string"
	case IntrinsicBigInt:
		return "bigint"
	case IntrinsicSymbol:
		return "symbol"
	case IntrinsicObject:
		return "object"
	default:
		return "<invalid>"
	}
}

func stringIntrinsicName(k StringIntrinsicKind) string {
	switch k {
	case StringUppercase:
		return "Uppercase"
	case StringLowercase:
		return "Lowercase"
	case StringCapitalize:
		return "Capitalize"
	default:
		return "Uncapitalize"
	}
}

// FormatNumber renders a number literal value the way diagnostics quote
// it: integers bare, everything else in shortest round-trip form.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (p *printer) printLiteral(id TypeID) {
	v, _ := p.in.LiteralOf(id)
	switch v.Kind {
	case LitString:
		p.sb.WriteString(strconv.Quote(p.in.StringOf(v.Str)))
	case LitNumber:
		p.sb.WriteString(FormatNumber(v.Num))
	case LitBoolean:
		if v.Bool {
			p.sb.WriteString("true")
		} else {
			p.sb.WriteString("false")
		}
	case LitBigInt:
		if v.Neg {
			p.sb.WriteByte('-')
		}
		p.sb.WriteString(p.in.StringOf(v.Str))
		p.sb.WriteByte('n')
	}
}

func (p *printer) printJoined(list ListID, sep string, parens bool, prec printPrec) {
	if parens {
		p.sb.WriteByte('(')
	}
	for i, m := range p.in.list(list) {
		if i > 0 {
			p.sb.WriteString(sep)
		}
		p.print(m, prec+1)
	}
	if parens {
		p.sb.WriteByte(')')
	}
}

func (p *printer) printObject(shape *ObjectShape) {
	if len(shape.Properties) == 0 && shape.StringIndex == nil && shape.NumberIndex == nil {
		p.sb.WriteString("{}")
		return
	}
	p.sb.WriteString("{ ")
	first := true
	emit := func() {
		if !first {
			p.sb.WriteString("; ")
		}
		first = false
	}
	for _, prop := range shape.Properties {
		emit()
		if prop.Readonly {
			p.sb.WriteString("readonly ")
		}
		p.printMemberName(prop.Name)
		if prop.Optional {
			p.sb.WriteByte('?')
		}
		p.sb.WriteString(": ")
		p.print(prop.Type, precTop)
	}
	if shape.StringIndex != nil {
		emit()
		if shape.StringIndex.Readonly {
			p.sb.WriteString("readonly ")
		}
		p.sb.WriteString("[key: string]: ")
		p.print(shape.StringIndex.Value, precTop)
	}
	if shape.NumberIndex != nil {
		emit()
		if shape.NumberIndex.Readonly {
			p.sb.WriteString("readonly ")
		}
		p.sb.WriteString("[index: number]: ")
		p.print(shape.NumberIndex.Value, precTop)
	}
	p.sb.WriteString(" }")
}

// printMemberName quotes property names the notation cannot carry bare.
func (p *printer) printMemberName(name StringID) {
	s := p.in.StringOf(name)
	if isIdentName(s) {
		p.sb.WriteString(s)
		return
	}
	p.sb.WriteString(strconv.Quote(s))
}

// isIdentName mirrors the notation's identifier rule.
func isIdentName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r == '_' || r == '$':
		case r >= 0x80 && unicode.IsLetter(r):
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (p *printer) printTuple(elems []TupleElement) {
	p.sb.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		if e.Rest {
			p.sb.WriteString("...")
		}
		if e.Name != NoString {
			p.sb.WriteString(p.in.StringOf(e.Name))
			if e.Optional {
				p.sb.WriteByte('?')
			}
			p.sb.WriteString(": ")
			p.print(e.Type, precTop)
			continue
		}
		p.print(e.Type, precTop)
		if e.Optional {
			p.sb.WriteByte('?')
		}
	}
	p.sb.WriteByte(']')
}

func (p *printer) printSignature(f *FunctionShape, parens bool) {
	if parens {
		p.sb.WriteByte('(')
	}
	if f.Constructor {
		p.sb.WriteString("new ")
	}
	if len(f.TypeParams) > 0 {
		p.sb.WriteByte('<')
		for i, tp := range f.TypeParams {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.sb.WriteString(p.in.StringOf(tp.Name))
			if tp.Constraint != NoType {
				p.sb.WriteString(" extends ")
				p.print(tp.Constraint, precUnion)
			}
			if tp.Default != NoType {
				p.sb.WriteString(" = ")
				p.print(tp.Default, precUnion)
			}
		}
		p.sb.WriteByte('>')
	}
	p.sb.WriteByte('(')
	for i, param := range f.Params {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		if param.Rest {
			p.sb.WriteString("...")
		}
		if param.Name != NoString {
			p.sb.WriteString(p.in.StringOf(param.Name))
		} else {
			p.sb.WriteString("arg" + strconv.Itoa(i))
		}
		if param.Optional {
			p.sb.WriteByte('?')
		}
		p.sb.WriteString(": ")
		p.print(param.Type, precTop)
	}
	p.sb.WriteString(") => ")
	if f.Predicate != nil {
		p.sb.WriteString(p.in.StringOf(f.Predicate.Param))
		p.sb.WriteString(" is ")
		p.print(f.Predicate.Type, precTop)
	} else {
		p.print(f.Return, precTop)
	}
	if parens {
		p.sb.WriteByte(')')
	}
}

func (p *printer) printCallable(c *CallableShape) {
	p.sb.WriteString("{ ")
	first := true
	emit := func() {
		if !first {
			p.sb.WriteString("; ")
		}
		first = false
	}
	for _, f := range c.CallSignatures {
		emit()
		p.printCallableSig(p.in.funcShape(f))
	}
	for _, f := range c.ConstructSignatures {
		emit()
		p.sb.WriteString("new ")
		p.printCallableSig(p.in.funcShape(f))
	}
	if c.Shape != 0 {
		shape := p.in.shape(c.Shape)
		for _, prop := range shape.Properties {
			emit()
			p.sb.WriteString(p.in.StringOf(prop.Name))
			if prop.Optional {
				p.sb.WriteByte('?')
			}
			p.sb.WriteString(": ")
			p.print(prop.Type, precTop)
		}
	}
	p.sb.WriteString(" }")
}

func (p *printer) printCallableSig(f *FunctionShape) {
	p.sb.WriteByte('(')
	for i, param := range f.Params {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		if param.Rest {
			p.sb.WriteString("...")
		}
		if param.Name != NoString {
			p.sb.WriteString(p.in.StringOf(param.Name))
		} else {
			p.sb.WriteString("arg" + strconv.Itoa(i))
		}
		if param.Optional {
			p.sb.WriteByte('?')
		}
		p.sb.WriteString(": ")
		p.print(param.Type, precTop)
	}
	p.sb.WriteString("): ")
	p.print(f.Return, precTop)
}

func (p *printer) printMapped(m MappedShape) {
	p.sb.WriteString("{ ")
	switch m.Readonly {
	case ModifierAdd:
		p.sb.WriteString("readonly ")
	case ModifierRemove:
		p.sb.WriteString("-readonly ")
	}
	p.sb.WriteByte('[')
	p.sb.WriteString(p.in.StringOf(m.Param.Name))
	p.sb.WriteString(" in ")
	p.print(m.Constraint, precTop)
	if m.NameType != NoType {
		p.sb.WriteString(" as ")
		p.print(m.NameType, precTop)
	}
	p.sb.WriteByte(']')
	switch m.Optional {
	case ModifierAdd:
		p.sb.WriteByte('?')
	case ModifierRemove:
		p.sb.WriteString("-?")
	}
	p.sb.WriteString(": ")
	p.print(m.Template, precTop)
	p.sb.WriteString(" }")
}

// templateEscaper protects text that would otherwise terminate the
// template or open a hole.
var templateEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`", "$", `\$`)

func (p *printer) printTemplate(spans []TemplateSpan) {
	p.sb.WriteByte('`')
	for _, s := range spans {
		if s.Text != NoString {
			p.sb.WriteString(templateEscaper.Replace(p.in.StringOf(s.Text)))
		}
		if s.Type != NoType {
			p.sb.WriteString("${")
			p.print(s.Type, precTop)
			p.sb.WriteByte('}')
		}
	}
	p.sb.WriteByte('`')
}
