// Package typeexpr parses the compact type notation used by fixtures and
// the REPL into interned type handles. The grammar covers the written
// forms of every structural shape: unions, intersections, arrays, tuples,
// objects with index signatures, mapped types, call and construct
// signatures, keyof, readonly, indexed access, template literals with
// Uppercase and friends, conditionals with infer placeholders, and named
// references with generic arguments.
package typeexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/deft/internal/typesystem"
)

const maxParseDepth = 200

// Lookup resolves a bare type name against the caller's definition table.
// Returning false makes the name a parse error.
type Lookup func(name string) (typesystem.TypeID, bool)

// ParseError is a syntax or resolution error with its source position.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// builtins are the names the notation resolves without a lookup table.
var builtins = map[string]typesystem.TypeID{
	"any":       typesystem.AnyType,
	"unknown":   typesystem.UnknownType,
	"never":     typesystem.NeverType,
	"void":      typesystem.VoidType,
	"undefined": typesystem.UndefinedType,
	"null":      typesystem.NullType,
	"boolean":   typesystem.BooleanType,
	"number":    typesystem.NumberType,
	"string":    typesystem.StringType,
	"bigint":    typesystem.BigIntType,
	"symbol":    typesystem.SymbolType,
	"object":    typesystem.ObjectKeyword,
	"true":      typesystem.TrueType,
	"false":     typesystem.FalseType,
}

// DefLookup resolves names to lazy references against a definition store.
func DefLookup(in *typesystem.Interner, defs *typesystem.DefStore) Lookup {
	return func(name string) (typesystem.TypeID, bool) {
		if id, ok := defs.Lookup(name); ok {
			return in.Lazy(id), true
		}
		return typesystem.NoType, false
	}
}

// ParamLookup makes a set of declared type parameters visible by name,
// falling back to next for everything else. Definition bodies parse with
// their own parameters layered over the store this way.
func ParamLookup(in *typesystem.Interner, params []typesystem.TypeParamInfo, next Lookup) Lookup {
	return func(name string) (typesystem.TypeID, bool) {
		for _, info := range params {
			if in.StringOf(info.Name) == name {
				return in.TypeParameter(info), true
			}
		}
		if next != nil {
			return next(name)
		}
		return typesystem.NoType, false
	}
}

// Parse compiles one type expression into the interner and returns its
// handle. Trailing input after the expression is an error.
func Parse(src string, in *typesystem.Interner, lookup Lookup) (typesystem.TypeID, error) {
	p := newParser(src, in, lookup)
	id, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}
	if !p.peekTokenIs(EOF) {
		return typesystem.NoType, p.errorf(p.peekToken, "unexpected %q after type expression", p.peekToken.Lexeme)
	}
	return id, nil
}

// ParseTypeParams compiles a comma-separated type parameter list such as
// `T, U extends T = T`. Definition sites declare their parameters in
// this form.
func ParseTypeParams(src string, in *typesystem.Interner, lookup Lookup) ([]typesystem.TypeParamInfo, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	p := newParser("<"+src+">", in, lookup)
	p.pushScope(map[string]typesystem.TypeID{})
	params, err := p.parseTypeParams()
	p.popScope()
	if err != nil {
		return nil, err
	}
	if !p.peekTokenIs(EOF) {
		return nil, p.errorf(p.peekToken, "unexpected %q after type parameters", p.peekToken.Lexeme)
	}
	return params, nil
}

type parser struct {
	l      *Lexer
	in     *typesystem.Interner
	lookup Lookup

	curToken   Token
	peekToken  Token
	peek2Token Token

	// scopes bind signature type parameters and infer placeholders for
	// the region they are visible in, innermost last.
	scopes []map[string]typesystem.TypeID
	depth  int
}

func newParser(src string, in *typesystem.Interner, lookup Lookup) *parser {
	p := &parser{l: NewLexer(src), in: in, lookup: lookup}
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

func (p *parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.peek2Token
	p.peek2Token = p.l.NextToken()
}

func (p *parser) curTokenIs(t TokenType) bool   { return p.curToken.Type == t }
func (p *parser) peekTokenIs(t TokenType) bool  { return p.peekToken.Type == t }
func (p *parser) peek2TokenIs(t TokenType) bool { return p.peek2Token.Type == t }

func (p *parser) expectPeek(t TokenType) error {
	if !p.peekTokenIs(t) {
		return p.errorf(p.peekToken, "expected %q, got %q", string(t), p.peekToken.Lexeme)
	}
	p.nextToken()
	return nil
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{Line: tok.Line, Column: tok.Column, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) pushScope(names map[string]typesystem.TypeID) {
	p.scopes = append(p.scopes, names)
}

func (p *parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *parser) resolveName(tok Token) (typesystem.TypeID, error) {
	name := tok.Literal
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if id, ok := p.scopes[i][name]; ok {
			return id, nil
		}
	}
	if id, ok := builtins[name]; ok {
		return id, nil
	}
	if p.lookup != nil {
		if id, ok := p.lookup(name); ok {
			return id, nil
		}
	}
	return typesystem.NoType, p.errorf(tok, "unknown type name %q", name)
}

// parseType parses at conditional precedence, the lowest level.
func (p *parser) parseType() (typesystem.TypeID, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxParseDepth {
		return typesystem.NoType, p.errorf(p.curToken, "type expression too deeply nested")
	}

	t, err := p.parseUnionType()
	if err != nil {
		return typesystem.NoType, err
	}
	if !p.peekTokenIs(EXTENDS) {
		return t, nil
	}

	p.nextToken() // extends
	p.nextToken()
	ext, err := p.parseUnionType()
	if err != nil {
		return typesystem.NoType, err
	}
	if err := p.expectPeek(QUESTION); err != nil {
		return typesystem.NoType, err
	}

	// Infer placeholders declared in the extends clause are visible as
	// type parameters in the true branch only.
	inferScope := map[string]typesystem.TypeID{}
	p.in.Walk(ext, func(id typesystem.TypeID) bool {
		if info, ok := p.in.InferOf(id); ok {
			inferScope[p.in.StringOf(info.Name)] = p.in.TypeParameter(info)
		}
		return true
	})

	p.nextToken()
	p.pushScope(inferScope)
	whenTrue, err := p.parseType()
	p.popScope()
	if err != nil {
		return typesystem.NoType, err
	}
	if err := p.expectPeek(COLON); err != nil {
		return typesystem.NoType, err
	}
	p.nextToken()
	whenFalse, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}

	return p.in.Conditional(typesystem.Conditional{
		Check:        t,
		Extends:      ext,
		True:         whenTrue,
		False:        whenFalse,
		Distributive: p.in.KindOf(t) == typesystem.KindTypeParam,
	}), nil
}

func (p *parser) parseUnionType() (typesystem.TypeID, error) {
	t, err := p.parseIntersectionType()
	if err != nil {
		return typesystem.NoType, err
	}
	if !p.peekTokenIs(PIPE) {
		return t, nil
	}
	members := []typesystem.TypeID{t}
	for p.peekTokenIs(PIPE) {
		p.nextToken() // consume '|'
		p.nextToken()
		m, err := p.parseIntersectionType()
		if err != nil {
			return typesystem.NoType, err
		}
		members = append(members, m)
	}
	return p.in.Union(members...), nil
}

func (p *parser) parseIntersectionType() (typesystem.TypeID, error) {
	t, err := p.parseOperatorType()
	if err != nil {
		return typesystem.NoType, err
	}
	if !p.peekTokenIs(AMPERSAND) {
		return t, nil
	}
	members := []typesystem.TypeID{t}
	for p.peekTokenIs(AMPERSAND) {
		p.nextToken() // consume '&'
		p.nextToken()
		m, err := p.parseOperatorType()
		if err != nil {
			return typesystem.NoType, err
		}
		members = append(members, m)
	}
	return p.in.Intersection(members...), nil
}

// parseOperatorType handles the prefix operators, which bind looser than
// postfix forms: `keyof T[]` is `keyof (T[])`.
func (p *parser) parseOperatorType() (typesystem.TypeID, error) {
	switch p.curToken.Type {
	case KEYOF:
		p.nextToken()
		operand, err := p.parseOperatorType()
		if err != nil {
			return typesystem.NoType, err
		}
		return p.in.KeyOf(operand), nil
	case READONLY:
		p.nextToken()
		operand, err := p.parseOperatorType()
		if err != nil {
			return typesystem.NoType, err
		}
		return p.in.Readonly(operand), nil
	case INFER:
		if err := p.expectPeek(IDENT); err != nil {
			return typesystem.NoType, err
		}
		return p.in.Infer(typesystem.TypeParamInfo{Name: p.in.InternString(p.curToken.Literal)}), nil
	}
	return p.parsePostfixType()
}

func (p *parser) parsePostfixType() (typesystem.TypeID, error) {
	t, err := p.parsePrimaryType()
	if err != nil {
		return typesystem.NoType, err
	}
	for p.peekTokenIs(LBRACKET) {
		p.nextToken() // consume '['
		if p.peekTokenIs(RBRACKET) {
			p.nextToken()
			t = p.in.Array(t)
			continue
		}
		p.nextToken()
		index, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		if err := p.expectPeek(RBRACKET); err != nil {
			return typesystem.NoType, err
		}
		t = p.in.IndexAccess(t, index)
	}
	return t, nil
}

func (p *parser) parsePrimaryType() (typesystem.TypeID, error) {
	switch p.curToken.Type {
	case IDENT:
		if p.peekTokenIs(LT) {
			if kind, ok := stringIntrinsics[p.curToken.Literal]; ok {
				return p.parseWrapped(func(arg typesystem.TypeID) typesystem.TypeID {
					return p.in.StringIntrinsic(kind, arg)
				})
			}
			if p.curToken.Literal == "NoInfer" {
				return p.parseWrapped(p.in.NoInfer)
			}
			return p.parseApplication()
		}
		return p.resolveName(p.curToken)
	case STRING:
		return p.in.LiteralString(p.curToken.Literal), nil
	case NUMBER:
		f, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return typesystem.NoType, p.errorf(p.curToken, "invalid number literal %q", p.curToken.Lexeme)
		}
		return p.in.LiteralNumber(f), nil
	case BIGINT:
		return p.in.LiteralBigInt(false, p.curToken.Literal), nil
	case MINUS:
		switch p.peekToken.Type {
		case NUMBER:
			p.nextToken()
			f, err := strconv.ParseFloat(p.curToken.Literal, 64)
			if err != nil {
				return typesystem.NoType, p.errorf(p.curToken, "invalid number literal %q", p.curToken.Lexeme)
			}
			return p.in.LiteralNumber(-f), nil
		case BIGINT:
			p.nextToken()
			return p.in.LiteralBigInt(true, p.curToken.Literal), nil
		}
		return typesystem.NoType, p.errorf(p.peekToken, "expected number after '-'")
	case TEMPLATE:
		return p.parseTemplate(p.curToken)
	case LBRACKET:
		return p.parseTupleType()
	case LBRACE:
		return p.parseObjectType()
	case NEW:
		return p.parseSignatureType(true)
	case LT:
		return p.parseSignatureType(false)
	case LPAREN:
		if p.looksLikeParams() {
			return p.parseSignatureType(false)
		}
		p.nextToken()
		t, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		if err := p.expectPeek(RPAREN); err != nil {
			return typesystem.NoType, err
		}
		return t, nil
	case ILLEGAL:
		return typesystem.NoType, p.errorf(p.curToken, "%s", p.curToken.Literal)
	case EOF:
		return typesystem.NoType, p.errorf(p.curToken, "unexpected end of type expression")
	}
	return typesystem.NoType, p.errorf(p.curToken, "unexpected %q in type expression", p.curToken.Lexeme)
}

// stringIntrinsics are the built-in names that apply to one type argument
// like a generic but force eagerly instead of resolving through a lookup.
var stringIntrinsics = map[string]typesystem.StringIntrinsicKind{
	"Uppercase":    typesystem.StringUppercase,
	"Lowercase":    typesystem.StringLowercase,
	"Capitalize":   typesystem.StringCapitalize,
	"Uncapitalize": typesystem.StringUncapitalize,
}

// parseWrapped parses `<T>` after a built-in operator name and builds the
// result with build. Exactly one argument is accepted.
func (p *parser) parseWrapped(build func(typesystem.TypeID) typesystem.TypeID) (typesystem.TypeID, error) {
	name := p.curToken.Literal
	p.nextToken() // consume '<'
	p.nextToken()
	arg, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}
	if p.peekTokenIs(COMMA) {
		return typesystem.NoType, p.errorf(p.peekToken, "%s takes exactly one type argument", name)
	}
	if err := p.expectPeek(GT); err != nil {
		return typesystem.NoType, err
	}
	return build(arg), nil
}

// looksLikeParams distinguishes a parameter list from a parenthesized
// type at an opening paren: `()`, `(...`, and `(name:` or `(name?`
// start signatures, anything else is grouping.
func (p *parser) looksLikeParams() bool {
	if p.peekTokenIs(RPAREN) || p.peekTokenIs(ELLIPSIS) {
		return true
	}
	return isNameToken(p.peekToken.Type) && (p.peek2TokenIs(COLON) || p.peek2TokenIs(QUESTION))
}

func (p *parser) parseApplication() (typesystem.TypeID, error) {
	base, err := p.resolveName(p.curToken)
	if err != nil {
		return typesystem.NoType, err
	}
	p.nextToken() // consume '<'
	p.nextToken()
	var args []typesystem.TypeID
	for {
		a, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		args = append(args, a)
		if p.peekTokenIs(COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if err := p.expectPeek(GT); err != nil {
		return typesystem.NoType, err
	}
	return p.in.Application(base, args), nil
}

// parseTypeParams parses `<T, U extends T = D>`; cur is at '<' on entry
// and at '>' on return. Each parameter binds into the innermost scope as
// soon as it completes, so later parameters can constrain on earlier
// ones. The caller owns pushing and popping that scope.
func (p *parser) parseTypeParams() ([]typesystem.TypeParamInfo, error) {
	var out []typesystem.TypeParamInfo
	scope := p.scopes[len(p.scopes)-1]
	p.nextToken() // consume '<'
	for {
		if !p.curTokenIs(IDENT) {
			return nil, p.errorf(p.curToken, "expected type parameter name, got %q", p.curToken.Lexeme)
		}
		info := typesystem.TypeParamInfo{Name: p.in.InternString(p.curToken.Literal)}
		if p.peekTokenIs(EXTENDS) {
			p.nextToken()
			p.nextToken()
			c, err := p.parseUnionType()
			if err != nil {
				return nil, err
			}
			info.Constraint = c
		}
		if p.peekTokenIs(ASSIGN) {
			p.nextToken()
			p.nextToken()
			d, err := p.parseUnionType()
			if err != nil {
				return nil, err
			}
			info.Default = d
		}
		out = append(out, info)
		scope[p.in.StringOf(info.Name)] = p.in.TypeParameter(info)
		if p.peekTokenIs(COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if err := p.expectPeek(GT); err != nil {
		return nil, err
	}
	return out, nil
}

// parseSignatureType parses `(a: T) => R`, `new (a: T) => R` and the
// generic forms with leading type parameters. Type parameters bind
// inside the parameter list and return type.
func (p *parser) parseSignatureType(constructor bool) (typesystem.TypeID, error) {
	p.pushScope(map[string]typesystem.TypeID{})
	defer p.popScope()

	var typeParams []typesystem.TypeParamInfo
	if constructor {
		if p.peekTokenIs(LT) {
			p.nextToken()
			tps, err := p.parseTypeParams()
			if err != nil {
				return typesystem.NoType, err
			}
			typeParams = tps
		}
		if err := p.expectPeek(LPAREN); err != nil {
			return typesystem.NoType, err
		}
	} else if p.curTokenIs(LT) {
		tps, err := p.parseTypeParams()
		if err != nil {
			return typesystem.NoType, err
		}
		typeParams = tps
		if err := p.expectPeek(LPAREN); err != nil {
			return typesystem.NoType, err
		}
	}

	params, err := p.parseParams()
	if err != nil {
		return typesystem.NoType, err
	}
	if err := p.expectPeek(ARROW); err != nil {
		return typesystem.NoType, err
	}
	p.nextToken()

	shape := typesystem.FunctionShape{
		TypeParams:  typeParams,
		Params:      params,
		Constructor: constructor,
	}

	// `x is T` makes the signature a type guard returning boolean.
	if p.curTokenIs(IDENT) && p.peekTokenIs(IS) {
		param := p.in.InternString(p.curToken.Literal)
		p.nextToken() // consume 'is'
		p.nextToken()
		target, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		shape.Return = typesystem.BooleanType
		shape.Predicate = &typesystem.TypePredicate{Param: param, Type: target}
		return p.in.Function(shape), nil
	}

	ret, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}
	shape.Return = ret
	return p.in.Function(shape), nil
}

// parseParams parses a parenthesized parameter list; cur is at '(' on
// entry and at ')' on return.
func (p *parser) parseParams() ([]typesystem.Param, error) {
	params := []typesystem.Param{}
	if p.peekTokenIs(RPAREN) {
		p.nextToken()
		return params, nil
	}
	p.nextToken()
	for {
		var prm typesystem.Param
		if p.curTokenIs(ELLIPSIS) {
			prm.Rest = true
			p.nextToken()
		}
		if !isNameToken(p.curToken.Type) {
			return nil, p.errorf(p.curToken, "expected parameter name, got %q", p.curToken.Lexeme)
		}
		prm.Name = p.in.InternString(p.curToken.Lexeme)
		if p.peekTokenIs(QUESTION) {
			p.nextToken()
			prm.Optional = true
		}
		if err := p.expectPeek(COLON); err != nil {
			return nil, err
		}
		p.nextToken()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		prm.Type = t
		params = append(params, prm)
		if p.peekTokenIs(COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if err := p.expectPeek(RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

// parseTupleType parses `[T, U?, ...V[]]` with optional element labels;
// cur is at '[' on entry and at ']' on return.
func (p *parser) parseTupleType() (typesystem.TypeID, error) {
	elems := []typesystem.TupleElement{}
	if p.peekTokenIs(RBRACKET) {
		p.nextToken()
		return p.in.Tuple(elems), nil
	}
	p.nextToken()
	for {
		var el typesystem.TupleElement
		if p.curTokenIs(ELLIPSIS) {
			el.Rest = true
			p.nextToken()
		}
		// `name:` and `name?:` label the element.
		if isNameToken(p.curToken.Type) && (p.peekTokenIs(COLON) || (p.peekTokenIs(QUESTION) && p.peek2TokenIs(COLON))) {
			el.Name = p.in.InternString(p.curToken.Lexeme)
			if p.peekTokenIs(QUESTION) {
				p.nextToken()
				el.Optional = true
			}
			p.nextToken() // consume ':'
			p.nextToken()
		}
		t, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		el.Type = t
		if p.peekTokenIs(QUESTION) {
			p.nextToken()
			el.Optional = true
		}
		elems = append(elems, el)
		if p.peekTokenIs(COMMA) {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if err := p.expectPeek(RBRACKET); err != nil {
		return typesystem.NoType, err
	}
	return p.in.Tuple(elems), nil
}

// parseObjectType parses `{ a: T; b?: U; readonly c: V; [k: string]: W }`
// and the mapped form `{ [K in C]: T }`; cur is at '{' on entry and at '}'
// on return. Members separate with ';' or ',', with an optional trailing
// separator. A mapped member stands alone.
func (p *parser) parseObjectType() (typesystem.TypeID, error) {
	shape := typesystem.ObjectShape{}
	for {
		if p.peekTokenIs(RBRACE) {
			p.nextToken()
			break
		}
		p.nextToken()

		if p.curTokenIs(MINUS) && p.peekTokenIs(READONLY) {
			p.nextToken()
			if err := p.expectPeek(LBRACKET); err != nil {
				return typesystem.NoType, err
			}
			return p.finishMapped(&shape, typesystem.ModifierRemove)
		}

		readonly := false
		// `readonly` is a modifier only when a member name or index
		// signature follows; otherwise it is itself the name.
		if p.curTokenIs(READONLY) && !p.peekTokenIs(COLON) && !p.peekTokenIs(QUESTION) {
			readonly = true
			p.nextToken()
		}

		if p.curTokenIs(LBRACKET) {
			if p.peek2TokenIs(IN) {
				mod := typesystem.ModifierKeep
				if readonly {
					mod = typesystem.ModifierAdd
				}
				return p.finishMapped(&shape, mod)
			}
			if err := p.parseIndexSignature(&shape, readonly); err != nil {
				return typesystem.NoType, err
			}
		} else {
			prop, err := p.parseMember(readonly)
			if err != nil {
				return typesystem.NoType, err
			}
			shape.Properties = append(shape.Properties, prop)
		}

		if p.peekTokenIs(SEMICOLON) || p.peekTokenIs(COMMA) {
			p.nextToken()
			continue
		}
		if err := p.expectPeek(RBRACE); err != nil {
			return typesystem.NoType, err
		}
		break
	}
	if shape.HasIndex() {
		return p.in.ObjectWithIndex(shape), nil
	}
	return p.in.Object(shape.Properties), nil
}

// finishMapped completes an object that turned out to be a mapped type;
// cur is at '[' on entry and at '}' on return.
func (p *parser) finishMapped(shape *typesystem.ObjectShape, readonly typesystem.MappedModifier) (typesystem.TypeID, error) {
	if len(shape.Properties) > 0 || shape.HasIndex() {
		return typesystem.NoType, p.errorf(p.curToken, "a mapped type cannot declare other members")
	}
	id, err := p.parseMappedType(readonly)
	if err != nil {
		return typesystem.NoType, err
	}
	if p.peekTokenIs(SEMICOLON) || p.peekTokenIs(COMMA) {
		p.nextToken()
	}
	if err := p.expectPeek(RBRACE); err != nil {
		return typesystem.NoType, err
	}
	return id, nil
}

// parseMappedType parses `[K in C as N]?: T`; cur is at '[' on entry and
// at the template's last token on return. The parameter binds over the
// `as` clause and the template, never the constraint.
func (p *parser) parseMappedType(readonly typesystem.MappedModifier) (typesystem.TypeID, error) {
	p.nextToken()
	if !p.curTokenIs(IDENT) {
		return typesystem.NoType, p.errorf(p.curToken, "expected type parameter name, got %q", p.curToken.Lexeme)
	}
	info := typesystem.TypeParamInfo{Name: p.in.InternString(p.curToken.Literal)}
	if err := p.expectPeek(IN); err != nil {
		return typesystem.NoType, err
	}
	p.nextToken()
	constraint, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}

	m := typesystem.MappedShape{Param: info, Constraint: constraint, Readonly: readonly}
	p.pushScope(map[string]typesystem.TypeID{
		p.in.StringOf(info.Name): p.in.TypeParameter(info),
	})
	defer p.popScope()

	if p.peekTokenIs(AS) {
		p.nextToken()
		p.nextToken()
		nameType, err := p.parseType()
		if err != nil {
			return typesystem.NoType, err
		}
		m.NameType = nameType
	}
	if err := p.expectPeek(RBRACKET); err != nil {
		return typesystem.NoType, err
	}
	switch {
	case p.peekTokenIs(QUESTION):
		p.nextToken()
		m.Optional = typesystem.ModifierAdd
	case p.peekTokenIs(MINUS) && p.peek2TokenIs(QUESTION):
		p.nextToken()
		p.nextToken()
		m.Optional = typesystem.ModifierRemove
	}
	if err := p.expectPeek(COLON); err != nil {
		return typesystem.NoType, err
	}
	p.nextToken()
	template, err := p.parseType()
	if err != nil {
		return typesystem.NoType, err
	}
	m.Template = template
	return p.in.Mapped(m), nil
}

func (p *parser) parseMember(readonly bool) (typesystem.Property, error) {
	var prop typesystem.Property
	prop.Readonly = readonly
	if !isNameToken(p.curToken.Type) && !p.curTokenIs(STRING) {
		return prop, p.errorf(p.curToken, "expected member name, got %q", p.curToken.Lexeme)
	}
	prop.Name = p.in.InternString(p.curToken.Literal)
	if p.peekTokenIs(QUESTION) {
		p.nextToken()
		prop.Optional = true
	}
	if err := p.expectPeek(COLON); err != nil {
		return prop, err
	}
	p.nextToken()
	t, err := p.parseType()
	if err != nil {
		return prop, err
	}
	prop.Type = t
	return prop, nil
}

// parseIndexSignature parses `[k: string]: T` or `[i: number]: T`; cur is
// at '[' on entry and at the value type's last token on return.
func (p *parser) parseIndexSignature(shape *typesystem.ObjectShape, readonly bool) error {
	p.nextToken()
	if !isNameToken(p.curToken.Type) {
		return p.errorf(p.curToken, "expected index parameter name, got %q", p.curToken.Lexeme)
	}
	if err := p.expectPeek(COLON); err != nil {
		return err
	}
	keyTok := p.peekToken
	p.nextToken()
	key, err := p.parseType()
	if err != nil {
		return err
	}
	if key != typesystem.StringType && key != typesystem.NumberType {
		return p.errorf(keyTok, "index signature key must be string or number")
	}
	if err := p.expectPeek(RBRACKET); err != nil {
		return err
	}
	if err := p.expectPeek(COLON); err != nil {
		return err
	}
	p.nextToken()
	value, err := p.parseType()
	if err != nil {
		return err
	}
	sig := &typesystem.IndexSignature{Key: key, Value: value, Readonly: readonly}
	if key == typesystem.StringType {
		if shape.StringIndex != nil {
			return p.errorf(keyTok, "duplicate string index signature")
		}
		shape.StringIndex = sig
	} else {
		if shape.NumberIndex != nil {
			return p.errorf(keyTok, "duplicate number index signature")
		}
		shape.NumberIndex = sig
	}
	return nil
}

// parseTemplate splits the raw template text into literal spans and type
// holes, parsing each hole as a nested expression.
func (p *parser) parseTemplate(tok Token) (typesystem.TypeID, error) {
	var spans []typesystem.TemplateSpan
	raw := tok.Literal
	var text strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '\\' && i+1 < len(raw) {
			switch raw[i+1] {
			case '`', '$', '\\':
				text.WriteByte(raw[i+1])
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			default:
				text.WriteByte(raw[i])
				text.WriteByte(raw[i+1])
			}
			i += 2
			continue
		}
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			end, ok := findHoleEnd(raw, i+2)
			if !ok {
				return typesystem.NoType, p.errorf(tok, "unterminated template hole")
			}
			hole, err := p.parseHole(tok, raw[i+2:end])
			if err != nil {
				return typesystem.NoType, err
			}
			spans = append(spans, typesystem.TemplateSpan{Text: p.in.InternString(text.String()), Type: hole})
			text.Reset()
			i = end + 1
			continue
		}
		text.WriteByte(raw[i])
		i++
	}
	spans = append(spans, typesystem.TemplateSpan{Text: p.in.InternString(text.String())})
	return p.in.Template(spans), nil
}

// parseHole compiles one `${ }` hole with a nested parser sharing this
// parser's scopes, so infer and signature parameters stay visible.
func (p *parser) parseHole(tok Token, src string) (typesystem.TypeID, error) {
	sub := newParser(src, p.in, p.lookup)
	sub.scopes = p.scopes
	id, err := sub.parseType()
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			return typesystem.NoType, p.errorf(tok, "in template hole: %s", pe.Msg)
		}
		return typesystem.NoType, err
	}
	if !sub.peekTokenIs(EOF) {
		return typesystem.NoType, p.errorf(tok, "in template hole: unexpected %q", sub.peekToken.Lexeme)
	}
	return id, nil
}

// findHoleEnd scans for the '}' closing a template hole, tracking brace
// depth and skipping quoted strings.
func findHoleEnd(raw string, from int) (int, bool) {
	depth := 1
	inString := false
	for i := from; i < len(raw); i++ {
		if inString {
			switch raw[i] {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch raw[i] {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
