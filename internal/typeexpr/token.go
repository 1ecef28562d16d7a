package typeexpr

// TokenType discriminates the lexical classes of the type notation.
type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT    TokenType = "IDENT"    // string, Box, T
	NUMBER   TokenType = "NUMBER"   // 42, 1.5
	BIGINT   TokenType = "BIGINT"   // 42n
	STRING   TokenType = "STRING"   // "hello"
	TEMPLATE TokenType = "TEMPLATE" // `a${T}b`, raw inner text in Literal

	PIPE      TokenType = "|"
	AMPERSAND TokenType = "&"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LT        TokenType = "<"
	GT        TokenType = ">"
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"
	COLON     TokenType = ":"
	QUESTION  TokenType = "?"
	MINUS     TokenType = "-"
	ASSIGN    TokenType = "="
	ELLIPSIS  TokenType = "..."
	ARROW     TokenType = "=>"

	KEYOF    TokenType = "KEYOF"
	READONLY TokenType = "READONLY"
	EXTENDS  TokenType = "EXTENDS"
	NEW      TokenType = "NEW"
	INFER    TokenType = "INFER"
	IS       TokenType = "IS"
	IN       TokenType = "IN"
	AS       TokenType = "AS"
)

// Token is one lexeme with its source position. Literal carries the
// processed payload where it differs from the raw text: string contents
// without quotes, number digits without the bigint suffix, template inner
// text, or an error message on ILLEGAL tokens.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal string
	Line    int
	Column  int
}

var keywords = map[string]TokenType{
	"keyof":    KEYOF,
	"readonly": READONLY,
	"extends":  EXTENDS,
	"new":      NEW,
	"infer":    INFER,
	"is":       IS,
	"in":       IN,
	"as":       AS,
}

func lookupIdent(ident string) TokenType {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// isNameToken reports whether a token can serve as a member or parameter
// name. Keywords are not reserved in name position.
func isNameToken(t TokenType) bool {
	switch t {
	case IDENT, KEYOF, READONLY, EXTENDS, NEW, INFER, IS, IN, AS:
		return true
	}
	return false
}
