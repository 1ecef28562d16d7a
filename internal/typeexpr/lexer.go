package typeexpr

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	switch l.ch {
	case '|':
		tok = newToken(PIPE, l.ch, l.line, l.column)
	case '&':
		tok = newToken(AMPERSAND, l.ch, l.line, l.column)
	case '(':
		tok = newToken(LPAREN, l.ch, l.line, l.column)
	case ')':
		tok = newToken(RPAREN, l.ch, l.line, l.column)
	case '[':
		tok = newToken(LBRACKET, l.ch, l.line, l.column)
	case ']':
		tok = newToken(RBRACKET, l.ch, l.line, l.column)
	case '{':
		tok = newToken(LBRACE, l.ch, l.line, l.column)
	case '}':
		tok = newToken(RBRACE, l.ch, l.line, l.column)
	case '<':
		tok = newToken(LT, l.ch, l.line, l.column)
	case '>':
		tok = newToken(GT, l.ch, l.line, l.column)
	case ',':
		tok = newToken(COMMA, l.ch, l.line, l.column)
	case ';':
		tok = newToken(SEMICOLON, l.ch, l.line, l.column)
	case ':':
		tok = newToken(COLON, l.ch, l.line, l.column)
	case '?':
		tok = newToken(QUESTION, l.ch, l.line, l.column)
	case '-':
		tok = newToken(MINUS, l.ch, l.line, l.column)
	case '=':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: ARROW, Lexeme: "=>", Literal: "=>", Line: l.line, Column: l.column}
		} else {
			tok = newToken(ASSIGN, l.ch, l.line, l.column)
		}
	case '.':
		if l.peekChar() == '.' && l.peekChar2() == '.' {
			startLine, startCol := l.line, l.column
			l.readChar()
			l.readChar()
			tok = Token{Type: ELLIPSIS, Lexeme: "...", Literal: "...", Line: startLine, Column: startCol}
		} else {
			tok = newToken(ILLEGAL, l.ch, l.line, l.column)
			tok.Literal = "unexpected '.'"
		}
	case '"':
		startLine, startCol := l.line, l.column
		content, terminated := l.readString()
		if !terminated {
			tok = Token{Type: ILLEGAL, Lexeme: `"`, Literal: "unterminated string literal", Line: startLine, Column: startCol}
		} else {
			tok = Token{Type: STRING, Lexeme: fmt.Sprintf("%q", content), Literal: content, Line: startLine, Column: startCol}
		}
	case '`':
		startLine, startCol := l.line, l.column
		content, terminated := l.readTemplate()
		if !terminated {
			tok = Token{Type: ILLEGAL, Lexeme: "`", Literal: "unterminated template literal", Line: startLine, Column: startCol}
		} else {
			tok = Token{Type: TEMPLATE, Lexeme: "`" + content + "`", Literal: content, Line: startLine, Column: startCol}
		}
	case 0:
		tok.Lexeme = ""
		tok.Type = EOF
		tok.Line = l.line
		tok.Column = l.column
	default:
		if isLetter(l.ch) {
			startLine, startCol := l.line, l.column
			lexeme := l.readIdentifier()
			tok.Type = lookupIdent(lexeme)
			tok.Lexeme = lexeme
			tok.Literal = lexeme
			tok.Line = startLine
			tok.Column = startCol
			return tok
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(ILLEGAL, l.ch, l.line, l.column)
		tok.Literal = fmt.Sprintf("unexpected character %q", l.ch)
	}

	l.readChar()
	return tok
}

// readString reads a double-quoted string, processing escape sequences.
// Returns false when the input ends before the closing quote.
func (l *Lexer) readString() (string, bool) {
	var result []byte
	buf := make([]byte, 4)
	for {
		l.readChar()
		if l.ch == '"' {
			return string(result), true
		}
		if l.ch == 0 {
			return string(result), false
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case 'r':
				result = append(result, '\r')
			case '\\':
				result = append(result, '\\')
			case '"':
				result = append(result, '"')
			case 'a':
				result = append(result, '\a')
			case 'b':
				result = append(result, '\b')
			case 'f':
				result = append(result, '\f')
			case 'v':
				result = append(result, '\v')
			case 'x':
				// \x escapes a single byte, not a rune.
				val, ok := l.readHexEscape(2)
				if ok {
					result = append(result, byte(val))
				} else {
					result = append(result, '\\', 'x')
				}
			case 'u':
				val, ok := l.readHexEscape(4)
				if ok {
					n := utf8.EncodeRune(buf, rune(val))
					result = append(result, buf[:n]...)
				} else {
					result = append(result, '\\', 'u')
				}
			case 'U':
				val, ok := l.readHexEscape(8)
				if ok {
					n := utf8.EncodeRune(buf, rune(val))
					result = append(result, buf[:n]...)
				} else {
					result = append(result, '\\', 'U')
				}
			case 0:
				return string(result), false
			default:
				// Unknown escape - keep both
				result = append(result, '\\')
				n := utf8.EncodeRune(buf, l.ch)
				result = append(result, buf[:n]...)
			}
			continue
		}
		n := utf8.EncodeRune(buf, l.ch)
		result = append(result, buf[:n]...)
	}
}

func (l *Lexer) readHexEscape(n int) (int64, bool) {
	var val int64
	for i := 0; i < n; i++ {
		l.readChar()
		var d int64
		if l.ch >= '0' && l.ch <= '9' {
			d = int64(l.ch - '0')
		} else if l.ch >= 'a' && l.ch <= 'f' {
			d = int64(l.ch - 'a' + 10)
		} else if l.ch >= 'A' && l.ch <= 'F' {
			d = int64(l.ch - 'A' + 10)
		} else {
			return 0, false
		}
		val = val*16 + d
	}
	return val, true
}

// readTemplate reads the raw inner text of a backtick template. The
// closing backtick only counts at hole depth zero, so templates nested
// inside `${ }` holes pass through verbatim for the parser to split.
// Double-quoted strings inside holes are skipped so their braces do not
// disturb the depth count.
func (l *Lexer) readTemplate() (string, bool) {
	position := l.position + 1
	depth := 0
	inString := false
	for {
		l.readChar()
		if l.ch == 0 {
			return l.input[position:l.position], false
		}
		if inString {
			if l.ch == '\\' {
				l.readChar()
				if l.ch == 0 {
					return l.input[position:l.position], false
				}
			} else if l.ch == '"' {
				inString = false
			}
			continue
		}
		switch l.ch {
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return l.input[position:l.position], false
			}
		case '$':
			if depth == 0 && l.peekChar() == '{' {
				l.readChar()
				depth = 1
			}
		case '{':
			if depth > 0 {
				depth++
			}
		case '}':
			if depth > 0 {
				depth--
			}
		case '"':
			if depth > 0 {
				inString = true
			}
		case '`':
			if depth == 0 {
				return l.input[position:l.position], true
			}
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'n' {
		lexeme := l.input[position:l.readPosition]
		digits := l.input[position:l.position]
		l.readChar()
		if isFloat {
			return Token{Type: ILLEGAL, Lexeme: lexeme, Literal: "bigint literal cannot have a decimal point", Line: startLine, Column: startCol}
		}
		return Token{Type: BIGINT, Lexeme: lexeme, Literal: digits, Line: startLine, Column: startCol}
	}

	lexeme := l.input[position:l.position]
	return Token{Type: NUMBER, Lexeme: lexeme, Literal: lexeme, Line: startLine, Column: startCol}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	pos2 := l.readPosition + w
	if pos2 >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos2:])
	return r
}

func newToken(tokenType TokenType, ch rune, line, col int) Token {
	literal := string(ch)
	return Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		// Handle comments
		if l.ch == '/' {
			if l.peekChar() == '/' {
				l.readChar() // consume first /
				l.readChar() // consume second /
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			} else if l.peekChar() == '*' {
				l.readChar() // consume /
				l.readChar() // consume *
				for l.ch != 0 {
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar() // consume *
						l.readChar() // consume /
						break
					}
					l.readChar()
				}
				continue
			}
		}
		break
	}
}
