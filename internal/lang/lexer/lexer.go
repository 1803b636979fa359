// Package lexer tokenizes strategy script source text.
package lexer

import (
	"github.com/rxtech-lab/argo-script/internal/lang/token"
)

// Lexer walks the source text rune by rune producing tokens.
type Lexer struct {
	input   string
	pos     int  // current position (points at ch)
	readPos int  // next read position
	ch      byte // current byte, 0 at EOF
	line    int
	column  int
}

// New creates a lexer over the given source.
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()

	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}

	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}

	return l.input[l.readPos]
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := token.Position{Line: l.line, Column: l.column}

	var tok token.Token

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		} else {
			tok = token.Token{Type: token.ASSIGN, Literal: "=", Pos: pos}
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NEQ, Literal: "!=", Pos: pos}
		} else {
			tok = token.Token{Type: token.BANG, Literal: "!", Pos: pos}
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTE, Literal: ">=", Pos: pos}
		} else {
			tok = token.Token{Type: token.GT, Literal: ">", Pos: pos}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTE, Literal: "<=", Pos: pos}
		} else {
			tok = token.Token{Type: token.LT, Literal: "<", Pos: pos}
		}
	case '+':
		tok = token.Token{Type: token.PLUS, Literal: "+", Pos: pos}
	case '-':
		tok = token.Token{Type: token.MINUS, Literal: "-", Pos: pos}
	case '*':
		tok = token.Token{Type: token.ASTERISK, Literal: "*", Pos: pos}
	case '/':
		tok = token.Token{Type: token.SLASH, Literal: "/", Pos: pos}
	case '(':
		tok = token.Token{Type: token.LPAREN, Literal: "(", Pos: pos}
	case ')':
		tok = token.Token{Type: token.RPAREN, Literal: ")", Pos: pos}
	case '[':
		tok = token.Token{Type: token.LBRACKET, Literal: "[", Pos: pos}
	case ']':
		tok = token.Token{Type: token.RBRACKET, Literal: "]", Pos: pos}
	case '{':
		tok = token.Token{Type: token.LBRACE, Literal: "{", Pos: pos}
	case '}':
		tok = token.Token{Type: token.RBRACE, Literal: "}", Pos: pos}
	case ',':
		tok = token.Token{Type: token.COMMA, Literal: ",", Pos: pos}
	case '.':
		tok = token.Token{Type: token.DOT, Literal: ".", Pos: pos}
	case '"', '\'':
		literal, ok := l.readString(l.ch)
		if !ok {
			return token.Token{Type: token.ILLEGAL, Literal: literal, Pos: pos}
		}

		return token.Token{Type: token.STRING, Literal: literal, Pos: pos}
	case 0:
		tok = token.Token{Type: token.EOF, Literal: "", Pos: pos}
	default:
		if isLetter(l.ch) {
			literal := l.readIdentifier()

			return token.Token{Type: token.LookupIdent(literal), Literal: literal, Pos: pos}
		}

		if isDigit(l.ch) {
			return token.Token{Type: token.NUMBER, Literal: l.readNumber(), Pos: pos}
		}

		tok = token.Token{Type: token.ILLEGAL, Literal: string(l.ch), Pos: pos}
	}

	l.readChar()

	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// Line comments run to end of line.
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}

			continue
		}

		return
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}

	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// readString consumes a quoted string literal and returns its contents.
// Returns ok=false when the closing quote is missing.
func (l *Lexer) readString(quote byte) (string, bool) {
	start := l.pos + 1

	for {
		l.readChar()

		if l.ch == quote {
			literal := l.input[start:l.pos]
			l.readChar()

			return literal, true
		}

		if l.ch == 0 || l.ch == '\n' {
			return l.input[start:l.pos], false
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
