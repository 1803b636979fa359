// Package token defines the lexical tokens of the strategy script language.
package token

import "fmt"

// Type identifies the kind of a token.
type Type string

const (
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"

	// Identifiers and literals
	IDENT  Type = "IDENT"
	NUMBER Type = "NUMBER"
	STRING Type = "STRING"

	// Operators
	ASSIGN   Type = "="
	PLUS     Type = "+"
	MINUS    Type = "-"
	ASTERISK Type = "*"
	SLASH    Type = "/"
	GT       Type = ">"
	LT       Type = "<"
	GTE      Type = ">="
	LTE      Type = "<="
	EQ       Type = "=="
	NEQ      Type = "!="
	BANG     Type = "!"

	// Punctuation
	LPAREN   Type = "("
	RPAREN   Type = ")"
	LBRACKET Type = "["
	RBRACKET Type = "]"
	LBRACE   Type = "{"
	RBRACE   Type = "}"
	COMMA    Type = ","
	DOT      Type = "."

	// Keywords
	LET   Type = "LET"
	IF    Type = "IF"
	ELSE  Type = "ELSE"
	TRUE  Type = "TRUE"
	FALSE Type = "FALSE"

	// Lifecycle hook headers, reserved call-like block names
	ONSTART Type = "ON_START"
	ONBAR   Type = "ON_BAR"
	ONEND   Type = "ON_END"
)

// Position is a location in the source text, 1-based.
type Position struct {
	Line   int
	Column int
}

// String renders the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one lexical unit with its source position.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

var keywords = map[string]Type{
	"let":      LET,
	"if":       IF,
	"else":     ELSE,
	"true":     TRUE,
	"false":    FALSE,
	"on_start": ONSTART,
	"on_bar":   ONBAR,
	"on_end":   ONEND,
}

// LookupIdent returns the keyword type for reserved words, IDENT otherwise.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}

	return IDENT
}

// IsHook reports whether the token type is a lifecycle hook header.
func IsHook(t Type) bool {
	return t == ONSTART || t == ONBAR || t == ONEND
}
