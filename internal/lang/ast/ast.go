// Package ast defines the syntax tree produced by the parser. One Program
// is created per script, owned by the run that interprets it.
package ast

import (
	"strings"

	"github.com/rxtech-lab/argo-script/internal/lang/token"
)

// Node is the common interface of every syntax tree node.
type Node interface {
	// Pos returns the source position the node starts at.
	Pos() token.Position
	String() string
}

// Statement nodes are executed for effect.
type Statement interface {
	Node
	statementNode()
}

// Expression nodes evaluate to a value.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root of the AST: the ordered list of top-level statements.
type Program struct {
	Statements []Statement
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}

	return sb.String()
}

// Handlers returns the lifecycle handler statements declared in the program,
// keyed by hook token type.
func (p *Program) Handlers() map[token.Type]*HandlerStatement {
	handlers := make(map[token.Type]*HandlerStatement)

	for _, stmt := range p.Statements {
		if h, ok := stmt.(*HandlerStatement); ok {
			handlers[h.Hook] = h
		}
	}

	return handlers
}

// LetStatement is `let name = expr`.
type LetStatement struct {
	Token token.Token // the 'let' token
	Name  string
	Value Expression
}

func (s *LetStatement) statementNode()      {}
func (s *LetStatement) Pos() token.Position { return s.Token.Pos }
func (s *LetStatement) String() string {
	return "let " + s.Name + " = " + s.Value.String()
}

// AssignStatement is `name = expr` on an already-declared variable.
type AssignStatement struct {
	Token token.Token // the identifier token
	Name  string
	Value Expression
}

func (s *AssignStatement) statementNode()      {}
func (s *AssignStatement) Pos() token.Position { return s.Token.Pos }
func (s *AssignStatement) String() string {
	return s.Name + " = " + s.Value.String()
}

// IfStatement is `if cond { ... } else { ... }` with an optional else block.
type IfStatement struct {
	Token       token.Token // the 'if' token
	Condition   Expression
	Consequence *BlockStatement
	Alternative *BlockStatement // nil when no else branch
}

func (s *IfStatement) statementNode()      {}
func (s *IfStatement) Pos() token.Position { return s.Token.Pos }
func (s *IfStatement) String() string {
	out := "if " + s.Condition.String() + " " + s.Consequence.String()
	if s.Alternative != nil {
		out += " else " + s.Alternative.String()
	}

	return out
}

// HandlerStatement is a lifecycle hook block: `on_bar(symbol) { ... }`.
type HandlerStatement struct {
	Token  token.Token // the hook token
	Hook   token.Type
	Params []string
	Body   *BlockStatement
}

func (s *HandlerStatement) statementNode()      {}
func (s *HandlerStatement) Pos() token.Position { return s.Token.Pos }
func (s *HandlerStatement) String() string {
	return s.Token.Literal + "(" + strings.Join(s.Params, ", ") + ") " + s.Body.String()
}

// BlockStatement is a braced statement list.
type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (s *BlockStatement) statementNode()      {}
func (s *BlockStatement) Pos() token.Position { return s.Token.Pos }
func (s *BlockStatement) String() string {
	var sb strings.Builder

	sb.WriteString("{ ")

	for _, stmt := range s.Statements {
		sb.WriteString(stmt.String())
		sb.WriteString("; ")
	}

	sb.WriteString("}")

	return sb.String()
}

// ExpressionStatement is a bare expression used for effect, e.g. `buy(1)`.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (s *ExpressionStatement) statementNode()      {}
func (s *ExpressionStatement) Pos() token.Position { return s.Token.Pos }
func (s *ExpressionStatement) String() string      { return s.Expression.String() }

// Identifier references a bound variable or builtin series.
type Identifier struct {
	Token token.Token
	Name  string
}

func (e *Identifier) expressionNode()     {}
func (e *Identifier) Pos() token.Position { return e.Token.Pos }
func (e *Identifier) String() string      { return e.Name }

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (e *NumberLiteral) expressionNode()     {}
func (e *NumberLiteral) Pos() token.Position { return e.Token.Pos }
func (e *NumberLiteral) String() string      { return e.Token.Literal }

// StringLiteral is a quoted string literal.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (e *StringLiteral) expressionNode()     {}
func (e *StringLiteral) Pos() token.Position { return e.Token.Pos }
func (e *StringLiteral) String() string      { return `"` + e.Value + `"` }

// BoolLiteral is `true` or `false`.
type BoolLiteral struct {
	Token token.Token
	Value bool
}

func (e *BoolLiteral) expressionNode()     {}
func (e *BoolLiteral) Pos() token.Position { return e.Token.Pos }
func (e *BoolLiteral) String() string      { return e.Token.Literal }

// UnaryExpression is a prefix operator application: `-x`, `!x`.
type UnaryExpression struct {
	Token    token.Token
	Operator string
	Operand  Expression
}

func (e *UnaryExpression) expressionNode()     {}
func (e *UnaryExpression) Pos() token.Position { return e.Token.Pos }
func (e *UnaryExpression) String() string {
	return "(" + e.Operator + e.Operand.String() + ")"
}

// BinaryExpression is an infix operator application.
type BinaryExpression struct {
	Token    token.Token // the operator token
	Operator string
	Left     Expression
	Right    Expression
}

func (e *BinaryExpression) expressionNode()     {}
func (e *BinaryExpression) Pos() token.Position { return e.Token.Pos }
func (e *BinaryExpression) String() string {
	return "(" + e.Left.String() + " " + e.Operator + " " + e.Right.String() + ")"
}

// CallExpression is `callee(args...)`. The callee is always an identifier:
// builtins are a fixed registry, scripts cannot define functions.
type CallExpression struct {
	Token     token.Token // the '(' token
	Callee    *Identifier
	Arguments []Expression
}

func (e *CallExpression) expressionNode()     {}
func (e *CallExpression) Pos() token.Position { return e.Token.Pos }
func (e *CallExpression) String() string {
	args := make([]string, 0, len(e.Arguments))
	for _, a := range e.Arguments {
		args = append(args, a.String())
	}

	return e.Callee.String() + "(" + strings.Join(args, ", ") + ")"
}

// IndexExpression is `series[index]`.
type IndexExpression struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (e *IndexExpression) expressionNode()     {}
func (e *IndexExpression) Pos() token.Position { return e.Token.Pos }
func (e *IndexExpression) String() string {
	return e.Left.String() + "[" + e.Index.String() + "]"
}

// MemberExpression is `.field` access on a structured result,
// e.g. `macd(close, 12, 26, 9).histogram`.
type MemberExpression struct {
	Token  token.Token // the '.' token
	Object Expression
	Field  string
}

func (e *MemberExpression) expressionNode()     {}
func (e *MemberExpression) Pos() token.Position { return e.Token.Pos }
func (e *MemberExpression) String() string {
	return e.Object.String() + "." + e.Field
}
