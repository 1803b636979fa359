// Package parser builds the AST for a strategy script in a single top-down
// pass. The first syntax error aborts parsing; no partial AST is returned.
package parser

import (
	"fmt"
	"strconv"

	"github.com/rxtech-lab/argo-script/internal/lang/ast"
	"github.com/rxtech-lab/argo-script/internal/lang/lexer"
	"github.com/rxtech-lab/argo-script/internal/lang/token"
)

// ParseError is a syntax error with its source position.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Operator precedence levels, lowest first.
const (
	precLowest = iota
	precCompare
	precSum
	precProduct
	precPrefix
	precCall
)

var precedences = map[token.Type]int{
	token.EQ:       precCompare,
	token.NEQ:      precCompare,
	token.GT:       precCompare,
	token.LT:       precCompare,
	token.GTE:      precCompare,
	token.LTE:      precCompare,
	token.PLUS:     precSum,
	token.MINUS:    precSum,
	token.ASTERISK: precProduct,
	token.SLASH:    precProduct,
	token.LPAREN:   precCall,
	token.LBRACKET: precCall,
	token.DOT:      precCall,
}

// Parser consumes tokens from a lexer and produces one Program per script.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token
}

// New creates a parser over the given lexer.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()

	return p
}

// Parse parses source text into a program.
func Parse(source string) (*ast.Program, error) {
	return New(lexer.New(source)).ParseProgram()
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) *ParseError {
	return &ParseError{
		Line:    pos.Line,
		Column:  pos.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *Parser) expectPeek(t token.Type) error {
	if p.peekToken.Type != t {
		return p.errorf(p.peekToken.Pos, "expected %q, got %q", t, p.peekToken.Literal)
	}

	p.nextToken()

	return nil
}

// ParseProgram parses the whole token stream into a Program.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	program := &ast.Program{}

	for p.curToken.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		program.Statements = append(program.Statements, stmt)
		p.nextToken()
	}

	return program, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.LET:
		return p.parseLetStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.ONSTART, token.ONBAR, token.ONEND:
		return p.parseHandlerStatement()
	case token.IDENT:
		if p.peekToken.Type == token.ASSIGN {
			return p.parseAssignStatement()
		}

		return p.parseExpressionStatement()
	case token.ILLEGAL:
		return nil, p.errorf(p.curToken.Pos, "illegal token %q", p.curToken.Literal)
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLetStatement() (ast.Statement, error) {
	stmt := &ast.LetStatement{Token: p.curToken}

	if err := p.expectPeek(token.IDENT); err != nil {
		return nil, err
	}

	stmt.Name = p.curToken.Literal

	if err := p.expectPeek(token.ASSIGN); err != nil {
		return nil, err
	}

	p.nextToken()

	value, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	stmt.Value = value

	return stmt, nil
}

func (p *Parser) parseAssignStatement() (ast.Statement, error) {
	stmt := &ast.AssignStatement{Token: p.curToken, Name: p.curToken.Literal}

	// consume '='
	p.nextToken()
	p.nextToken()

	value, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	stmt.Value = value

	return stmt, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	stmt := &ast.IfStatement{Token: p.curToken}

	p.nextToken()

	condition, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	stmt.Condition = condition

	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}

	consequence, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}

	stmt.Consequence = consequence

	if p.peekToken.Type == token.ELSE {
		p.nextToken()

		if err := p.expectPeek(token.LBRACE); err != nil {
			return nil, err
		}

		alternative, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}

		stmt.Alternative = alternative
	}

	return stmt, nil
}

// parseHandlerStatement parses a lifecycle block header like
// `on_bar(symbol) { ... }`. The parameter list may be empty.
func (p *Parser) parseHandlerStatement() (ast.Statement, error) {
	stmt := &ast.HandlerStatement{Token: p.curToken, Hook: p.curToken.Type}

	if err := p.expectPeek(token.LPAREN); err != nil {
		return nil, err
	}

	for p.peekToken.Type != token.RPAREN {
		if err := p.expectPeek(token.IDENT); err != nil {
			return nil, err
		}

		stmt.Params = append(stmt.Params, p.curToken.Literal)

		if p.peekToken.Type == token.COMMA {
			p.nextToken()

			if p.peekToken.Type == token.RPAREN {
				return nil, p.errorf(p.peekToken.Pos, "trailing comma in parameter list")
			}

			continue
		}

		if p.peekToken.Type != token.RPAREN {
			return nil, p.errorf(p.peekToken.Pos, "expected \",\" or \")\" in parameter list, got %q", p.peekToken.Literal)
		}
	}

	// consume ')'
	p.nextToken()

	if err := p.expectPeek(token.LBRACE); err != nil {
		return nil, err
	}

	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	return stmt, nil
}

func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	block := &ast.BlockStatement{Token: p.curToken}

	p.nextToken()

	for p.curToken.Type != token.RBRACE {
		if p.curToken.Type == token.EOF {
			return nil, p.errorf(p.curToken.Pos, "unexpected end of script, missing closing brace")
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		block.Statements = append(block.Statements, stmt)
		p.nextToken()
	}

	return block, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	stmt := &ast.ExpressionStatement{Token: p.curToken}

	expr, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	stmt.Expression = expr

	return stmt, nil
}

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for precedence < p.peekPrecedence() {
		p.nextToken()

		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}

	return precLowest
}

func (p *Parser) parsePrefix() (ast.Expression, error) {
	switch p.curToken.Type {
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Name: p.curToken.Literal}, nil
	case token.NUMBER:
		value, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			return nil, p.errorf(p.curToken.Pos, "invalid number literal %q", p.curToken.Literal)
		}

		return &ast.NumberLiteral{Token: p.curToken, Value: value}, nil
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}, nil
	case token.TRUE:
		return &ast.BoolLiteral{Token: p.curToken, Value: true}, nil
	case token.FALSE:
		return &ast.BoolLiteral{Token: p.curToken, Value: false}, nil
	case token.MINUS, token.BANG:
		operator := p.curToken
		p.nextToken()

		operand, err := p.parseExpression(precPrefix)
		if err != nil {
			return nil, err
		}

		return &ast.UnaryExpression{Token: operator, Operator: operator.Literal, Operand: operand}, nil
	case token.LPAREN:
		p.nextToken()

		expr, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}

		if err := p.expectPeek(token.RPAREN); err != nil {
			return nil, err
		}

		return expr, nil
	case token.ILLEGAL:
		return nil, p.errorf(p.curToken.Pos, "illegal token %q", p.curToken.Literal)
	default:
		return nil, p.errorf(p.curToken.Pos, "unexpected token %q", p.curToken.Literal)
	}
}

func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, error) {
	switch p.curToken.Type {
	case token.LPAREN:
		return p.parseCallExpression(left)
	case token.LBRACKET:
		return p.parseIndexExpression(left)
	case token.DOT:
		return p.parseMemberExpression(left)
	default:
		return p.parseBinaryExpression(left)
	}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.BinaryExpression{
		Token:    p.curToken,
		Operator: p.curToken.Literal,
		Left:     left,
	}

	precedence := precedences[p.curToken.Type]
	p.nextToken()

	right, err := p.parseExpression(precedence)
	if err != nil {
		return nil, err
	}

	expr.Right = right

	return expr, nil
}

func (p *Parser) parseCallExpression(callee ast.Expression) (ast.Expression, error) {
	ident, ok := callee.(*ast.Identifier)
	if !ok {
		return nil, p.errorf(p.curToken.Pos, "cannot call %s, only named functions are callable", callee.String())
	}

	expr := &ast.CallExpression{Token: p.curToken, Callee: ident}

	for p.peekToken.Type != token.RPAREN {
		p.nextToken()

		arg, err := p.parseExpression(precLowest)
		if err != nil {
			return nil, err
		}

		expr.Arguments = append(expr.Arguments, arg)

		if p.peekToken.Type == token.COMMA {
			p.nextToken()

			if p.peekToken.Type == token.RPAREN {
				return nil, p.errorf(p.peekToken.Pos, "trailing comma in argument list")
			}

			continue
		}

		if p.peekToken.Type != token.RPAREN {
			return nil, p.errorf(p.peekToken.Pos, "expected \",\" or \")\" in argument list, got %q", p.peekToken.Literal)
		}
	}

	// consume ')'
	p.nextToken()

	return expr, nil
}

func (p *Parser) parseIndexExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}

	p.nextToken()

	index, err := p.parseExpression(precLowest)
	if err != nil {
		return nil, err
	}

	expr.Index = index

	if err := p.expectPeek(token.RBRACKET); err != nil {
		return nil, err
	}

	return expr, nil
}

func (p *Parser) parseMemberExpression(left ast.Expression) (ast.Expression, error) {
	expr := &ast.MemberExpression{Token: p.curToken, Object: left}

	if err := p.expectPeek(token.IDENT); err != nil {
		return nil, err
	}

	expr.Field = p.curToken.Literal

	return expr, nil
}
