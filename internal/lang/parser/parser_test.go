package parser

import (
	"testing"

	"github.com/rxtech-lab/argo-script/internal/lang/ast"
	"github.com/rxtech-lab/argo-script/internal/lang/token"
	"github.com/stretchr/testify/suite"
)

type ParserTestSuite struct {
	suite.Suite
}

func TestParserSuite(t *testing.T) {
	suite.Run(t, new(ParserTestSuite))
}

func (suite *ParserTestSuite) parse(src string) *ast.Program {
	program, err := Parse(src)
	suite.Require().NoError(err)
	suite.Require().NotNil(program)

	return program
}

func (suite *ParserTestSuite) TestLetStatement() {
	program := suite.parse(`let fast = sma(close, 10)`)
	suite.Require().Len(program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.LetStatement)
	suite.Require().True(ok)
	suite.Equal("fast", stmt.Name)

	call, ok := stmt.Value.(*ast.CallExpression)
	suite.Require().True(ok)
	suite.Equal("sma", call.Callee.Name)
	suite.Require().Len(call.Arguments, 2)
}

func (suite *ParserTestSuite) TestAssignStatement() {
	program := suite.parse("let x = 1\nx = x + 1")
	suite.Require().Len(program.Statements, 2)

	stmt, ok := program.Statements[1].(*ast.AssignStatement)
	suite.Require().True(ok)
	suite.Equal("x", stmt.Name)
	suite.Equal("(x + 1)", stmt.Value.String())
}

func (suite *ParserTestSuite) TestOperatorPrecedence() {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a + b > c - d", "((a + b) > (c - d))"},
		{"-a * b", "((-a) * b)"},
		{"a / b / c", "((a / b) / c)"},
		{"a == b != c", "((a == b) != c)"},
	}

	for _, tt := range tests {
		program := suite.parse(tt.input)
		suite.Require().Len(program.Statements, 1, tt.input)

		stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
		suite.Require().True(ok, tt.input)
		suite.Equal(tt.expected, stmt.Expression.String(), tt.input)
	}
}

func (suite *ParserTestSuite) TestMemberAccessOnCall() {
	program := suite.parse(`let hist = macd(close, 12, 26, 9).histogram`)
	stmt := program.Statements[0].(*ast.LetStatement)

	member, ok := stmt.Value.(*ast.MemberExpression)
	suite.Require().True(ok)
	suite.Equal("histogram", member.Field)

	call, ok := member.Object.(*ast.CallExpression)
	suite.Require().True(ok)
	suite.Equal("macd", call.Callee.Name)
	suite.Len(call.Arguments, 4)
}

func (suite *ParserTestSuite) TestIndexExpression() {
	program := suite.parse(`let last = close[bar_index - 1]`)
	stmt := program.Statements[0].(*ast.LetStatement)

	index, ok := stmt.Value.(*ast.IndexExpression)
	suite.Require().True(ok)
	suite.Equal("close", index.Left.String())
	suite.Equal("(bar_index - 1)", index.Index.String())
}

func (suite *ParserTestSuite) TestIfElseStatement() {
	program := suite.parse(`
if rsi_val > 70 {
    sell(1)
} else {
    buy(1)
}`)
	suite.Require().Len(program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.IfStatement)
	suite.Require().True(ok)
	suite.Equal("(rsi_val > 70)", stmt.Condition.String())
	suite.Require().Len(stmt.Consequence.Statements, 1)
	suite.Require().NotNil(stmt.Alternative)
	suite.Require().Len(stmt.Alternative.Statements, 1)
}

func (suite *ParserTestSuite) TestHandlerStatements() {
	program := suite.parse(`
on_start() {
    debug("starting")
}
on_bar(symbol) {
    buy(symbol, 1)
}
on_end() {
    close("BTCUSD")
}`)
	suite.Require().Len(program.Statements, 3)

	handlers := program.Handlers()
	suite.Require().Len(handlers, 3)

	onBar := handlers[token.ONBAR]
	suite.Require().NotNil(onBar)
	suite.Equal([]string{"symbol"}, onBar.Params)
	suite.Len(onBar.Body.Statements, 1)
}

func (suite *ParserTestSuite) TestCommandStatement() {
	program := suite.parse(`order("BTCUSD", "sell", 1, "LIMIT", 50000)`)
	suite.Require().Len(program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	suite.Require().True(ok)

	call, ok := stmt.Expression.(*ast.CallExpression)
	suite.Require().True(ok)
	suite.Equal("order", call.Callee.Name)
	suite.Len(call.Arguments, 5)
}

func (suite *ParserTestSuite) TestSyntaxErrorReportsPosition() {
	_, err := Parse("let = 5")
	suite.Require().Error(err)

	parseErr, ok := err.(*ParseError)
	suite.Require().True(ok)
	suite.Equal(1, parseErr.Line)
	suite.Contains(parseErr.Error(), "line 1")
}

func (suite *ParserTestSuite) TestMissingClosingBrace() {
	_, err := Parse("on_bar(symbol) {\n  buy(1)\n")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "missing closing brace")
}

func (suite *ParserTestSuite) TestUnterminatedArgumentList() {
	_, err := Parse(`buy(1`)
	suite.Require().Error(err)
}

func (suite *ParserTestSuite) TestMalformedListsRejected() {
	for _, src := range []string{
		"on_bar(a b) {\n  buy(1)\n}",
		"on_bar(a,) {\n  buy(1)\n}",
		`buy(1,)`,
		`order("BTCUSD" "buy", 1, "MARKET")`,
	} {
		_, err := Parse(src)
		suite.Require().Error(err, src)
	}
}

func (suite *ParserTestSuite) TestNoPartialProgramOnError() {
	program, err := Parse("let a = 1\nlet = 2")
	suite.Require().Error(err)
	suite.Nil(program)
}
