package interpreter

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-script/internal/lang/parser"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type InterpreterTestSuite struct {
	suite.Suite
}

func TestInterpreterSuite(t *testing.T) {
	suite.Run(t, new(InterpreterTestSuite))
}

func makeBars(symbol string, closes ...float64) []types.Bar {
	bars := make([]types.Bar, 0, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c - 1,
			High:   c + 1,
			Low:    c - 2,
			Close:  c,
			Volume: 1000,
		})
	}

	return bars
}

func (suite *InterpreterTestSuite) run(source string, bars []types.Bar) *Result {
	program, err := parser.Parse(source)
	suite.Require().NoError(err)

	it, err := New(Config{Program: program, Window: bars})
	suite.Require().NoError(err)

	return it.Run()
}

func (suite *InterpreterTestSuite) TestBuyEmitsOneSignal() {
	result := suite.run(`buy(1)`, makeBars("BTCUSD", 100, 101, 102))

	suite.Require().Len(result.Signals, 1)
	suite.Equal("BUY:BTCUSD:1", result.Signals[0].Text())
	suite.Empty(result.Errors)
	suite.NoError(result.SandboxViolation)
}

func (suite *InterpreterTestSuite) TestOrderSignalText() {
	result := suite.run(`order("BTCUSD", "sell", 1, "LIMIT", 50000)`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Signals, 1)
	suite.Equal("ORDER:SELL:BTCUSD:1", result.Signals[0].Text())
	suite.Equal(types.OrderTypeLimit, result.Signals[0].OrderType)
	suite.Equal(50000.0, result.Signals[0].Price.Unwrap())
}

func (suite *InterpreterTestSuite) TestSequentialOrdersKeepOrder() {
	source := `
buy(1)
sell(2)
order("ETHUSD", "buy", 3)
`
	result := suite.run(source, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Signals, 3)
	suite.Equal("BUY:BTCUSD:1", result.Signals[0].Text())
	suite.Equal("SELL:BTCUSD:2", result.Signals[1].Text())
	suite.Equal("ORDER:BUY:ETHUSD:3", result.Signals[2].Text())
}

func (suite *InterpreterTestSuite) TestFractionalQuantityText() {
	result := suite.run(`buy(0.5)`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Signals, 1)
	suite.Equal("BUY:BTCUSD:0.5", result.Signals[0].Text())
}

func (suite *InterpreterTestSuite) TestCloseSignal() {
	result := suite.run(`close()`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Signals, 1)
	suite.Equal("CLOSE:BTCUSD", result.Signals[0].Text())
}

func (suite *InterpreterTestSuite) TestOnBarRunsPerBar() {
	source := `
on_bar(symbol) {
	buy(1)
}
`
	result := suite.run(source, makeBars("BTCUSD", 100, 101, 102, 103))

	suite.Len(result.Signals, 4)
}

func (suite *InterpreterTestSuite) TestBarIndexBinding() {
	source := `
on_bar(symbol) {
	if close[bar_index] > close[bar_index - 1] {
		buy(1)
	}
}
`
	// First bar faults on close[-1]; bars 2 and 4 rise.
	result := suite.run(source, makeBars("BTCUSD", 100, 102, 101, 105))

	suite.Len(result.Signals, 2)
	suite.Require().Len(result.Errors, 1)
	suite.Equal("on_bar", result.Errors[0].Stage)
	suite.Equal(0, result.Errors[0].BarIndex)
	suite.Equal(errors.ErrCodeIndexOutOfRange, errors.GetCode(result.Errors[0].Err))
}

func (suite *InterpreterTestSuite) TestLifecycleHandlers() {
	source := `
on_start() {
	debug("starting")
}
on_bar(symbol) {
	debug(symbol)
}
on_end() {
	buy(1)
}
`
	result := suite.run(source, makeBars("BTCUSD", 100, 101))

	suite.Equal([]string{"starting", "BTCUSD", "BTCUSD"}, result.DebugLog)
	suite.Len(result.Signals, 1)
}

func (suite *InterpreterTestSuite) TestLetAndIndicatorPipeline() {
	source := `
let fast = sma(close, 2)
let slow = sma(close, 3)
let spread = fast - slow
if spread[3] > 0 {
	buy(1)
} else {
	sell(1)
}
`
	result := suite.run(source, makeBars("BTCUSD", 100, 101, 102, 103))

	suite.Empty(result.Errors)
	suite.Require().Len(result.Signals, 1)
	suite.Equal("BUY:BTCUSD:1", result.Signals[0].Text())

	_, ok := result.Variables["spread"]
	suite.True(ok)
}

func (suite *InterpreterTestSuite) TestMemberAccessOnIndicator() {
	source := `
let m = macd(close, 3, 6, 2)
let h = m.histogram
debug(h)
`
	result := suite.run(source, makeBars("BTCUSD", 100, 102, 101, 104, 103, 106, 105, 108))

	suite.Empty(result.Errors)
	suite.Len(result.DebugLog, 1)
}

func (suite *InterpreterTestSuite) TestUnknownFieldFaults() {
	source := `
let m = macd(close, 3, 6, 2)
let h = m.nope
buy(1)
`
	result := suite.run(source, makeBars("BTCUSD", 100, 102, 101, 104, 103, 106, 105, 108))

	suite.Require().Len(result.Errors, 1)
	suite.Equal(errors.ErrCodeUnknownField, errors.GetCode(result.Errors[0].Err))

	// Execution continues past the faulting statement.
	suite.Len(result.Signals, 1)
}

func (suite *InterpreterTestSuite) TestFaultRecoveryInBodyPass() {
	source := `
let x = nosuchthing + 1
buy(1)
let y = 1 / 0
sell(1)
`
	result := suite.run(source, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Errors, 2)
	suite.Equal(errors.ErrCodeUnknownIdentifier, errors.GetCode(result.Errors[0].Err))
	suite.Equal(errors.ErrCodeDivisionByZero, errors.GetCode(result.Errors[1].Err))

	suite.Len(result.Signals, 2)
	suite.NoError(result.SandboxViolation)
}

func (suite *InterpreterTestSuite) TestAssignUndeclaredFaults() {
	result := suite.run("x = 1", makeBars("BTCUSD", 100))

	suite.Require().Len(result.Errors, 1)
	suite.Equal(errors.ErrCodeUnknownIdentifier, errors.GetCode(result.Errors[0].Err))
}

func (suite *InterpreterTestSuite) TestStepBudgetHaltsRun() {
	source := `
on_bar(symbol) {
	buy(1)
}
`
	program, err := parser.Parse(source)
	suite.Require().NoError(err)

	it, err := New(Config{
		Program: program,
		Window:  makeBars("BTCUSD", 100, 101, 102, 103, 104, 105),
		Limits:  Limits{MaxSteps: 3},
	})
	suite.Require().NoError(err)

	result := it.Run()

	suite.Require().Error(result.SandboxViolation)
	suite.Equal(errors.ErrCodeStepBudgetExceeded, errors.GetCode(result.SandboxViolation))
	suite.Less(len(result.Signals), 6)
}

func (suite *InterpreterTestSuite) TestCancelHaltsRun() {
	program, err := parser.Parse(`on_bar(symbol) { buy(1) }`)
	suite.Require().NoError(err)

	it, err := New(Config{Program: program, Window: makeBars("BTCUSD", 100, 101)})
	suite.Require().NoError(err)

	it.Cancel()
	result := it.Run()

	suite.Require().Error(result.SandboxViolation)
	suite.Equal(errors.ErrCodeRunCancelled, errors.GetCode(result.SandboxViolation))
	suite.Empty(result.Signals)
}

func (suite *InterpreterTestSuite) TestSecurityFeed() {
	source := `
let eth = security("ETHUSD")
if eth.close[0] > 2000 {
	buy(1)
}
`
	program, err := parser.Parse(source)
	suite.Require().NoError(err)

	it, err := New(Config{
		Program: program,
		Window:  makeBars("BTCUSD", 100),
		Feeds:   map[string][]types.Bar{"ETHUSD": makeBars("ETHUSD", 2500)},
	})
	suite.Require().NoError(err)

	result := it.Run()

	suite.Empty(result.Errors)
	suite.Len(result.Signals, 1)
}

func (suite *InterpreterTestSuite) TestSecurityUnknownSymbolFaults() {
	result := suite.run(`let x = security("NOPE")`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Errors, 1)
	suite.Equal(errors.ErrCodeUnknownSymbol, errors.GetCode(result.Errors[0].Err))
}

func (suite *InterpreterTestSuite) TestPlotRecordsOverlay() {
	source := `
plot(sma(close, 2), "fast")
plot(42)
`
	result := suite.run(source, makeBars("BTCUSD", 100, 101, 102))

	suite.Empty(result.Errors)
	suite.Contains(result.Overlays, "fast")
	suite.Contains(result.Overlays, "plot2")
}

func (suite *InterpreterTestSuite) TestResultSnapshotsOverlays() {
	program, err := parser.Parse(`plot(42, "level")`)
	suite.Require().NoError(err)

	it, err := New(Config{Program: program, Window: makeBars("BTCUSD", 100)})
	suite.Require().NoError(err)

	result := it.Run()
	delete(result.Overlays, "level")

	// Mutating one snapshot must not leak into the next.
	suite.Contains(it.Result().Overlays, "level")
}

func (suite *InterpreterTestSuite) TestTakeSignalsDrains() {
	program, err := parser.Parse(`on_bar(symbol) { buy(1) }`)
	suite.Require().NoError(err)

	it, err := New(Config{Program: program, Window: makeBars("BTCUSD", 100, 101)})
	suite.Require().NoError(err)

	suite.Require().NoError(it.RunBody())
	suite.Require().NoError(it.Start())

	suite.Require().NoError(it.Step(0))
	suite.Len(it.TakeSignals(), 1)

	suite.Require().NoError(it.Step(1))
	suite.Len(it.TakeSignals(), 1)
	suite.Empty(it.TakeSignals())

	// The full run log keeps everything.
	suite.Len(it.Result().Signals, 2)
}

func (suite *InterpreterTestSuite) TestInvalidQuantityFaults() {
	result := suite.run(`buy(-1)`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Errors, 1)
	suite.Equal(errors.ErrCodeInvalidArgument, errors.GetCode(result.Errors[0].Err))
	suite.Empty(result.Signals)
}

func (suite *InterpreterTestSuite) TestUnknownFunctionFaults() {
	result := suite.run(`frobnicate(1)`, makeBars("BTCUSD", 100))

	suite.Require().Len(result.Errors, 1)
	suite.Equal(errors.ErrCodeUnknownFunction, errors.GetCode(result.Errors[0].Err))
}

func (suite *InterpreterTestSuite) TestSeriesComparisonProducesSeries() {
	source := `
let rising = close > shift(close, 1)
if rising[2] == 1 {
	buy(1)
}
`
	result := suite.run(source, makeBars("BTCUSD", 100, 99, 105))

	suite.Empty(result.Errors)
	suite.Len(result.Signals, 1)
}
