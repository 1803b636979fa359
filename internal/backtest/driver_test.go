package backtest

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DriverTestSuite struct {
	suite.Suite
}

func TestDriverSuite(t *testing.T) {
	suite.Run(t, new(DriverTestSuite))
}

func testBars(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, len(closes))

	for i, c := range closes {
		bars = append(bars, types.Bar{
			Symbol: "BTCUSD",
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

func (suite *DriverTestSuite) driver(cfg Config) *Driver {
	driver, err := NewDriver(cfg, nil)
	suite.Require().NoError(err)

	return driver
}

func (suite *DriverTestSuite) TestBuyAndCloseRoundTrip() {
	driver := suite.driver(Config{InitialCapital: 100000})

	source := `
on_bar(symbol) {
	if bar_index == 0 {
		buy(1)
	}
	if bar_index == 3 {
		close()
	}
}
`
	result, err := driver.Run(source, testBars(100, 105, 110, 120))
	suite.Require().NoError(err)

	// One entry fill and one closing fill.
	suite.Require().Len(result.Trades, 1)
	suite.InDelta(20.0, result.Trades[0].PnL, 1e-9)

	suite.Equal(1, result.Metrics.TotalTrades)
	suite.Equal(1, result.Metrics.WinningTrades)
	suite.InDelta(100020.0, result.Metrics.FinalEquity, 1e-9)
	suite.Positive(result.Metrics.TotalReturn)

	suite.Len(result.EquityCurve, 4)
	suite.Empty(result.OrderErrors)
	suite.NoError(result.Script.SandboxViolation)
}

func (suite *DriverTestSuite) TestSlippageAppliedToFills() {
	driver := suite.driver(Config{
		InitialCapital: 100000,
		Slippage:       SlippageConfig{Mode: "percentage", Value: 0.001},
	})

	result, err := driver.Run(`buy(1)`, testBars(45000))
	suite.Require().NoError(err)

	var filled []types.Order

	for _, order := range result.Orders {
		if order.Status == types.OrderStatusFilled {
			filled = append(filled, order)
		}
	}

	suite.Require().Len(filled, 1)
	suite.InDelta(45045.0, filled[0].AvgFillPrice, 1e-9)
}

func (suite *DriverTestSuite) TestCommissionCharged() {
	driver := suite.driver(Config{
		InitialCapital: 100000,
		Commission:     CommissionConfig{Mode: "per_unit", Value: 2},
	})

	result, err := driver.Run(`buy(1)`, testBars(100, 100))
	suite.Require().NoError(err)

	suite.InDelta(2.0, result.Metrics.TotalFees, 1e-9)
}

func (suite *DriverTestSuite) TestParseErrorFailsRun() {
	driver := suite.driver(Config{InitialCapital: 1000})

	_, err := driver.Run(`let = broken`, testBars(100))
	suite.Error(err)
}

func (suite *DriverTestSuite) TestEmptyScriptRejected() {
	driver := suite.driver(Config{InitialCapital: 1000})

	_, err := driver.Run("  ", testBars(100))
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeScriptRejected, errors.GetCode(err))
}

func (suite *DriverTestSuite) TestOrderValidationRecordedNotFatal() {
	driver := suite.driver(Config{InitialCapital: 1000})

	// LIMIT order without a price fails validation; the run completes.
	source := `order("BTCUSD", "buy", 1, "LIMIT")`

	result, err := driver.Run(source, testBars(100))
	suite.Require().NoError(err)

	suite.Require().Len(result.OrderErrors, 1)
	suite.Equal(errors.ErrCodeMissingLimitPrice, errors.GetCode(result.OrderErrors[0]))
}

func (suite *DriverTestSuite) TestOpenOrderCapRecorded() {
	driver := suite.driver(Config{InitialCapital: 1000, MaxOpenOrders: 1})

	source := `
order("BTCUSD", "buy", 1, "LIMIT", 50)
order("BTCUSD", "buy", 1, "LIMIT", 51)
`
	result, err := driver.Run(source, testBars(100))
	suite.Require().NoError(err)

	suite.Require().Len(result.OrderErrors, 1)
	suite.Equal(errors.ErrCodeOpenOrderCapReached, errors.GetCode(result.OrderErrors[0]))
}

func (suite *DriverTestSuite) TestCloseOnFlatIsNoOp() {
	driver := suite.driver(Config{InitialCapital: 1000})

	result, err := driver.Run(`close()`, testBars(100))
	suite.Require().NoError(err)

	suite.Empty(result.Orders)
	suite.Empty(result.OrderErrors)
}

func (suite *DriverTestSuite) TestSandboxViolationStillReturnsResult() {
	cfg := Config{InitialCapital: 1000}
	cfg.Limits.MaxSteps = 2

	driver := suite.driver(cfg)

	source := `
on_bar(symbol) {
	buy(1)
}
`
	result, err := driver.Run(source, testBars(100, 101, 102, 103, 104))
	suite.Require().NoError(err)

	suite.Require().Error(result.Script.SandboxViolation)
	suite.Equal(errors.ErrCodeStepBudgetExceeded, errors.GetCode(result.Script.SandboxViolation))
	suite.NotEmpty(result.EquityCurve)
}

func (suite *DriverTestSuite) TestEquityCurveHasOnePointPerBar() {
	driver := suite.driver(Config{InitialCapital: 1000})

	// No on_end handler: the final bar must not be sampled twice.
	source := `
on_bar(symbol) {
	debug(symbol)
}
`
	result, err := driver.Run(source, testBars(100, 101, 102))
	suite.Require().NoError(err)

	suite.Len(result.EquityCurve, 3)
}

func (suite *DriverTestSuite) TestOnEndOrdersFillWithoutDuplicateSample() {
	driver := suite.driver(Config{InitialCapital: 1000})

	source := `
on_end(symbol) {
	buy(1)
}
`
	result, err := driver.Run(source, testBars(100, 110, 120))
	suite.Require().NoError(err)

	// The order fills against the final bar's close.
	var filled int

	for _, order := range result.Orders {
		if order.Status == types.OrderStatusFilled {
			filled++

			suite.InDelta(120.0, order.AvgFillPrice, 1e-9)
		}
	}

	suite.Equal(1, filled)

	// Still one equity point per bar; the last sample reflects the fill.
	suite.Require().Len(result.EquityCurve, 3)
	suite.True(result.EquityCurve[2].Time.After(result.EquityCurve[1].Time))
}

func (suite *DriverTestSuite) TestTickModeFillsInsideBarRange() {
	// Limit below the close but above the low: only reachable intrabar.
	source := `order("BTCUSD", "buy", 1, "LIMIT", 98.5)`

	barDriver := suite.driver(Config{InitialCapital: 1000})

	result, err := barDriver.Run(source, testBars(100))
	suite.Require().NoError(err)
	suite.Require().Len(result.Orders, 1)
	suite.Equal(types.OrderStatusOpen, result.Orders[0].Status)

	tickDriver := suite.driver(Config{InitialCapital: 1000, Mode: ModeTick})

	result, err = tickDriver.Run(source, testBars(100))
	suite.Require().NoError(err)
	suite.Require().Len(result.Orders, 1)
	suite.Equal(types.OrderStatusFilled, result.Orders[0].Status)
	suite.InDelta(98.0, result.Orders[0].AvgFillPrice, 1e-9)

	// Tick replay still samples equity once per bar.
	suite.Len(result.EquityCurve, 1)
}

func (suite *DriverTestSuite) TestTimeRangeFilter() {
	start := time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC)

	driver := suite.driver(Config{InitialCapital: 1000, StartTime: start})

	result, err := driver.Run(`debug("x")`, testBars(100, 101, 102, 103))
	suite.Require().NoError(err)

	// Only the bars at or after the start time remain.
	suite.Len(result.EquityCurve, 2)
}

func (suite *DriverTestSuite) TestExportArtifacts() {
	outDir := suite.T().TempDir()

	driver := suite.driver(Config{InitialCapital: 1000, OutputDir: outDir})

	source := `
on_bar(symbol) {
	if bar_index == 0 {
		buy(1)
	}
	if bar_index == 1 {
		close()
	}
}
`
	result, err := driver.Run(source, testBars(100, 110))
	suite.Require().NoError(err)

	suite.FileExists(result.Report.TradesFilePath)
	suite.FileExists(result.Report.EquityFilePath)
	suite.NotEmpty(result.Report.ID)
}
