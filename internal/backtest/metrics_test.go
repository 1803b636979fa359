package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-script/internal/ledger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func curveOf(values ...float64) []types.EquityPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make([]types.EquityPoint, 0, len(values))

	for i, v := range values {
		curve = append(curve, types.EquityPoint{Time: start.Add(time.Duration(i) * time.Hour), Equity: v})
	}

	return curve
}

func (suite *MetricsTestSuite) TestMaxDrawdown() {
	curve := curveOf(100000, 101000, 99500, 102000)

	// Peak 101000 to trough 99500: 1500/101000.
	suite.InDelta(0.01485, MaxDrawdown(curve), 1e-5)
}

func (suite *MetricsTestSuite) TestMaxDrawdownMonotonicCurveIsZero() {
	suite.Zero(MaxDrawdown(curveOf(100, 110, 120)))
}

func (suite *MetricsTestSuite) TestMaxDrawdownEmptyCurve() {
	suite.Zero(MaxDrawdown(nil))
}

func (suite *MetricsTestSuite) TestProfitFactorRules() {
	suite.True(math.IsInf(ProfitFactor(100, 0), 1))
	suite.Zero(ProfitFactor(0, 0))
	suite.InDelta(2.0, ProfitFactor(100, 50), 1e-9)
}

func (suite *MetricsTestSuite) TestComputeMetrics() {
	curve := curveOf(1000, 1010, 1005, 1020)
	stats := ledger.TradeStats{TotalTrades: 4, WinningTrades: 3, LosingTrades: 1, GrossProfit: 30, GrossLoss: 10}

	metrics := ComputeMetrics(1000, curve, stats, 1.5)

	suite.Equal(1000.0, metrics.InitialCapital)
	suite.Equal(1020.0, metrics.FinalEquity)
	suite.InDelta(0.02, metrics.TotalReturn, 1e-9)
	suite.InDelta(0.75, metrics.WinRate, 1e-9)
	suite.InDelta(3.0, metrics.ProfitFactor, 1e-9)
	suite.Equal(1.5, metrics.TotalFees)
	suite.Greater(metrics.SharpeRatio, 0.0)
	suite.Positive(metrics.MaxDrawdown)
}

func (suite *MetricsTestSuite) TestSharpeZeroOnFlatCurve() {
	metrics := ComputeMetrics(1000, curveOf(1000, 1000, 1000), ledger.TradeStats{}, 0)

	suite.Zero(metrics.SharpeRatio)
	suite.Zero(metrics.SortinoRatio)
}

func (suite *MetricsTestSuite) TestSortinoInfiniteWithoutDownside() {
	metrics := ComputeMetrics(1000, curveOf(1000, 1010, 1020), ledger.TradeStats{}, 0)

	suite.True(math.IsInf(metrics.SortinoRatio, 1))
}
