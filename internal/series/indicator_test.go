package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	s := FromValues([]float64{1, 2, 3, 4, 5})

	sma, err := SMA(s, 3)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(sma[0]))
	suite.True(math.IsNaN(sma[1]))
	suite.InDelta(2.0, sma[2], 1e-9)
	suite.InDelta(3.0, sma[3], 1e-9)
	suite.InDelta(4.0, sma[4], 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAInvalidPeriod() {
	_, err := SMA(FromValues([]float64{1, 2}), 0)
	suite.Error(err)
}

func (suite *IndicatorTestSuite) TestEMASeedAndRecurrence() {
	s := FromValues([]float64{2, 4, 6, 8})

	ema, err := EMA(s, 3)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(ema[0]))
	suite.True(math.IsNaN(ema[1]))
	// Seeded with SMA(2,4,6) = 4.
	suite.InDelta(4.0, ema[2], 1e-9)
	// alpha = 2/(3+1) = 0.5; 8*0.5 + 4*0.5 = 6.
	suite.InDelta(6.0, ema[3], 1e-9)
}

func (suite *IndicatorTestSuite) TestEMAShortInputAllNaN() {
	ema, err := EMA(FromValues([]float64{1, 2}), 5)
	suite.Require().NoError(err)

	for _, v := range ema {
		suite.True(math.IsNaN(v))
	}
}

func (suite *IndicatorTestSuite) TestRSIStrictUptrendIs100() {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	rsi, err := RSI(FromValues(values), 14)
	suite.Require().NoError(err)

	for i := 0; i < 14; i++ {
		suite.True(math.IsNaN(rsi[i]), "index %d should be warm-up", i)
	}

	for i := 14; i < len(values); i++ {
		suite.InDelta(100.0, rsi[i], 1e-9, "index %d", i)
	}
}

func (suite *IndicatorTestSuite) TestRSIWilderSmoothing() {
	// period 2 over a small series checked by hand.
	s := FromValues([]float64{10, 11, 10, 12})

	rsi, err := RSI(s, 2)
	suite.Require().NoError(err)

	// Deltas: +1, -1, +2.
	// First averages over two deltas: avgGain = 0.5, avgLoss = 0.5 -> RSI 50.
	suite.InDelta(50.0, rsi[2], 1e-9)

	// Wilder step: avgGain = (0.5*1 + 2)/2 = 1.25, avgLoss = (0.5*1 + 0)/2 = 0.25.
	// RS = 5, RSI = 100 - 100/6.
	suite.InDelta(100-100.0/6.0, rsi[3], 1e-9)
}

func (suite *IndicatorTestSuite) TestMACDHistogramIsMACDMinusSignal() {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + 5*math.Sin(float64(i)/4)
	}

	result, err := MACD(FromValues(values), 5, 10, 4)
	suite.Require().NoError(err)

	suite.Len(result.MACD, len(values))
	suite.Len(result.Signal, len(values))
	suite.Len(result.Histogram, len(values))

	for i := range values {
		if math.IsNaN(result.Signal[i]) || math.IsNaN(result.MACD[i]) {
			suite.True(math.IsNaN(result.Histogram[i]))

			continue
		}

		suite.InDelta(result.MACD[i]-result.Signal[i], result.Histogram[i], 1e-9)
	}
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	s := FromValues([]float64{1, 2, 3, 4, 5})

	result, err := Bollinger(s, 3, 2.0)
	suite.Require().NoError(err)

	suite.True(math.IsNaN(result.Middle[1]))

	// Window {1,2,3}: mean 2, population stddev sqrt(2/3).
	stdDev := math.Sqrt(2.0 / 3.0)
	suite.InDelta(2.0, result.Middle[2], 1e-9)
	suite.InDelta(2.0+2*stdDev, result.Upper[2], 1e-9)
	suite.InDelta(2.0-2*stdDev, result.Lower[2], 1e-9)
}

func (suite *IndicatorTestSuite) TestBollingerInvalidMultiplier() {
	_, err := Bollinger(FromValues([]float64{1, 2, 3}), 2, 0)
	suite.Error(err)
}
