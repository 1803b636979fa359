package slippage

import (
	"testing"

	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/stretchr/testify/suite"
)

type SlippageTestSuite struct {
	suite.Suite
}

func TestSlippageSuite(t *testing.T) {
	suite.Run(t, new(SlippageTestSuite))
}

func (suite *SlippageTestSuite) TestFixedIsAdverseBothSides() {
	m := Fixed{Amount: 5}

	suite.Equal(105.0, m.Adjust(100, types.SideBuy))
	suite.Equal(95.0, m.Adjust(100, types.SideSell))
}

func (suite *SlippageTestSuite) TestPercentage() {
	m := Percentage{Rate: 0.001}

	suite.InDelta(45045.0, m.Adjust(45000, types.SideBuy), 1e-9)
	suite.InDelta(44955.0, m.Adjust(45000, types.SideSell), 1e-9)
}

func (suite *SlippageTestSuite) TestNone() {
	suite.Equal(100.0, None{}.Adjust(100, types.SideBuy))
}

func (suite *SlippageTestSuite) TestVolatilityIsDeterministicPerSeed() {
	a, err := NewVolatility(0.01, 42)
	suite.Require().NoError(err)

	b, err := NewVolatility(0.01, 42)
	suite.Require().NoError(err)

	for i := 0; i < 10; i++ {
		suite.Equal(a.Adjust(100, types.SideBuy), b.Adjust(100, types.SideBuy))
	}
}

func (suite *SlippageTestSuite) TestVolatilityNeverFavorable() {
	m, err := NewVolatility(0.05, 7)
	suite.Require().NoError(err)

	for i := 0; i < 100; i++ {
		suite.GreaterOrEqual(m.Adjust(100, types.SideBuy), 100.0)
		suite.LessOrEqual(m.Adjust(100, types.SideSell), 100.0)
	}
}

func (suite *SlippageTestSuite) TestVolatilityNegativeScaleRejected() {
	_, err := NewVolatility(-0.1, 1)
	suite.Error(err)
}
