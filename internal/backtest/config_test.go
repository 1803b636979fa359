package backtest

import (
	"testing"

	"github.com/rxtech-lab/argo-script/internal/engine/slippage"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseValidConfig() {
	cfg, err := ParseConfig([]byte(`
api_version: "1.0.0"
symbol: BTCUSD
initial_capital: 100000
max_open_orders: 10
slippage:
  mode: percentage
  value: 0.001
commission:
  mode: percent
  value: 0.0005
limits:
  max_steps: 500000
  max_wall_clock_seconds: 5
`))
	suite.Require().NoError(err)

	suite.Equal("BTCUSD", cfg.Symbol)
	suite.Equal(100000.0, cfg.InitialCapital)
	suite.Equal(500000, cfg.Limits.MaxSteps)

	model, err := cfg.SlippageModel()
	suite.Require().NoError(err)
	suite.IsType(slippage.Percentage{}, model)
}

func (suite *ConfigTestSuite) TestMissingCapitalRejected() {
	_, err := ParseConfig([]byte(`symbol: BTCUSD`))
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeBacktestConfigError, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestIncompatibleAPIVersionRejected() {
	_, err := ParseConfig([]byte(`
api_version: "2.0.0"
initial_capital: 1000
`))
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeVersionMismatch, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestVolatilitySlippageRequiresSeed() {
	_, err := ParseConfig([]byte(`
initial_capital: 1000
slippage:
  mode: volatility
  value: 0.01
`))
	suite.Require().Error(err)

	cfg, err := ParseConfig([]byte(`
initial_capital: 1000
slippage:
  mode: volatility
  value: 0.01
  seed: 42
`))
	suite.Require().NoError(err)

	model, err := cfg.SlippageModel()
	suite.Require().NoError(err)
	suite.NotNil(model)
}

func (suite *ConfigTestSuite) TestEndBeforeStartRejected() {
	_, err := ParseConfig([]byte(`
initial_capital: 1000
start_time: 2024-06-01T00:00:00Z
end_time: 2024-01-01T00:00:00Z
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestSteppingModeValidated() {
	_, err := ParseConfig([]byte(`
initial_capital: 1000
mode: quantum
`))
	suite.Error(err)

	cfg, err := ParseConfig([]byte(`
initial_capital: 1000
mode: tick
`))
	suite.Require().NoError(err)
	suite.Equal(ModeTick, cfg.Mode)
}

func (suite *ConfigTestSuite) TestUnknownSlippageModeRejected() {
	_, err := ParseConfig([]byte(`
initial_capital: 1000
slippage:
  mode: quantum
`))
	suite.Error(err)
}
