package backtest

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-script/internal/engine/commission"
	"github.com/rxtech-lab/argo-script/internal/engine/slippage"
	"github.com/rxtech-lab/argo-script/internal/lang/interpreter"
	"github.com/rxtech-lab/argo-script/internal/version"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Stepping modes: bar feeds one close-derived quote per bar, tick replays
// the intrabar open/extreme/close path so resting orders can execute
// inside the bar's range.
const (
	ModeBar  = "bar"
	ModeTick = "tick"
)

// SlippageConfig selects the execution slippage model.
type SlippageConfig struct {
	Mode  string  `yaml:"mode" json:"mode" jsonschema:"enum=none,enum=fixed,enum=percentage,enum=volatility" validate:"omitempty,oneof=none fixed percentage volatility"`
	Value float64 `yaml:"value" json:"value" validate:"gte=0"`
	// Seed drives the volatility model's random draws. Required for
	// mode volatility so runs replay identically.
	Seed int64 `yaml:"seed" json:"seed"`
}

// CommissionConfig selects the fee model.
type CommissionConfig struct {
	Mode  string  `yaml:"mode" json:"mode" jsonschema:"enum=none,enum=per_unit,enum=percent" validate:"omitempty,oneof=none per_unit percent"`
	Value float64 `yaml:"value" json:"value" validate:"gte=0"`
}

// LimitsConfig is the script sandbox budget.
type LimitsConfig struct {
	MaxSteps            int `yaml:"max_steps" json:"max_steps" validate:"gte=0"`
	MaxWallClockSeconds int `yaml:"max_wall_clock_seconds" json:"max_wall_clock_seconds" validate:"gte=0"`
}

// Config is the full backtest run configuration, loaded from YAML.
type Config struct {
	// APIVersion is the config schema version this file was written for.
	APIVersion     string  `yaml:"api_version" json:"api_version"`
	Symbol         string  `yaml:"symbol" json:"symbol"`
	// Mode selects the stepping granularity. Defaults to bar.
	Mode           string  `yaml:"mode" json:"mode" jsonschema:"enum=bar,enum=tick" validate:"omitempty,oneof=bar tick"`
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"required,gt=0"`
	// StartTime and EndTime bound the bars fed to the run; zero values
	// mean unbounded.
	StartTime         time.Time        `yaml:"start_time" json:"start_time"`
	EndTime           time.Time        `yaml:"end_time" json:"end_time"`
	MaxOpenOrders     int              `yaml:"max_open_orders" json:"max_open_orders" validate:"gte=0"`
	AllowPartialFills bool             `yaml:"allow_partial_fills" json:"allow_partial_fills"`
	Slippage          SlippageConfig   `yaml:"slippage" json:"slippage"`
	Commission        CommissionConfig `yaml:"commission" json:"commission"`
	Limits            LimitsConfig     `yaml:"limits" json:"limits"`
	OutputDir         string           `yaml:"output_dir" json:"output_dir"`
}

// ParseConfig unmarshals and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to read config file", err)
	}

	return ParseConfig(data)
}

// Validate checks struct constraints, version compatibility and the
// cross-field rules the tags cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid config", err)
	}

	if err := version.CheckCompatibility(c.APIVersion); err != nil {
		return err
	}

	if c.Slippage.Mode == "volatility" && c.Slippage.Seed == 0 {
		return errors.New(errors.ErrCodeBacktestConfigError, "volatility slippage requires an explicit non-zero seed")
	}

	if !c.StartTime.IsZero() && !c.EndTime.IsZero() && c.EndTime.Before(c.StartTime) {
		return errors.New(errors.ErrCodeBacktestConfigError, "end_time is before start_time")
	}

	return nil
}

// SlippageModel builds the configured slippage model.
func (c Config) SlippageModel() (slippage.Model, error) {
	switch c.Slippage.Mode {
	case "", "none":
		return slippage.None{}, nil
	case "fixed":
		return slippage.Fixed{Amount: c.Slippage.Value}, nil
	case "percentage":
		return slippage.Percentage{Rate: c.Slippage.Value}, nil
	case "volatility":
		return slippage.NewVolatility(c.Slippage.Value, c.Slippage.Seed)
	default:
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "unknown slippage mode %q", c.Slippage.Mode)
	}
}

// CommissionModel builds the configured fee model.
func (c Config) CommissionModel() (commission.Model, error) {
	switch c.Commission.Mode {
	case "", "none":
		return commission.Free{}, nil
	case "per_unit":
		return commission.PerUnit{Amount: c.Commission.Value}, nil
	case "percent":
		return commission.PercentOfNotional{Rate: c.Commission.Value}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "unknown commission mode %q", c.Commission.Mode)
	}
}

// InterpreterLimits maps the config budget onto the sandbox limits.
func (c Config) InterpreterLimits() interpreter.Limits {
	return interpreter.Limits{
		MaxSteps:     c.Limits.MaxSteps,
		MaxWallClock: time.Duration(c.Limits.MaxWallClockSeconds) * time.Second,
	}
}
