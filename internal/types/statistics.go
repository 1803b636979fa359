package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is one sample of the equity curve recorded per step.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time"`
	Equity float64   `yaml:"equity" json:"equity"`
}

// TradeRecord is one closed trade: a position (or part of one) opened and
// then closed, with its realized PnL.
type TradeRecord struct {
	Symbol     string       `yaml:"symbol" json:"symbol"`
	Side       PositionSide `yaml:"side" json:"side"`
	Quantity   float64      `yaml:"quantity" json:"quantity"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64      `yaml:"exit_price" json:"exit_price"`
	EntryTime  time.Time    `yaml:"entry_time" json:"entry_time"`
	ExitTime   time.Time    `yaml:"exit_time" json:"exit_time"`
	PnL        float64      `yaml:"pnl" json:"pnl"`
}

// PerformanceMetrics are the aggregate statistics computed once at the end
// of a backtest run from the equity curve and closed trades.
type PerformanceMetrics struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalEquity    float64 `yaml:"final_equity" json:"final_equity"`
	// TotalReturn is (final equity - initial capital) / initial capital.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// MaxDrawdown is the maximum over the run of
	// (peak-so-far - equity) / peak-so-far.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// SharpeRatio is mean(step returns)/stddev(step returns) * sqrt(252).
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// SortinoRatio uses only negative-return stddev in the denominator.
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	WinRate      float64 `yaml:"win_rate" json:"win_rate"`
	// ProfitFactor is gross wins / gross losses; +Inf when losses are zero
	// and wins > 0, otherwise 0.
	ProfitFactor  float64 `yaml:"profit_factor" json:"profit_factor"`
	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	GrossProfit   float64 `yaml:"gross_profit" json:"gross_profit"`
	GrossLoss     float64 `yaml:"gross_loss" json:"gross_loss"`
	TotalFees     float64 `yaml:"total_fees" json:"total_fees"`
}

// BacktestReport is the serialized summary of one backtest run.
type BacktestReport struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the primary trading pair.
	Symbol  string             `yaml:"symbol" json:"symbol"`
	Metrics PerformanceMetrics `yaml:"metrics" json:"metrics"`
	// TradesFilePath is the path to the exported trades parquet file.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// EquityFilePath is the path to the exported equity curve parquet file.
	EquityFilePath string `yaml:"equity_file_path" json:"equity_file_path"`
	// ScriptPath is the path to the strategy script that was run.
	ScriptPath string `yaml:"script_path" json:"script_path"`
	// DataPath is the path to the market data file used for this backtest.
	DataPath string `yaml:"data_path" json:"data_path"`
}

// WriteBacktestReport marshals reports to YAML at the given path.
func WriteBacktestReport(path string, reports []BacktestReport) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest report to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest report to file: %w", err)
	}

	return nil
}
