// Package backtest drives a full run: parse the script, replay bars
// through the interpreter's event pass, route signals into the matching
// engine, book fills into the ledger and compute metrics at the end.
package backtest

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-script/internal/engine"
	"github.com/rxtech-lab/argo-script/internal/engine/commission"
	"github.com/rxtech-lab/argo-script/internal/lang/interpreter"
	"github.com/rxtech-lab/argo-script/internal/lang/parser"
	"github.com/rxtech-lab/argo-script/internal/ledger"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/sanitize"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// RunResult is what every completed run produces, including runs halted
// by the script sandbox.
type RunResult struct {
	ID          string
	Symbol      string
	Metrics     types.PerformanceMetrics
	EquityCurve []types.EquityPoint
	Orders      []types.Order
	Trades      []types.TradeRecord
	// OrderErrors holds recorded order validation failures and engine
	// rejections; they never abort the run.
	OrderErrors []error
	Script      *interpreter.Result
	Report      types.BacktestReport
}

// Driver executes backtest runs for one config.
type Driver struct {
	cfg    Config
	logger *logger.Logger
	// ShowProgress renders a progress bar while stepping bars.
	ShowProgress bool
}

// NewDriver validates the config and builds a driver.
func NewDriver(cfg Config, log *logger.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Driver{cfg: cfg, logger: log}, nil
}

// Run executes one script over one bar window. Sanitizer rejections,
// parse errors and config problems fail the run outright; everything
// else is recorded in the result.
func (d *Driver) Run(source string, bars []types.Bar) (*RunResult, error) {
	if err := sanitize.CheckScript(source); err != nil {
		return nil, err
	}

	program, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	bars = d.filterBars(bars)
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoData, "no bars in the configured time range")
	}

	symbol := d.cfg.Symbol
	if symbol == "" {
		symbol = bars[0].Symbol
	}

	slippageModel, err := d.cfg.SlippageModel()
	if err != nil {
		return nil, err
	}

	commissionModel, err := d.cfg.CommissionModel()
	if err != nil {
		return nil, err
	}

	book := engine.New(engine.Config{
		MaxOpenOrders:     d.cfg.MaxOpenOrders,
		Slippage:          slippageModel,
		AllowPartialFills: d.cfg.AllowPartialFills,
		Logger:            d.logger,
	})

	portfolio, err := ledger.NewPortfolio(d.cfg.InitialCapital, d.logger)
	if err != nil {
		return nil, err
	}

	store, err := ledger.NewResultStore(d.logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		return nil, err
	}

	script, err := interpreter.New(interpreter.Config{
		Program: program,
		Symbol:  symbol,
		Window:  bars,
		Limits:  d.cfg.InterpreterLimits(),
		Logger:  d.logger,
	})
	if err != nil {
		return nil, err
	}

	result := &RunResult{ID: uuid.NewString(), Symbol: symbol}

	run := &runState{
		driver:     d,
		result:     result,
		book:       book,
		portfolio:  portfolio,
		store:      store,
		commission: commissionModel,
	}

	d.step(script, run, bars)

	result.Script = script.Result()
	result.Orders = book.Orders()

	for _, order := range result.Orders {
		if err := store.SaveOrder(order); err != nil {
			return nil, err
		}
	}

	stats, err := store.QueryTradeStats()
	if err != nil {
		return nil, err
	}

	result.Metrics = ComputeMetrics(d.cfg.InitialCapital, result.EquityCurve, stats, portfolio.TotalFees())

	if err := d.export(result, store); err != nil {
		return nil, err
	}

	d.logger.Info("backtest finished",
		zap.String("id", result.ID),
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("trades", result.Metrics.TotalTrades),
		zap.Float64("final_equity", result.Metrics.FinalEquity))

	return result, nil
}

// step replays the window: body pass once, then per bar the handler
// fires, its signals become orders and the quote matches the book.
func (d *Driver) step(script *interpreter.Interpreter, run *runState, bars []types.Bar) {
	var bar *progressbar.ProgressBar
	if d.ShowProgress {
		bar = progressbar.Default(int64(len(bars)), "backtesting")
	}

	if err := script.RunBody(); err != nil {
		return
	}

	// Signals emitted by the body pass execute against the first bar.
	run.submitSignals(script.TakeSignals())

	if err := script.Start(); err != nil {
		return
	}

	run.submitSignals(script.TakeSignals())

	for i := range bars {
		if bar != nil {
			_ = bar.Add(1)
		}

		if err := script.Step(i); err != nil {
			// Sandbox violation: stop stepping, keep what we have.
			break
		}

		run.submitSignals(script.TakeSignals())

		for _, quote := range d.quotesForBar(bars[i]) {
			run.processQuote(quote)
		}

		run.sampleEquity(bars[i].Time)
	}

	if err := script.End(); err != nil {
		return
	}

	// Orders from on_end execute against the final bar. Its equity sample
	// is refreshed in place, not appended a second time.
	if signals := script.TakeSignals(); len(signals) > 0 {
		last := bars[len(bars)-1]

		run.submitSignals(signals)
		run.processQuote(types.QuoteFromBar(last))
		run.sampleEquity(last.Time)
	}
}

// quotesForBar expands one bar into engine quotes. Bar mode feeds the
// close-derived quote; tick mode replays open, both extremes and close
// so resting orders can execute inside the bar's range.
func (d *Driver) quotesForBar(bar types.Bar) []types.Quote {
	if d.cfg.Mode != ModeTick {
		return []types.Quote{types.QuoteFromBar(bar)}
	}

	// Up bars visit the low first, down bars the high.
	path := []float64{bar.Open, bar.Low, bar.High, bar.Close}
	if bar.Close < bar.Open {
		path = []float64{bar.Open, bar.High, bar.Low, bar.Close}
	}

	quotes := make([]types.Quote, 0, len(path))
	for _, price := range path {
		quotes = append(quotes, types.Quote{
			Symbol: bar.Symbol,
			Time:   bar.Time,
			Bid:    price,
			Ask:    price,
			Last:   price,
		})
	}

	return quotes
}

// runState carries the per-run wiring between the engine and the ledger.
type runState struct {
	driver     *Driver
	result     *RunResult
	book       *engine.Engine
	portfolio  *ledger.Portfolio
	store      *ledger.ResultStore
	commission commission.Model
}

func (r *runState) submitSignals(signals []types.Signal) {
	for _, signal := range signals {
		request, ok := r.requestFromSignal(signal)
		if !ok {
			continue
		}

		if _, err := r.book.Submit(request, signal.Time); err != nil {
			r.result.OrderErrors = append(r.result.OrderErrors, err)
			r.driver.logger.Debug("order rejected", zap.String("signal", signal.Text()), zap.Error(err))
		}
	}
}

// requestFromSignal converts a recorded intent into an order request.
// CLOSE against a flat book is a no-op.
func (r *runState) requestFromSignal(signal types.Signal) (types.OrderRequest, bool) {
	if signal.Kind == types.SignalKindClose {
		position := r.portfolio.Position(signal.Symbol)
		if position.Side == types.PositionSideFlat || position.Quantity == 0 {
			return types.OrderRequest{}, false
		}

		side := types.SideSell
		if position.Side == types.PositionSideShort {
			side = types.SideBuy
		}

		return types.OrderRequest{
			Symbol:   signal.Symbol,
			Side:     side,
			Type:     types.OrderTypeMarket,
			Quantity: position.Quantity,
		}, true
	}

	return types.OrderRequest{
		Symbol:    signal.Symbol,
		Side:      signal.Side,
		Type:      signal.OrderType,
		Quantity:  signal.Quantity,
		Price:     signal.Price,
		StopPrice: signal.StopPrice,
	}, true
}

// processQuote matches the book against one quote and books the fills.
func (r *runState) processQuote(quote types.Quote) {
	fills := r.book.OnQuote(quote)

	for _, fill := range fills {
		r.bookFill(fill)
	}

	r.portfolio.UpdatePrice(quote.Symbol, quote.Last)
}

// sampleEquity records one equity point per bar; resampling the same
// time replaces the previous point instead of appending a duplicate.
func (r *runState) sampleEquity(at time.Time) {
	point := r.portfolio.EquityPoint(at)

	if n := len(r.result.EquityCurve); n > 0 && r.result.EquityCurve[n-1].Time.Equal(at) {
		r.result.EquityCurve[n-1] = point
	} else {
		r.result.EquityCurve = append(r.result.EquityCurve, point)
	}

	if err := r.store.SaveEquityPoint(point); err != nil {
		r.driver.logger.Error("failed to persist equity point", zap.Error(err))
	}
}

func (r *runState) bookFill(fill types.Fill) {
	before := r.portfolio.Position(fill.Symbol)
	fee := r.commission.Fee(fill.Quantity, fill.Price)

	after, err := r.portfolio.ApplyFill(fill, fee)
	if err != nil {
		r.result.OrderErrors = append(r.result.OrderErrors, err)

		return
	}

	if err := r.store.SaveFill(fill); err != nil {
		r.driver.logger.Error("failed to persist fill", zap.Error(err))
	}

	// A fill against the held direction closes some quantity: that is
	// one trade record.
	if !opposes(before, fill) || before.Quantity <= 0 {
		return
	}

	closed := before.Quantity
	if fill.Quantity < closed {
		closed = fill.Quantity
	}

	trade := types.TradeRecord{
		Symbol:     fill.Symbol,
		Side:       before.Side,
		Quantity:   closed,
		EntryPrice: before.AvgEntryPrice,
		ExitPrice:  fill.Price,
		EntryTime:  before.OpenTimestamp,
		ExitTime:   fill.Timestamp,
		PnL:        after.RealizedPnL - before.RealizedPnL,
	}

	r.result.Trades = append(r.result.Trades, trade)

	if err := r.store.SaveTrade(trade); err != nil {
		r.driver.logger.Error("failed to persist trade", zap.Error(err))
	}
}

func opposes(position types.Position, fill types.Fill) bool {
	if position.Side == types.PositionSideLong {
		return fill.Side == types.SideSell
	}

	if position.Side == types.PositionSideShort {
		return fill.Side == types.SideBuy
	}

	return false
}

func (d *Driver) filterBars(bars []types.Bar) []types.Bar {
	filtered := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		if !d.cfg.StartTime.IsZero() && bar.Time.Before(d.cfg.StartTime) {
			continue
		}

		if !d.cfg.EndTime.IsZero() && bar.Time.After(d.cfg.EndTime) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered
}

// export writes parquet artifacts and the YAML report when an output
// directory is configured.
func (d *Driver) export(result *RunResult, store *ledger.ResultStore) error {
	result.Report = types.BacktestReport{
		ID:        result.ID,
		Timestamp: time.Now().UTC(),
		Symbol:    result.Symbol,
		Metrics:   result.Metrics,
	}

	if d.cfg.OutputDir == "" {
		return nil
	}

	tradesPath := filepath.Join(d.cfg.OutputDir, "trades.parquet")
	equityPath := filepath.Join(d.cfg.OutputDir, "equity.parquet")

	if err := store.ExportParquet("trades", tradesPath); err != nil {
		return err
	}

	if err := store.ExportParquet("equity", equityPath); err != nil {
		return err
	}

	result.Report.TradesFilePath = tradesPath
	result.Report.EquityFilePath = equityPath

	reportPath := filepath.Join(d.cfg.OutputDir, "report.yaml")

	return types.WriteBacktestReport(reportPath, []types.BacktestReport{result.Report})
}
