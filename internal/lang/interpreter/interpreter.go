// Package interpreter executes parsed strategy scripts in two phases: a
// body pass that evaluates top-level statements once over the whole loaded
// window, then an event pass that fires lifecycle handlers per bar. Faults
// inside a statement or handler invocation are recorded and execution
// continues; sandbox budget breaches halt the run.
package interpreter

import (
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-script/internal/lang/ast"
	"github.com/rxtech-lab/argo-script/internal/lang/token"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultMaxSteps bounds how many statements a run may execute.
	DefaultMaxSteps = 1_000_000
	// DefaultMaxWallClock bounds how long a run may take end to end.
	DefaultMaxWallClock = 10 * time.Second
)

// Limits is the sandbox budget for one run. Zero fields fall back to the
// package defaults.
type Limits struct {
	MaxSteps     int
	MaxWallClock time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxSteps <= 0 {
		l.MaxSteps = DefaultMaxSteps
	}

	if l.MaxWallClock <= 0 {
		l.MaxWallClock = DefaultMaxWallClock
	}

	return l
}

// RunError is one recorded non-fatal fault: where it happened and what
// went wrong. BarIndex is -1 outside the per-bar stage.
type RunError struct {
	Stage    string
	BarIndex int
	Err      error
}

func (e RunError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e RunError) Unwrap() error { return e.Err }

// Result is what a run always produces, even when faults were recorded
// or the sandbox halted the script.
type Result struct {
	Signals   []types.Signal
	Overlays  map[string]Value
	Variables map[string]Value
	DebugLog  []string
	Errors    []RunError
	// SandboxViolation is non-nil when a budget breach or cancellation
	// halted the run before it completed.
	SandboxViolation error
}

// SignalTexts renders every recorded signal in its normalized wire form.
func (r *Result) SignalTexts() []string {
	out := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		out = append(out, s.Text())
	}

	return out
}

// Config assembles one interpreter run.
type Config struct {
	Program *ast.Program
	// Symbol is the primary symbol; defaults to the first bar's symbol.
	Symbol string
	// Window is the primary symbol's loaded bars, oldest first.
	Window []types.Bar
	// Feeds holds additional symbols addressable via security().
	Feeds  map[string][]types.Bar
	Limits Limits
	Logger *logger.Logger
}

// Interpreter executes one program against one loaded window. Not safe
// for concurrent use; create one per run.
type Interpreter struct {
	program *ast.Program
	symbol  string
	window  []types.Bar
	feeds   map[string][]types.Bar
	limits  Limits
	logger  *logger.Logger

	scope    *Scope
	handlers map[token.Type]*ast.HandlerStatement

	signals  []types.Signal
	pending  []types.Signal
	overlays map[string]Value
	debugLog []string
	faults   []RunError

	steps     int
	startedAt time.Time
	cancelled atomic.Bool
	violation error

	// currentBar is -1 during the body pass and the bar index during
	// the event pass.
	currentBar int
	stage      string
}

// New builds an interpreter for one run.
func New(cfg Config) (*Interpreter, error) {
	if cfg.Program == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "program is required")
	}

	if len(cfg.Window) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "window must contain at least one bar")
	}

	symbol := cfg.Symbol
	if symbol == "" {
		symbol = cfg.Window[0].Symbol
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	feeds := make(map[string][]types.Bar, len(cfg.Feeds)+1)
	for name, bars := range cfg.Feeds {
		feeds[name] = bars
	}

	feeds[symbol] = cfg.Window

	return &Interpreter{
		program:    cfg.Program,
		symbol:     symbol,
		window:     cfg.Window,
		feeds:      feeds,
		limits:     cfg.Limits.withDefaults(),
		logger:     log,
		scope:      NewScope(),
		handlers:   cfg.Program.Handlers(),
		overlays:   make(map[string]Value),
		currentBar: -1,
		stage:      "body",
	}, nil
}

// Cancel requests a cooperative halt. The run stops at the next budget
// checkpoint with a sandbox violation.
func (it *Interpreter) Cancel() {
	it.cancelled.Store(true)
}

// Run executes both phases over the whole window and returns the result.
// Drivers that interleave engine work per bar use RunBody, Start, Step
// and End directly instead.
func (it *Interpreter) Run() *Result {
	if err := it.RunBody(); err != nil {
		return it.Result()
	}

	if err := it.Start(); err != nil {
		return it.Result()
	}

	for i := range it.window {
		if err := it.Step(i); err != nil {
			return it.Result()
		}
	}

	it.End()

	return it.Result()
}

// RunBody executes the top-level statements once against the full window.
// Handler declarations are registered, not run. The returned error is
// non-nil only for sandbox violations; plain faults are recorded and
// execution continues with the next statement.
func (it *Interpreter) RunBody() error {
	it.startedAt = time.Now()
	it.stage = "body"
	it.currentBar = -1

	for _, stmt := range it.program.Statements {
		if _, isHandler := stmt.(*ast.HandlerStatement); isHandler {
			continue
		}

		if err := it.execStatement(stmt); err != nil {
			if it.recordOrHalt(err) {
				return it.violation
			}
		}
	}

	return nil
}

// Start fires the on_start handler, if declared.
func (it *Interpreter) Start() error {
	return it.fireHandler(token.ONSTART, "on_start", -1)
}

// Step fires the on_bar handler for one bar index.
func (it *Interpreter) Step(barIndex int) error {
	if barIndex < 0 || barIndex >= len(it.window) {
		return errors.Newf(errors.ErrCodeIndexOutOfRange, "bar index %d out of range [0, %d)", barIndex, len(it.window))
	}

	return it.fireHandler(token.ONBAR, "on_bar", barIndex)
}

// End fires the on_end handler, if declared.
func (it *Interpreter) End() error {
	return it.fireHandler(token.ONEND, "on_end", -1)
}

// TakeSignals drains the signals emitted since the previous take. The
// backtest driver calls this after each Step to route intents into the
// matching engine while keeping the full run log intact.
func (it *Interpreter) TakeSignals() []types.Signal {
	taken := it.pending
	it.pending = nil

	return taken
}

// Result snapshots the run outcome. Safe to call at any point; a run
// halted by the sandbox still reports everything recorded so far.
func (it *Interpreter) Result() *Result {
	overlays := make(map[string]Value, len(it.overlays))
	for name, v := range it.overlays {
		overlays[name] = v
	}

	return &Result{
		Signals:          append([]types.Signal(nil), it.signals...),
		Overlays:         overlays,
		Variables:        it.scope.Snapshot(),
		DebugLog:         append([]string(nil), it.debugLog...),
		Errors:           append([]RunError(nil), it.faults...),
		SandboxViolation: it.violation,
	}
}

func (it *Interpreter) fireHandler(hook token.Type, stage string, barIndex int) error {
	if it.violation != nil {
		return it.violation
	}

	handler, ok := it.handlers[hook]
	if !ok {
		return nil
	}

	if it.startedAt.IsZero() {
		it.startedAt = time.Now()
	}

	it.stage = stage
	it.currentBar = barIndex

	it.scope.Declare("bar_index", Number(barIndex))

	if len(handler.Params) > 1 {
		fault := errors.Newf(errors.ErrCodeArityMismatch, "%s declares %d parameters, at most 1 supported", stage, len(handler.Params))
		it.recordOrHalt(fault)

		return it.violation
	}

	if len(handler.Params) == 1 {
		it.scope.Declare(handler.Params[0], String(it.symbol))
	}

	if err := it.execBlock(handler.Body); err != nil {
		if it.recordOrHalt(err) {
			return it.violation
		}
	}

	return nil
}

// recordOrHalt routes an execution error: sandbox violations halt the
// run, everything else is recorded as a fault. Reports whether the run
// is halted.
func (it *Interpreter) recordOrHalt(err error) bool {
	if errors.IsFatal(errors.GetCode(err)) {
		it.violation = err
		it.logger.Warn("script halted by sandbox", zap.Error(err))

		return true
	}

	fault := RunError{Stage: it.stage, BarIndex: it.currentBar, Err: err}
	it.faults = append(it.faults, fault)
	it.logger.Debug("script fault recorded", zap.String("stage", it.stage), zap.Int("bar", it.currentBar), zap.Error(err))

	return false
}

// chargeStep is the cooperative sandbox checkpoint, hit before every
// statement.
func (it *Interpreter) chargeStep() error {
	if it.cancelled.Load() {
		return errors.New(errors.ErrCodeRunCancelled, "run cancelled")
	}

	it.steps++
	if it.steps > it.limits.MaxSteps {
		return errors.Newf(errors.ErrCodeStepBudgetExceeded, "step budget of %d exceeded", it.limits.MaxSteps)
	}

	if elapsed := time.Since(it.startedAt); elapsed > it.limits.MaxWallClock {
		return errors.Newf(errors.ErrCodeWallClockExceeded, "wall clock budget of %s exceeded after %s", it.limits.MaxWallClock, elapsed)
	}

	return nil
}

func (it *Interpreter) execStatement(stmt ast.Statement) error {
	if err := it.chargeStep(); err != nil {
		return err
	}

	switch s := stmt.(type) {
	case *ast.LetStatement:
		v, err := it.evalExpression(s.Value)
		if err != nil {
			return err
		}

		it.scope.Declare(s.Name, v)

		return nil
	case *ast.AssignStatement:
		v, err := it.evalExpression(s.Value)
		if err != nil {
			return err
		}

		return it.scope.Assign(s.Name, v)
	case *ast.IfStatement:
		cond, err := it.evalExpression(s.Condition)
		if err != nil {
			return err
		}

		holds, err := truthy(cond)
		if err != nil {
			return err
		}

		if holds {
			return it.execBlock(s.Consequence)
		}

		if s.Alternative != nil {
			return it.execBlock(s.Alternative)
		}

		return nil
	case *ast.ExpressionStatement:
		_, err := it.evalExpression(s.Expression)

		return err
	case *ast.HandlerStatement:
		return errors.Newf(errors.ErrCodeSyntax, "%s handlers may only appear at the top level", s.Token.Literal)
	default:
		return errors.Newf(errors.ErrCodeTypeMismatch, "cannot execute %s", stmt.String())
	}
}

func (it *Interpreter) execBlock(block *ast.BlockStatement) error {
	for _, stmt := range block.Statements {
		if err := it.execStatement(stmt); err != nil {
			return err
		}
	}

	return nil
}

// currentTime stamps emitted signals: the active bar's time during the
// event pass, the window's last bar otherwise.
func (it *Interpreter) currentTime() time.Time {
	if it.currentBar >= 0 && it.currentBar < len(it.window) {
		return it.window[it.currentBar].Time
	}

	return it.window[len(it.window)-1].Time
}

func (it *Interpreter) emitSignal(signal types.Signal) {
	it.signals = append(it.signals, signal)
	it.pending = append(it.pending, signal)
	it.logger.Debug("signal emitted", zap.String("signal", signal.Text()))
}

func (it *Interpreter) appendDebug(line string) {
	it.debugLog = append(it.debugLog, line)
}
