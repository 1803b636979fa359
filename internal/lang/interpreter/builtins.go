package interpreter

import (
	"fmt"
	"math"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-script/internal/series"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// builtin is one entry in the fixed function registry. maxArgs of -1
// means variadic.
type builtin struct {
	minArgs int
	maxArgs int
	fn      func(it *Interpreter, args []Value) (Value, error)
}

func (b builtin) arityDescription() string {
	if b.maxArgs < 0 {
		return fmt.Sprintf("at least %d argument(s)", b.minArgs)
	}

	if b.minArgs == b.maxArgs {
		return fmt.Sprintf("%d argument(s)", b.minArgs)
	}

	return fmt.Sprintf("%d to %d arguments", b.minArgs, b.maxArgs)
}

// builtins is the complete callable surface of the language. The registry
// is fixed at compile time; scripts cannot define functions.
var builtins = map[string]builtin{
	"sma":    {minArgs: 2, maxArgs: 2, fn: builtinSMA},
	"ema":    {minArgs: 2, maxArgs: 2, fn: builtinEMA},
	"rsi":    {minArgs: 2, maxArgs: 2, fn: builtinRSI},
	"macd":   {minArgs: 4, maxArgs: 4, fn: builtinMACD},
	"bbands": {minArgs: 3, maxArgs: 3, fn: builtinBollinger},

	"shift": {minArgs: 2, maxArgs: 2, fn: builtinShift},
	"diff":  {minArgs: 1, maxArgs: 1, fn: builtinDiff},
	"avg":   {minArgs: 2, maxArgs: 2, fn: builtinAvg},
	"log":   {minArgs: 1, maxArgs: 1, fn: builtinLog},
	"sqrt":  {minArgs: 1, maxArgs: 1, fn: builtinSqrt},

	"security": {minArgs: 1, maxArgs: 1, fn: builtinSecurity},

	"buy":   {minArgs: 1, maxArgs: 2, fn: builtinBuy},
	"sell":  {minArgs: 1, maxArgs: 2, fn: builtinSell},
	"order": {minArgs: 3, maxArgs: 5, fn: builtinOrder},
	"close": {minArgs: 0, maxArgs: 1, fn: builtinClose},

	"debug": {minArgs: 1, maxArgs: -1, fn: builtinDebug},
	"plot":  {minArgs: 1, maxArgs: 2, fn: builtinPlot},
}

func builtinSMA(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	period, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	out, err := series.SMA(s, period)
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: out}, nil
}

func builtinEMA(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	period, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	out, err := series.EMA(s, period)
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: out}, nil
}

func builtinRSI(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	period, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	out, err := series.RSI(s, period)
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: out}, nil
}

func builtinMACD(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	fast, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	slow, err := asInt(args[2])
	if err != nil {
		return nil, err
	}

	signal, err := asInt(args[3])
	if err != nil {
		return nil, err
	}

	result, err := series.MACD(s, fast, slow, signal)
	if err != nil {
		return nil, err
	}

	return Record{Fields: map[string]Value{
		"macd":      SeriesValue{Series: result.MACD},
		"signal":    SeriesValue{Series: result.Signal},
		"histogram": SeriesValue{Series: result.Histogram},
	}}, nil
}

func builtinBollinger(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	period, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	mult, err := asNumber(args[2])
	if err != nil {
		return nil, err
	}

	result, err := series.Bollinger(s, period, mult)
	if err != nil {
		return nil, err
	}

	return Record{Fields: map[string]Value{
		"upper":  SeriesValue{Series: result.Upper},
		"middle": SeriesValue{Series: result.Middle},
		"lower":  SeriesValue{Series: result.Lower},
	}}, nil
}

func builtinShift(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	n, err := asInt(args[1])
	if err != nil {
		return nil, err
	}

	out, err := series.Shift(s, n)
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: out}, nil
}

func builtinDiff(_ *Interpreter, args []Value) (Value, error) {
	s, err := asSeries(args[0])
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: series.Diff(s)}, nil
}

func builtinAvg(_ *Interpreter, args []Value) (Value, error) {
	aNum, aIsNum := args[0].(Number)
	bNum, bIsNum := args[1].(Number)

	if aIsNum && bIsNum {
		return Number((float64(aNum) + float64(bNum)) / 2), nil
	}

	a, err := broadcast(args[0])
	if err != nil {
		return nil, err
	}

	b, err := broadcastTo(args[1], len(a))
	if err != nil {
		return nil, err
	}

	if len(a) == 1 && len(b) > 1 {
		a, err = broadcastTo(args[0], len(b))
		if err != nil {
			return nil, err
		}
	}

	out, err := series.Avg(a, b)
	if err != nil {
		return nil, err
	}

	return SeriesValue{Series: out}, nil
}

func builtinLog(_ *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case Number:
		return Number(math.Log(float64(v))), nil
	case SeriesValue:
		return SeriesValue{Series: series.Log(v.Series)}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "log expects number or series, got %s", args[0].TypeName())
	}
}

func builtinSqrt(_ *Interpreter, args []Value) (Value, error) {
	switch v := args[0].(type) {
	case Number:
		return Number(math.Sqrt(float64(v))), nil
	case SeriesValue:
		return SeriesValue{Series: series.Sqrt(v.Series)}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "sqrt expects number or series, got %s", args[0].TypeName())
	}
}

// builtinSecurity exposes an alternate symbol's window as a record of
// OHLCV series aligned with that symbol's loaded bars.
func builtinSecurity(it *Interpreter, args []Value) (Value, error) {
	symbol, err := asString(args[0])
	if err != nil {
		return nil, err
	}

	window, ok := it.feeds[symbol]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownSymbol, "no data loaded for symbol %q", symbol)
	}

	fields := make(map[string]Value, 5)

	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		s, _ := it.windowSeries(window, name)
		fields[name] = SeriesValue{Series: s}
	}

	return Record{Fields: fields}, nil
}

func builtinBuy(it *Interpreter, args []Value) (Value, error) {
	return it.emitSideSignal(types.SignalKindBuy, types.SideBuy, args)
}

func builtinSell(it *Interpreter, args []Value) (Value, error) {
	return it.emitSideSignal(types.SignalKindSell, types.SideSell, args)
}

// emitSideSignal handles buy(qty), buy(symbol, qty) and the sell twins.
func (it *Interpreter) emitSideSignal(kind types.SignalKind, side types.Side, args []Value) (Value, error) {
	symbol := it.symbol
	qtyArg := args[0]

	if len(args) == 2 {
		s, err := asString(args[0])
		if err != nil {
			return nil, err
		}

		symbol = s
		qtyArg = args[1]
	}

	qty, err := asNumber(qtyArg)
	if err != nil {
		return nil, err
	}

	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "quantity must be a positive finite number, got %s", qtyArg.Format())
	}

	it.emitSignal(types.Signal{
		Time:      it.currentTime(),
		Kind:      kind,
		Side:      side,
		Symbol:    symbol,
		Quantity:  qty,
		OrderType: types.OrderTypeMarket,
	})

	return Null{}, nil
}

func builtinOrder(it *Interpreter, args []Value) (Value, error) {
	symbol, err := asString(args[0])
	if err != nil {
		return nil, err
	}

	sideName, err := asString(args[1])
	if err != nil {
		return nil, err
	}

	var side types.Side

	switch strings.ToUpper(sideName) {
	case "BUY":
		side = types.SideBuy
	case "SELL":
		side = types.SideSell
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "order side must be buy or sell, got %q", sideName)
	}

	qty, err := asNumber(args[2])
	if err != nil {
		return nil, err
	}

	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidArgument, "quantity must be a positive finite number, got %s", args[2].Format())
	}

	orderType := types.OrderTypeMarket
	price := optional.None[float64]()

	if len(args) >= 4 {
		typeName, err := asString(args[3])
		if err != nil {
			return nil, err
		}

		switch strings.ToUpper(typeName) {
		case "MARKET":
			orderType = types.OrderTypeMarket
		case "LIMIT":
			orderType = types.OrderTypeLimit
		case "STOP":
			orderType = types.OrderTypeStop
		case "STOP_LIMIT":
			orderType = types.OrderTypeStopLimit
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidArgument, "unknown order type %q", typeName)
		}
	}

	if len(args) == 5 {
		p, err := asNumber(args[4])
		if err != nil {
			return nil, err
		}

		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, errors.Newf(errors.ErrCodeInvalidArgument, "price must be a positive finite number, got %s", args[4].Format())
		}

		price = optional.Some(p)
	}

	signal := types.Signal{
		Time:      it.currentTime(),
		Kind:      types.SignalKindOrder,
		Side:      side,
		Symbol:    symbol,
		Quantity:  qty,
		OrderType: orderType,
		Price:     price,
	}

	// Stop orders carry the trigger in the stop slot instead of the
	// limit slot.
	if orderType == types.OrderTypeStop {
		signal.StopPrice = price
		signal.Price = optional.None[float64]()
	}

	it.emitSignal(signal)

	return Null{}, nil
}

func builtinClose(it *Interpreter, args []Value) (Value, error) {
	symbol := it.symbol

	if len(args) == 1 {
		s, err := asString(args[0])
		if err != nil {
			return nil, err
		}

		symbol = s
	}

	it.emitSignal(types.Signal{
		Time:   it.currentTime(),
		Kind:   types.SignalKindClose,
		Symbol: symbol,
	})

	return Null{}, nil
}

func builtinDebug(it *Interpreter, args []Value) (Value, error) {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, arg.Format())
	}

	it.appendDebug(strings.Join(parts, " "))

	return Null{}, nil
}

func builtinPlot(it *Interpreter, args []Value) (Value, error) {
	name := fmt.Sprintf("plot%d", len(it.overlays)+1)

	if len(args) == 2 {
		n, err := asString(args[1])
		if err != nil {
			return nil, err
		}

		name = n
	}

	switch args[0].(type) {
	case SeriesValue, Number:
		it.overlays[name] = args[0]
	default:
		return nil, errors.Newf(errors.ErrCodeTypeMismatch, "plot expects number or series, got %s", args[0].TypeName())
	}

	return Null{}, nil
}
