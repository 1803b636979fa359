package types

import (
	"fmt"
	"strconv"
	"time"

	"github.com/moznion/go-optional"
)

// SignalKind identifies which script command emitted the signal.
type SignalKind string

const (
	// SignalKindBuy is emitted by buy(...)
	SignalKindBuy SignalKind = "buy"
	// SignalKindSell is emitted by sell(...)
	SignalKindSell SignalKind = "sell"
	// SignalKindOrder is emitted by order(...) with an explicit order type
	SignalKindOrder SignalKind = "order"
	// SignalKindClose is emitted by close(...)
	SignalKindClose SignalKind = "close"
)

// Signal is a recorded trading intent appended by script execution.
// Signals never mutate portfolio state directly; the backtest driver
// converts them into order requests.
type Signal struct {
	Time     time.Time  `yaml:"time" json:"time"`
	Kind     SignalKind `yaml:"kind" json:"kind"`
	Side     Side       `yaml:"side" json:"side"`
	Symbol   string     `yaml:"symbol" json:"symbol"`
	Quantity float64    `yaml:"quantity" json:"quantity"`
	// OrderType is set for SignalKindOrder; buy/sell signals are MARKET.
	OrderType OrderType                `yaml:"order_type" json:"order_type"`
	Price     optional.Option[float64] `yaml:"price" json:"price"`
	StopPrice optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
}

// Text renders the normalized wire form of the signal:
// "BUY:SYM:QTY", "SELL:SYM:QTY", "ORDER:SIDE:SYM:QTY" or "CLOSE:SYM".
func (s Signal) Text() string {
	switch s.Kind {
	case SignalKindClose:
		return fmt.Sprintf("CLOSE:%s", s.Symbol)
	case SignalKindOrder:
		return fmt.Sprintf("ORDER:%s:%s:%s", s.Side, s.Symbol, formatQuantity(s.Quantity))
	default:
		return fmt.Sprintf("%s:%s:%s", s.Side, s.Symbol, formatQuantity(s.Quantity))
	}
}

func formatQuantity(qty float64) string {
	return strconv.FormatFloat(qty, 'f', -1, 64)
}
