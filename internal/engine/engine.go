// Package engine simulates order matching against quote updates. Orders
// move through PENDING, OPEN and PARTIAL into one terminal state; fills
// take the full remaining quantity and carry adverse slippage.
package engine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-script/internal/engine/slippage"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMaxOpenOrders caps concurrently open orders when the config
// leaves it unset.
const DefaultMaxOpenOrders = 100

// FillHandler observes every execution as it happens.
type FillHandler func(order types.Order, fill types.Fill)

// OrderUpdateHandler observes every order status change.
type OrderUpdateHandler func(order types.Order)

// Config assembles an engine.
type Config struct {
	MaxOpenOrders int
	Slippage      slippage.Model
	// AllowPartialFills is accepted for config compatibility; the
	// simulation always fills the full remaining quantity.
	AllowPartialFills bool
	Logger            *logger.Logger
}

// Engine holds the live order book for one run. Not safe for concurrent
// use; the backtest driver owns it single-threaded.
type Engine struct {
	maxOpenOrders int
	slippage      slippage.Model
	logger        *logger.Logger

	orders map[string]*types.Order
	// openIDs preserves submission order so matching is deterministic.
	openIDs []string
	// ocoSibling links bracket exit legs: filling one cancels the other.
	ocoSibling map[string]string

	fillHandlers   []FillHandler
	updateHandlers []OrderUpdateHandler
}

// New builds an engine with defaults filled in.
func New(cfg Config) *Engine {
	if cfg.MaxOpenOrders <= 0 {
		cfg.MaxOpenOrders = DefaultMaxOpenOrders
	}

	if cfg.Slippage == nil {
		cfg.Slippage = slippage.None{}
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}

	return &Engine{
		maxOpenOrders: cfg.MaxOpenOrders,
		slippage:      cfg.Slippage,
		logger:        cfg.Logger,
		orders:        make(map[string]*types.Order),
		ocoSibling:    make(map[string]string),
	}
}

// SubscribeFills registers a fill observer.
func (e *Engine) SubscribeFills(fn FillHandler) {
	e.fillHandlers = append(e.fillHandlers, fn)
}

// SubscribeOrderUpdates registers a status change observer.
func (e *Engine) SubscribeOrderUpdates(fn OrderUpdateHandler) {
	e.updateHandlers = append(e.updateHandlers, fn)
}

// Submit validates and accepts an order request. Validation failures
// return an error without creating an order. A full book creates the
// order in REJECTED state and returns it together with the rejection.
func (e *Engine) Submit(req types.OrderRequest, now time.Time) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	order := &types.Order{
		ID:         uuid.NewString(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Price:      req.Price,
		StopPrice:  req.StopPrice,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Status:     types.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	e.orders[order.ID] = order

	if e.countOpen() >= e.maxOpenOrders {
		reason := errors.Newf(errors.ErrCodeOpenOrderCapReached, "open order cap of %d reached", e.maxOpenOrders)
		order.RejectReason = reason.Error()

		if err := e.transition(order, types.OrderStatusRejected, now); err != nil {
			return *order, err
		}

		return *order, reason
	}

	if err := e.transition(order, types.OrderStatusOpen, now); err != nil {
		return *order, err
	}

	e.openIDs = append(e.openIDs, order.ID)
	e.logger.Debug("order accepted",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("type", string(order.Type)),
		zap.Float64("quantity", order.Quantity))

	return *order, nil
}

// Cancel moves an OPEN or PARTIAL order to CANCELED. Terminal orders
// cannot be canceled.
func (e *Engine) Cancel(orderID string, now time.Time) (types.Order, error) {
	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %q not found", orderID)
	}

	if err := e.transition(order, types.OrderStatusCanceled, now); err != nil {
		return *order, err
	}

	e.removeOpen(orderID)
	e.cancelSibling(orderID, now)

	return *order, nil
}

// Order returns a snapshot of one order.
func (e *Engine) Order(orderID string) (types.Order, error) {
	order, ok := e.orders[orderID]
	if !ok {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %q not found", orderID)
	}

	return *order, nil
}

// OpenOrders returns snapshots of every matchable order in submission
// order.
func (e *Engine) OpenOrders() []types.Order {
	out := make([]types.Order, 0, len(e.openIDs))
	for _, id := range e.openIDs {
		out = append(out, *e.orders[id])
	}

	return out
}

// Orders returns snapshots of every order the engine has seen.
func (e *Engine) Orders() []types.Order {
	out := make([]types.Order, 0, len(e.orders))
	for _, order := range e.orders {
		out = append(out, *order)
	}

	return out
}

// OnQuote matches every open order for the quoted symbol and returns the
// fills produced, in submission order. Bracket exit legs spawned by a
// fill become matchable on the next quote.
func (e *Engine) OnQuote(quote types.Quote) []types.Fill {
	var fills []types.Fill

	snapshot := append([]string(nil), e.openIDs...)

	for _, id := range snapshot {
		order, ok := e.orders[id]
		if !ok || order.IsTerminal() || order.Symbol != quote.Symbol {
			continue
		}

		raw, matched := e.matchPrice(order, quote)
		if !matched {
			continue
		}

		exec := e.slippage.Adjust(raw, order.Side)
		exec = clampToLimit(order, exec)

		fill := e.fill(order, raw, exec, quote.Time)
		fills = append(fills, fill)
	}

	return fills
}

// matchPrice decides whether an order executes against a quote and at
// which raw market price. Buys reference the ask, sells the bid; stops
// trigger on the last price; limit fills take the better of the limit
// and the market.
func (e *Engine) matchPrice(order *types.Order, quote types.Quote) (float64, bool) {
	ref := quote.Ask
	if order.Side == types.SideSell {
		ref = quote.Bid
	}

	switch order.Type {
	case types.OrderTypeMarket:
		return ref, true
	case types.OrderTypeLimit:
		return matchLimit(order, ref)
	case types.OrderTypeStop:
		if !stopTriggered(order, quote.Last) {
			return 0, false
		}

		return ref, true
	case types.OrderTypeStopLimit:
		// Stop trigger and limit condition must hold in the same
		// evaluation; the trigger does not latch across quotes.
		if !stopTriggered(order, quote.Last) {
			return 0, false
		}

		return matchLimit(order, ref)
	case types.OrderTypeBracket:
		// The bracket entry is a market order unless a limit price was
		// supplied.
		if order.Price.IsSome() {
			return matchLimit(order, ref)
		}

		return ref, true
	default:
		return 0, false
	}
}

func matchLimit(order *types.Order, ref float64) (float64, bool) {
	limit, err := order.Price.Take()
	if err != nil {
		return 0, false
	}

	if order.Side == types.SideBuy {
		if ref <= limit {
			return ref, true
		}

		return 0, false
	}

	if ref >= limit {
		return ref, true
	}

	return 0, false
}

func stopTriggered(order *types.Order, last float64) bool {
	stop, err := order.StopPrice.Take()
	if err != nil {
		return false
	}

	if order.Side == types.SideBuy {
		return last >= stop
	}

	return last <= stop
}

// clampToLimit keeps a post-slippage execution from crossing the limit
// price; limit orders never fill worse than their limit.
func clampToLimit(order *types.Order, exec float64) float64 {
	limit, err := order.Price.Take()
	if err != nil {
		return exec
	}

	switch order.Type {
	case types.OrderTypeLimit, types.OrderTypeStopLimit:
	default:
		return exec
	}

	if order.Side == types.SideBuy && exec > limit {
		return limit
	}

	if order.Side == types.SideSell && exec < limit {
		return limit
	}

	return exec
}

// fill executes the full remaining quantity at the given price.
func (e *Engine) fill(order *types.Order, raw, exec float64, now time.Time) types.Fill {
	qty := order.RemainingQuantity()

	fill := types.Fill{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  qty,
		Price:     exec,
		Slippage:  math.Abs(exec - raw),
		Timestamp: now,
	}

	order.AvgFillPrice = (order.AvgFillPrice*order.FilledQuantity + exec*qty) / (order.FilledQuantity + qty)
	order.FilledQuantity += qty
	order.Fills = append(order.Fills, fill)

	// Full-remaining fills always complete the order.
	_ = e.transition(order, types.OrderStatusFilled, now)
	e.removeOpen(order.ID)

	e.logger.Debug("order filled",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.Float64("price", exec),
		zap.Float64("quantity", qty))

	for _, fn := range e.fillHandlers {
		fn(*order, fill)
	}

	if order.Type == types.OrderTypeBracket {
		e.spawnBracketLegs(order, now)
	}

	e.cancelSibling(order.ID, now)

	return fill
}

// spawnBracketLegs opens the take-profit and stop-loss exits after a
// bracket entry fills. The legs are one-cancels-other.
func (e *Engine) spawnBracketLegs(entry *types.Order, now time.Time) {
	exitSide := types.SideSell
	if entry.Side == types.SideSell {
		exitSide = types.SideBuy
	}

	takeProfit, tpErr := entry.TakeProfit.Take()
	stopLoss, slErr := entry.StopLoss.Take()

	if tpErr != nil || slErr != nil {
		return
	}

	tpLeg := &types.Order{
		ID:        uuid.NewString(),
		Symbol:    entry.Symbol,
		Side:      exitSide,
		Type:      types.OrderTypeLimit,
		Quantity:  entry.FilledQuantity,
		Price:     optional.Some(takeProfit),
		Status:    types.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	slLeg := &types.Order{
		ID:        uuid.NewString(),
		Symbol:    entry.Symbol,
		Side:      exitSide,
		Type:      types.OrderTypeStop,
		Quantity:  entry.FilledQuantity,
		StopPrice: optional.Some(stopLoss),
		Status:    types.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, leg := range []*types.Order{tpLeg, slLeg} {
		e.orders[leg.ID] = leg
		_ = e.transition(leg, types.OrderStatusOpen, now)
		e.openIDs = append(e.openIDs, leg.ID)
	}

	e.ocoSibling[tpLeg.ID] = slLeg.ID
	e.ocoSibling[slLeg.ID] = tpLeg.ID

	e.logger.Debug("bracket legs opened",
		zap.String("entry", entry.ID),
		zap.String("take_profit", tpLeg.ID),
		zap.String("stop_loss", slLeg.ID))
}

func (e *Engine) cancelSibling(orderID string, now time.Time) {
	siblingID, ok := e.ocoSibling[orderID]
	if !ok {
		return
	}

	delete(e.ocoSibling, orderID)
	delete(e.ocoSibling, siblingID)

	sibling, ok := e.orders[siblingID]
	if !ok || sibling.IsTerminal() {
		return
	}

	_ = e.transition(sibling, types.OrderStatusCanceled, now)
	e.removeOpen(siblingID)
}

var validTransitions = map[types.OrderStatus][]types.OrderStatus{
	types.OrderStatusPending: {types.OrderStatusOpen, types.OrderStatusRejected},
	types.OrderStatusOpen:    {types.OrderStatusPartial, types.OrderStatusFilled, types.OrderStatusCanceled, types.OrderStatusExpired},
	types.OrderStatusPartial: {types.OrderStatusFilled, types.OrderStatusCanceled, types.OrderStatusExpired},
}

// transition enforces the order status machine and notifies observers.
func (e *Engine) transition(order *types.Order, to types.OrderStatus, now time.Time) error {
	allowed := false

	for _, next := range validTransitions[order.Status] {
		if next == to {
			allowed = true

			break
		}
	}

	if !allowed {
		return errors.Newf(errors.ErrCodeIllegalTransition, "order %q cannot move from %s to %s", order.ID, order.Status, to)
	}

	order.Status = to
	order.UpdatedAt = now

	for _, fn := range e.updateHandlers {
		fn(*order)
	}

	return nil
}

func (e *Engine) countOpen() int {
	return len(e.openIDs)
}

func (e *Engine) removeOpen(orderID string) {
	for i, id := range e.openIDs {
		if id == orderID {
			e.openIDs = append(e.openIDs[:i], e.openIDs[i+1:]...)

			return
		}
	}
}
