// Package ledger tracks cash, positions and realized profit. Position
// quantities are always non-negative; direction lives in the side.
package ledger

import (
	"time"

	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PositionHandler observes every position change.
type PositionHandler func(position types.Position)

// Portfolio is the cash and position ledger for one run. Not safe for
// concurrent use.
type Portfolio struct {
	cash       decimal.Decimal
	initial    decimal.Decimal
	positions  map[string]*types.Position
	lastPrices map[string]float64
	handlers   []PositionHandler
	logger     *logger.Logger
	totalFees  decimal.Decimal
}

// NewPortfolio creates a ledger seeded with initial capital.
func NewPortfolio(initialCapital float64, log *logger.Logger) (*Portfolio, error) {
	if initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "initial capital must be positive, got %f", initialCapital)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	capital := decimal.NewFromFloat(initialCapital)

	return &Portfolio{
		cash:       capital,
		initial:    capital,
		positions:  make(map[string]*types.Position),
		lastPrices: make(map[string]float64),
		logger:     log,
	}, nil
}

// SubscribePositions registers a position change observer.
func (p *Portfolio) SubscribePositions(fn PositionHandler) {
	p.handlers = append(p.handlers, fn)
}

// Cash returns the current cash balance.
func (p *Portfolio) Cash() float64 {
	return p.cash.InexactFloat64()
}

// InitialCapital returns the seeded capital.
func (p *Portfolio) InitialCapital() float64 {
	return p.initial.InexactFloat64()
}

// TotalFees returns the commissions charged so far.
func (p *Portfolio) TotalFees() float64 {
	return p.totalFees.InexactFloat64()
}

// Position returns the current position for a symbol; a symbol never
// traded is FLAT with zero quantity.
func (p *Portfolio) Position(symbol string) types.Position {
	if pos, ok := p.positions[symbol]; ok {
		return *pos
	}

	return types.Position{Symbol: symbol, Side: types.PositionSideFlat}
}

// Positions returns every position ever opened, including closed ones.
func (p *Portfolio) Positions() []types.Position {
	out := make([]types.Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}

	return out
}

// RealizedPnL sums realized profit across all symbols.
func (p *Portfolio) RealizedPnL() float64 {
	total := decimal.Zero
	for _, pos := range p.positions {
		total = total.Add(decimal.NewFromFloat(pos.RealizedPnL))
	}

	return total.InexactFloat64()
}

// ApplyFill books one execution: moves cash, then walks the position
// through open, add, reduce, close or reverse.
func (p *Portfolio) ApplyFill(fill types.Fill, commission float64) (types.Position, error) {
	if fill.Quantity <= 0 {
		return types.Position{}, errors.Newf(errors.ErrCodeInvalidFill, "fill quantity must be positive, got %f", fill.Quantity)
	}

	if fill.Price <= 0 {
		return types.Position{}, errors.Newf(errors.ErrCodeInvalidFill, "fill price must be positive, got %f", fill.Price)
	}

	qty := decimal.NewFromFloat(fill.Quantity)
	price := decimal.NewFromFloat(fill.Price)
	notional := qty.Mul(price)

	if fill.Side == types.SideBuy {
		p.cash = p.cash.Sub(notional)
	} else {
		p.cash = p.cash.Add(notional)
	}

	if commission > 0 {
		fee := decimal.NewFromFloat(commission)
		p.cash = p.cash.Sub(fee)
		p.totalFees = p.totalFees.Add(fee)
	}

	pos, ok := p.positions[fill.Symbol]
	if !ok {
		pos = &types.Position{Symbol: fill.Symbol, Side: types.PositionSideFlat}
		p.positions[fill.Symbol] = pos
	}

	p.applyToPosition(pos, fill, qty, price)
	p.lastPrices[fill.Symbol] = fill.Price
	p.updateUnrealized(pos, fill.Price)

	p.logger.Debug("fill booked",
		zap.String("symbol", fill.Symbol),
		zap.String("side", string(fill.Side)),
		zap.Float64("price", fill.Price),
		zap.Float64("quantity", fill.Quantity),
		zap.String("position", string(pos.Side)))

	for _, fn := range p.handlers {
		fn(*pos)
	}

	return *pos, nil
}

func (p *Portfolio) applyToPosition(pos *types.Position, fill types.Fill, qty, price decimal.Decimal) {
	fillSide := types.PositionSideLong
	if fill.Side == types.SideSell {
		fillSide = types.PositionSideShort
	}

	switch {
	case pos.Side == types.PositionSideFlat:
		pos.Side = fillSide
		pos.Quantity = qty.InexactFloat64()
		pos.AvgEntryPrice = price.InexactFloat64()
		pos.OpenTimestamp = fill.Timestamp
	case pos.Side == fillSide:
		// Same direction: weighted average entry.
		held := decimal.NewFromFloat(pos.Quantity)
		avg := decimal.NewFromFloat(pos.AvgEntryPrice)
		total := held.Add(qty)

		pos.AvgEntryPrice = held.Mul(avg).Add(qty.Mul(price)).Div(total).InexactFloat64()
		pos.Quantity = total.InexactFloat64()
	default:
		p.reduceOrReverse(pos, fill, qty, price)
	}
}

// reduceOrReverse handles a fill against the position's direction:
// shrink it, close it, or close it and reopen the excess the other way.
func (p *Portfolio) reduceOrReverse(pos *types.Position, fill types.Fill, qty, price decimal.Decimal) {
	held := decimal.NewFromFloat(pos.Quantity)
	avg := decimal.NewFromFloat(pos.AvgEntryPrice)
	direction := decimal.NewFromFloat(pos.Direction())

	closed := decimal.Min(held, qty)
	realized := price.Sub(avg).Mul(closed).Mul(direction)
	pos.RealizedPnL = decimal.NewFromFloat(pos.RealizedPnL).Add(realized).InexactFloat64()

	switch held.Cmp(qty) {
	case 1: // reduce
		pos.Quantity = held.Sub(qty).InexactFloat64()
	case 0: // close
		pos.Side = types.PositionSideFlat
		pos.Quantity = 0
		pos.AvgEntryPrice = 0
	case -1: // reverse
		reopened := qty.Sub(held)

		if pos.Side == types.PositionSideLong {
			pos.Side = types.PositionSideShort
		} else {
			pos.Side = types.PositionSideLong
		}

		pos.Quantity = reopened.InexactFloat64()
		pos.AvgEntryPrice = price.InexactFloat64()
		pos.OpenTimestamp = fill.Timestamp
	}
}

// UpdatePrice marks a symbol to market, refreshing unrealized profit.
func (p *Portfolio) UpdatePrice(symbol string, price float64) {
	p.lastPrices[symbol] = price

	if pos, ok := p.positions[symbol]; ok {
		p.updateUnrealized(pos, price)
	}
}

func (p *Portfolio) updateUnrealized(pos *types.Position, price float64) {
	if pos.Side == types.PositionSideFlat {
		pos.UnrealizedPnL = 0

		return
	}

	avg := decimal.NewFromFloat(pos.AvgEntryPrice)
	qty := decimal.NewFromFloat(pos.Quantity)
	direction := decimal.NewFromFloat(pos.Direction())

	pos.UnrealizedPnL = decimal.NewFromFloat(price).Sub(avg).Mul(qty).Mul(direction).InexactFloat64()
}

// Equity returns cash plus the marked-to-market value of every open
// position: longs add exposure, shorts subtract it.
func (p *Portfolio) Equity() float64 {
	equity := p.cash

	for symbol, pos := range p.positions {
		if pos.Side == types.PositionSideFlat {
			continue
		}

		price, ok := p.lastPrices[symbol]
		if !ok {
			price = pos.AvgEntryPrice
		}

		exposure := decimal.NewFromFloat(pos.Quantity).
			Mul(decimal.NewFromFloat(price)).
			Mul(decimal.NewFromFloat(pos.Direction()))
		equity = equity.Add(exposure)
	}

	return equity.InexactFloat64()
}

// EquityPoint snapshots the equity curve at a moment in time.
func (p *Portfolio) EquityPoint(at time.Time) types.EquityPoint {
	return types.EquityPoint{
		Time:   at,
		Equity: p.Equity(),
	}
}
