// Package slippage models adverse execution price adjustment. Every model
// moves the price against the taker: buys fill higher, sells fill lower.
package slippage

import (
	"math"
	"math/rand"

	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
)

// Model adjusts a reference execution price for one fill.
type Model interface {
	// Adjust returns the execution price after slippage. The returned
	// price is never favorable to the taker.
	Adjust(price float64, side types.Side) float64
}

// None applies no slippage.
type None struct{}

func (None) Adjust(price float64, _ types.Side) float64 { return price }

// Fixed shifts the price by a constant absolute amount.
type Fixed struct {
	Amount float64
}

func (m Fixed) Adjust(price float64, side types.Side) float64 {
	return apply(price, side, m.Amount)
}

// Percentage shifts the price by a fraction of itself. A rate of 0.001
// moves a 45000 fill by 45.
type Percentage struct {
	Rate float64
}

func (m Percentage) Adjust(price float64, side types.Side) float64 {
	return apply(price, side, price*m.Rate)
}

// Volatility draws the shift from a seeded normal distribution scaled by
// the price. The seed is required so runs replay identically.
type Volatility struct {
	scale float64
	rng   *rand.Rand
}

// NewVolatility builds a volatility model with an explicit seed.
func NewVolatility(scale float64, seed int64) (*Volatility, error) {
	if scale < 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestConfigError, "volatility scale must be non-negative, got %f", scale)
	}

	return &Volatility{scale: scale, rng: rand.New(rand.NewSource(seed))}, nil
}

func (m *Volatility) Adjust(price float64, side types.Side) float64 {
	shift := price * m.scale * math.Abs(m.rng.NormFloat64())

	return apply(price, side, shift)
}

func apply(price float64, side types.Side, shift float64) float64 {
	if shift < 0 {
		shift = -shift
	}

	if side == types.SideBuy {
		return price + shift
	}

	return price - shift
}
