// Package commission models per-fill trading fees.
package commission

// Model computes the fee charged for one fill.
type Model interface {
	Fee(quantity, price float64) float64
}

// Free charges nothing.
type Free struct{}

func (Free) Fee(_, _ float64) float64 { return 0 }

// PerUnit charges a flat amount per unit of quantity.
type PerUnit struct {
	Amount float64
}

func (m PerUnit) Fee(quantity, _ float64) float64 {
	return m.Amount * quantity
}

// PercentOfNotional charges a fraction of the fill's notional value.
type PercentOfNotional struct {
	Rate float64
}

func (m PercentOfNotional) Fee(quantity, price float64) float64 {
	return quantity * price * m.Rate
}
