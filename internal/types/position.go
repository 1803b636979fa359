package types

import "time"

type PositionSide string

const (
	PositionSideFlat  PositionSide = "FLAT"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is the net exposure per symbol. Quantity is always >= 0;
// direction is carried in Side, never in a signed quantity. A position is
// created flat on first reference and stays FLAT after a full close, it is
// never destroyed.
type Position struct {
	Symbol        string       `yaml:"symbol" json:"symbol"`
	Side          PositionSide `yaml:"side" json:"side"`
	Quantity      float64      `yaml:"quantity" json:"quantity"`
	AvgEntryPrice float64      `yaml:"avg_entry_price" json:"avg_entry_price"`
	RealizedPnL   float64      `yaml:"realized_pnl" json:"realized_pnl"`
	UnrealizedPnL float64      `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	OpenTimestamp time.Time    `yaml:"open_timestamp" json:"open_timestamp"`
}

// Direction returns +1 for LONG, -1 for SHORT and 0 for FLAT.
func (p *Position) Direction() float64 {
	switch p.Side {
	case PositionSideLong:
		return 1
	case PositionSideShort:
		return -1
	default:
		return 0
	}
}
