package types

import "time"

// Bar is one OHLCV sample for a symbol at a timestamp. Bars are produced
// externally and treated as read-only input.
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"timestamp" json:"timestamp" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Quote is a single market data update fed to the order engine.
type Quote struct {
	Symbol string    `yaml:"symbol" json:"symbol"`
	Time   time.Time `yaml:"timestamp" json:"timestamp"`
	Bid    float64   `yaml:"bid" json:"bid"`
	Ask    float64   `yaml:"ask" json:"ask"`
	Last   float64   `yaml:"last" json:"last"`
}

// QuoteFromBar derives the synthetic quote used when stepping bar-by-bar:
// the bar close serves as bid, ask and last.
func QuoteFromBar(bar Bar) Quote {
	return Quote{
		Symbol: bar.Symbol,
		Time:   bar.Time,
		Bid:    bar.Close,
		Ask:    bar.Close,
		Last:   bar.Close,
	}
}
