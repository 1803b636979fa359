package series

import (
	"math"

	"github.com/rxtech-lab/argo-script/pkg/errors"
)

func checkPeriod(period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidArgument, "period must be a positive integer, got %d", period)
	}

	return nil
}

// SMA computes the simple moving average. Undefined (NaN) until `period`
// points exist.
func SMA(s Series, period int) (Series, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	out := New(len(s))

	sum := 0.0

	for i := range s {
		sum += s[i]

		if i >= period {
			sum -= s[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out, nil
}

// EMA computes the exponential moving average seeded with the SMA of the
// first `period` points, then the recurrence
// ema = value*alpha + ema*(1-alpha) with alpha = 2/(period+1).
// This matches the pandas ewm implementation with adjust=False.
func EMA(s Series, period int) (Series, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	out := New(len(s))
	if len(s) < period {
		return out, nil
	}

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += s[i]
	}

	sma /= float64(period)
	out[period-1] = sma

	alpha := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(s); i++ {
		ema = (s[i] * alpha) + (ema * (1 - alpha))
		out[i] = ema
	}

	return out, nil
}

// RSI computes the Relative Strength Index using Wilder's method: the first
// average gain/loss is a plain mean over the first `period` deltas, then
// avg = (avg*(period-1) + new)/period. RSI = 100 - 100/(1+avgGain/avgLoss);
// a zero average loss yields RSI = 100.
func RSI(s Series, period int) (Series, error) {
	if err := checkPeriod(period); err != nil {
		return nil, err
	}

	out := New(len(s))
	if len(s) < period+1 {
		return out, nil
	}

	avgGain := 0.0
	avgLoss := 0.0

	// Plain mean over the first `period` deltas.
	for i := 1; i <= period; i++ {
		change := s[i] - s[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	// Wilder smoothing for every subsequent delta.
	for i := period + 1; i < len(s); i++ {
		change := s[i] - s[i-1]

		gain := 0.0
		loss := 0.0

		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}

// MACDResult holds the three output lines of the MACD indicator.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD computes EMA(fast) - EMA(slow), its signal line EMA and the
// histogram (macd - signal).
func MACD(s Series, fastPeriod, slowPeriod, signalPeriod int) (MACDResult, error) {
	for _, period := range []int{fastPeriod, slowPeriod, signalPeriod} {
		if err := checkPeriod(period); err != nil {
			return MACDResult{}, err
		}
	}

	fast, err := EMA(s, fastPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	slow, err := EMA(s, slowPeriod)
	if err != nil {
		return MACDResult{}, err
	}

	macdLine, err := Combine(fast, slow, func(x, y float64) float64 { return x - y })
	if err != nil {
		return MACDResult{}, err
	}

	// The signal line smooths only the defined part of the MACD line;
	// the NaN warm-up prefix stays NaN.
	signalLine := emaSkipNaN(macdLine, signalPeriod)

	histogram, err := Combine(macdLine, signalLine, func(x, y float64) float64 { return x - y })
	if err != nil {
		return MACDResult{}, err
	}

	return MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: histogram,
	}, nil
}

// emaSkipNaN applies the EMA recurrence starting at the first defined value.
func emaSkipNaN(s Series, period int) Series {
	out := New(len(s))

	start := 0
	for start < len(s) && math.IsNaN(s[start]) {
		start++
	}

	if len(s)-start < period {
		return out
	}

	sma := 0.0
	for i := start; i < start+period; i++ {
		sma += s[i]
	}

	sma /= float64(period)
	out[start+period-1] = sma

	alpha := 2.0 / float64(period+1)

	ema := sma
	for i := start + period; i < len(s); i++ {
		ema = (s[i] * alpha) + (ema * (1 - alpha))
		out[i] = ema
	}

	return out
}

// BollingerResult holds the three bands of the Bollinger indicator.
type BollingerResult struct {
	Upper  Series
	Middle Series
	Lower  Series
}

// Bollinger computes SMA ± mult * rolling population standard deviation.
func Bollinger(s Series, period int, mult float64) (BollingerResult, error) {
	if err := checkPeriod(period); err != nil {
		return BollingerResult{}, err
	}

	if mult <= 0 {
		return BollingerResult{}, errors.Newf(errors.ErrCodeInvalidArgument, "stddev multiplier must be a positive number, got %f", mult)
	}

	middle, err := SMA(s, period)
	if err != nil {
		return BollingerResult{}, err
	}

	upper := New(len(s))
	lower := New(len(s))

	for i := period - 1; i < len(s); i++ {
		mean := middle[i]

		squaredDiffSum := 0.0

		for j := i - period + 1; j <= i; j++ {
			diff := s[j] - mean
			squaredDiffSum += diff * diff
		}

		stdDev := math.Sqrt(squaredDiffSum / float64(period))
		upper[i] = mean + mult*stdDev
		lower[i] = mean - mult*stdDev
	}

	return BollingerResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}, nil
}
