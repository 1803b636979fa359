package backtest

import (
	"math"

	"github.com/rxtech-lab/argo-script/internal/ledger"
	"github.com/rxtech-lab/argo-script/internal/types"
)

// annualization converts per-step ratios to yearly ones assuming daily
// bars.
const annualization = 252

// ComputeMetrics derives the aggregate performance statistics from the
// equity curve and the closed-trade stats.
func ComputeMetrics(initialCapital float64, curve []types.EquityPoint, stats ledger.TradeStats, totalFees float64) types.PerformanceMetrics {
	metrics := types.PerformanceMetrics{
		InitialCapital: initialCapital,
		FinalEquity:    initialCapital,
		TotalTrades:    stats.TotalTrades,
		WinningTrades:  stats.WinningTrades,
		LosingTrades:   stats.LosingTrades,
		GrossProfit:    stats.GrossProfit,
		GrossLoss:      stats.GrossLoss,
		TotalFees:      totalFees,
	}

	if len(curve) > 0 {
		metrics.FinalEquity = curve[len(curve)-1].Equity
	}

	if initialCapital > 0 {
		metrics.TotalReturn = (metrics.FinalEquity - initialCapital) / initialCapital
	}

	metrics.MaxDrawdown = MaxDrawdown(curve)

	returns := stepReturns(curve)
	metrics.SharpeRatio = sharpe(returns)
	metrics.SortinoRatio = sortino(returns)

	if stats.TotalTrades > 0 {
		metrics.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}

	metrics.ProfitFactor = ProfitFactor(stats.GrossProfit, stats.GrossLoss)

	return metrics
}

// MaxDrawdown is the largest peak-to-trough decline relative to the
// running peak.
func MaxDrawdown(curve []types.EquityPoint) float64 {
	var peak, maxDrawdown float64

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		drawdown := (peak - point.Equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// ProfitFactor is gross wins over gross losses. No losses and positive
// wins is +Inf; no wins and no losses is 0.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return grossProfit / grossLoss
}

func stepReturns(curve []types.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	return returns
}

func sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean := meanOf(returns)

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(annualization)
}

// sortino penalizes only downside volatility: the denominator is the
// root mean square of the negative step returns.
func sortino(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean := meanOf(returns)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}

	deviation := math.Sqrt(downside / float64(len(returns)))
	if deviation == 0 {
		if mean > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return mean / deviation * math.Sqrt(annualization)
}

func meanOf(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}

	return total / float64(len(values))
}
