// Package metrics condenses a run's equity curve and trade list into summary
// statistics. Everything here is reporting-side: the engine's decimal values
// are converted to float64 at the boundary and nothing flows back into
// simulation state.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

// Summary is the headline performance of one run.
type Summary struct {
	TotalTrades    int     `json:"total_trades"`
	WinRate        float64 `json:"win_rate"`
	NetPct         float64 `json:"net_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	ProfitFactor   float64 `json:"profit_factor"`
}

// Compute summarizes an equity curve and its closed trades. ProfitFactor is
// +Inf when there are winners but no losers, and 0 when there are no trades
// at all.
func Compute(initialEquity decimal.Decimal, curve []decimal.Decimal, trades []types.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}

	initial, _ := initialEquity.Float64()
	if len(curve) > 0 && initial != 0 {
		final, _ := curve[len(curve)-1].Float64()
		s.NetPct = (final - initial) / initial * 100
	}
	s.MaxDrawdownPct = maxDrawdownPct(curve)

	if len(trades) == 0 {
		return s
	}

	wins := 0
	grossProfit, grossLoss := 0.0, 0.0
	for _, tr := range trades {
		pnl, _ := tr.Pnl.Float64()
		if pnl > 0 {
			wins++
			grossProfit += pnl
		} else {
			grossLoss += -pnl
		}
	}
	s.WinRate = float64(wins) / float64(len(trades))

	switch {
	case grossLoss > 0:
		s.ProfitFactor = grossProfit / grossLoss
	case grossProfit > 0:
		s.ProfitFactor = math.Inf(1)
	}
	return s
}

// maxDrawdownPct is the largest peak-to-trough decline along the curve, as a
// positive percentage of the peak.
func maxDrawdownPct(curve []decimal.Decimal) float64 {
	if len(curve) == 0 {
		return 0
	}
	peak, _ := curve[0].Float64()
	worst := 0.0
	for _, p := range curve {
		v, _ := p.Float64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}
