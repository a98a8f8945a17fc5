package metrics

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tradesim/types"
)

func dcurve(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, len(vals))
	for _, v := range vals {
		out = append(out, decimal.NewFromFloat(v))
	}
	return out
}

func tradeWithPnl(pnl float64) types.Trade {
	return types.Trade{Side: types.SideBuy, Pnl: decimal.NewFromFloat(pnl)}
}

func TestComputeEmptyRun(t *testing.T) {
	s := Compute(decimal.NewFromInt(100_000), dcurve(100_000, 100_000), nil)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.NetPct)
	assert.Zero(t, s.MaxDrawdownPct)
	assert.Zero(t, s.ProfitFactor)
}

func TestComputeMixedTrades(t *testing.T) {
	curve := dcurve(100_000, 101_000, 99_000, 102_000)
	trades := []types.Trade{
		tradeWithPnl(1000),
		tradeWithPnl(-2000),
		tradeWithPnl(3000),
	}
	s := Compute(decimal.NewFromInt(100_000), curve, trades)

	assert.Equal(t, 3, s.TotalTrades)
	assert.InDelta(t, 2.0/3.0, s.WinRate, 1e-12)
	assert.InDelta(t, 2.0, s.NetPct, 1e-9)
	assert.InDelta(t, 2.0, s.ProfitFactor, 1e-12) // 4000 gross profit / 2000 gross loss
	// Peak 101000 down to 99000.
	assert.InDelta(t, 2000.0/101_000*100, s.MaxDrawdownPct, 1e-9)
}

func TestComputeProfitFactorNoLosses(t *testing.T) {
	s := Compute(decimal.NewFromInt(100_000), dcurve(100_000, 103_000), []types.Trade{tradeWithPnl(3000)})
	assert.True(t, math.IsInf(s.ProfitFactor, 1))
	assert.Equal(t, 1.0, s.WinRate)
}

func TestComputeAllLosses(t *testing.T) {
	s := Compute(decimal.NewFromInt(100_000), dcurve(100_000, 98_000), []types.Trade{tradeWithPnl(-2000)})
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor)
	assert.InDelta(t, -2.0, s.NetPct, 1e-9)
	assert.InDelta(t, 2.0, s.MaxDrawdownPct, 1e-9)
}

func TestComputeBreakevenTradeCountsAsLoss(t *testing.T) {
	s := Compute(decimal.NewFromInt(100_000), dcurve(100_000, 100_000), []types.Trade{tradeWithPnl(0)})
	assert.Zero(t, s.WinRate)
	assert.Zero(t, s.ProfitFactor)
}

func TestMaxDrawdownMonotonicCurveIsZero(t *testing.T) {
	assert.Zero(t, maxDrawdownPct(dcurve(100, 101, 102, 110)))
}
