package strategies

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/types"
)

var seriesStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func candleAt(i int, open, high, low, close float64) types.Candle {
	return types.Candle{
		Ticker:    "TEST",
		Open:      decimal.NewFromFloat(open),
		High:      decimal.NewFromFloat(high),
		Low:       decimal.NewFromFloat(low),
		Close:     decimal.NewFromFloat(close),
		Interval:  types.OneMinute,
		Timestamp: seriesStart.Add(time.Duration(i) * time.Minute),
	}
}

func closesOnly(closes ...float64) []types.Candle {
	out := make([]types.Candle, 0, len(closes))
	for i, c := range closes {
		out = append(out, candleAt(i, c, c, c, c))
	}
	return out
}

func mustMerge(t *testing.T, key string, overrides map[string]any) map[string]any {
	t.Helper()
	d, err := Get(key)
	require.NoError(t, err)
	merged, err := MergeParams(overrides, d.Params)
	require.NoError(t, err)
	return merged
}

func TestSequentialReversal(t *testing.T) {
	params := mustMerge(t, "sequential_reversal", map[string]any{"run_len": 2})
	candles := closesOnly(100, 101, 102, 101, 100)

	signals := SequentialReversal{}.Run(candles, params)
	require.Len(t, signals, 2)

	assert.Equal(t, types.SideSell, signals[0].Side, "fade an up run")
	assert.Equal(t, seriesStart.Add(2*time.Minute), signals[0].Time)
	assert.Equal(t, "102", signals[0].Price.String())

	assert.Equal(t, types.SideBuy, signals[1].Side, "fade a down run")
	assert.Equal(t, seriesStart.Add(4*time.Minute), signals[1].Time)
	assert.Equal(t, "sequential_reversal", signals[1].Source)
}

func TestSequentialReversalFlatCloseBreaksUpRun(t *testing.T) {
	params := mustMerge(t, "sequential_reversal", map[string]any{"run_len": 3})
	// Flat bar counts as down, so the up run never reaches 3.
	candles := closesOnly(100, 101, 102, 102, 103, 104)

	signals := SequentialReversal{}.Run(candles, params)
	assert.Empty(t, signals)
}

func TestSigmaExtreme(t *testing.T) {
	params := mustMerge(t, "sigma_extreme", map[string]any{"window": 2, "sigma": 0.5})

	t.Run("spike up fades short", func(t *testing.T) {
		signals := SigmaExtreme{}.Run(closesOnly(100, 100, 100, 120), params)
		require.Len(t, signals, 1)
		assert.Equal(t, types.SideSell, signals[0].Side)
		assert.Equal(t, seriesStart.Add(3*time.Minute), signals[0].Time)
	})

	t.Run("spike down fades long", func(t *testing.T) {
		signals := SigmaExtreme{}.Run(closesOnly(100, 100, 100, 80), params)
		require.Len(t, signals, 1)
		assert.Equal(t, types.SideBuy, signals[0].Side)
	})

	t.Run("too little data", func(t *testing.T) {
		assert.Empty(t, SigmaExtreme{}.Run(closesOnly(100, 100), params))
	})
}

func TestVolatilityBreakout(t *testing.T) {
	params := mustMerge(t, "volatility_breakout", map[string]any{"lookback": 1, "k": 0.5})

	candles := []types.Candle{
		candleAt(0, 100, 101, 99, 100),
		candleAt(1, 100, 102, 100, 102), // range 2, offset 1, close clears open+1
		candleAt(2, 100, 100, 98, 98),   // close clears open-1 downward
		candleAt(3, 100, 101, 99, 100),  // inside the band
	}

	signals := VolatilityBreakout{}.Run(candles, params)
	require.Len(t, signals, 2)
	assert.Equal(t, types.SideBuy, signals[0].Side)
	assert.Equal(t, seriesStart.Add(time.Minute), signals[0].Time)
	assert.Equal(t, types.SideSell, signals[1].Side)
	assert.Equal(t, "volatility_breakout", signals[1].Source)
}
