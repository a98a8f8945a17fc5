package optimize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tradesim/internal/engine"
)

func TestWalkForward(t *testing.T) {
	// 50 days of hourly bars.
	candles := zigzagCandles(24*50, time.Hour)

	wfCfg := DefaultWalkForwardConfig()
	wfCfg.TrainDays = 20
	wfCfg.TestDays = 5
	wfCfg.StepDays = 5
	wfCfg.Objective = "net_pct"

	res, err := WalkForward(context.Background(), candles, "sequential_reversal",
		[]string{"run_len=2:3:1"}, engine.DefaultConfig(), wfCfg, zap.NewNop())
	require.NoError(t, err)
	require.NotEmpty(t, res.Windows)

	for i, w := range res.Windows {
		assert.Equal(t, i, w.ID)
		assert.Equal(t, w.TrainEnd, w.TestStart, "test starts where training ends")
		assert.True(t, w.TrainStart.Before(w.TrainEnd))
		assert.True(t, w.TestStart.Before(w.TestEnd))
		assert.Contains(t, w.BestParams, "run_len")
		if i > 0 {
			assert.True(t, w.TestStart.After(res.Windows[i-1].TestStart))
		}
	}

	assert.Zero(t, res.Windows[0].ParamDrift, "first window has no predecessor")
	require.NotEmpty(t, res.OOSEquity)
	assert.Equal(t, 0, res.OOSEquity[0].WindowID)
	last := res.OOSEquity[len(res.OOSEquity)-1]
	assert.Equal(t, res.Windows[len(res.Windows)-1].ID, last.WindowID)
}

func TestWalkForwardSkipsShortSeries(t *testing.T) {
	candles := zigzagCandles(30, time.Hour)

	res, err := WalkForward(context.Background(), candles, "sequential_reversal",
		nil, engine.DefaultConfig(), DefaultWalkForwardConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, res.Windows)
	assert.Empty(t, res.OOSEquity)
}

func TestWalkForwardParamDrift(t *testing.T) {
	tests := []struct {
		name string
		prev map[string]any
		cur  map[string]any
		want float64
	}{
		{"nil previous", nil, map[string]any{"a": 1}, 0},
		{"identical", map[string]any{"a": 1}, map[string]any{"a": 1}, 0},
		{"numeric delta", map[string]any{"a": 2, "b": 1.5}, map[string]any{"a": 5, "b": 1.0}, 3.5},
		{"non-numeric change", map[string]any{"mode": "x"}, map[string]any{"mode": "y"}, 1},
		{"missing key", map[string]any{"a": 1}, map[string]any{"a": 1, "b": true}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, paramDrift(tc.prev, tc.cur), 1e-9)
		})
	}
}
