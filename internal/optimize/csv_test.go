package optimize

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/metrics"
)

func TestWriteSweepCSV(t *testing.T) {
	results := []EvalResult{
		{
			Params:         map[string]any{"window": 20, "sigma": 2.0},
			Summary:        metrics.Summary{TotalTrades: 4, WinRate: 0.5, NetPct: 1.25, MaxDrawdownPct: 0.8, ProfitFactor: 2},
			ObjectiveValue: 1.25,
		},
		{
			Params:         map[string]any{"window": 30, "sigma": 1.5},
			Summary:        metrics.Summary{TotalTrades: 2},
			ObjectiveValue: -0.5,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSweepCSV(&buf, results))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"objective_value", "net_pct", "max_drawdown_pct", "profit_factor", "win_rate", "total_trades",
		"param_sigma", "param_window",
	}, rows[0])
	assert.Equal(t, "1.25", rows[1][0])
	assert.Equal(t, "4", rows[1][5])
	assert.Equal(t, "2", rows[1][6])
	assert.Equal(t, "20", rows[1][7])
}

func TestWriteWindowsCSV(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windows := []Window{
		{
			ID:         0,
			TrainStart: t0,
			TrainEnd:   t0.AddDate(0, 0, 20),
			TestStart:  t0.AddDate(0, 0, 20),
			TestEnd:    t0.AddDate(0, 0, 25),
			BestParams: map[string]any{"run_len": 3},
			Train:      metrics.Summary{NetPct: 2, TotalTrades: 6},
			Test:       metrics.Summary{NetPct: 1, TotalTrades: 2},
			ParamDrift: 0,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteWindowsCSV(&buf, windows))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "window_id", rows[0][0])
	assert.Equal(t, "0", rows[1][0])
	assert.JSONEq(t, `{"run_len":3}`, rows[1][5])
	assert.Equal(t, "2024-01-01T00:00:00Z", rows[1][1])
}
