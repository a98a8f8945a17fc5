package optimize

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/metrics"
)

func TestGetObjective(t *testing.T) {
	o, err := GetObjective("net_pct")
	require.NoError(t, err)
	assert.Equal(t, DirectionMax, o.Direction)

	o, err = GetObjective("max_drawdown_pct")
	require.NoError(t, err)
	assert.Equal(t, DirectionMin, o.Direction)

	_, err = GetObjective("sharpe")
	assert.ErrorIs(t, err, ErrUnknownObjective)
}

func TestObjectivesSorted(t *testing.T) {
	list := Objectives()
	require.Len(t, list, 5)
	assert.True(t, sort.SliceIsSorted(list, func(i, j int) bool { return list[i].Name < list[j].Name }))
}

func TestProfitFactorObjectiveCapsInf(t *testing.T) {
	o, err := GetObjective("profit_factor")
	require.NoError(t, err)
	got := o.Fn(metrics.Summary{ProfitFactor: math.Inf(1)})
	assert.Equal(t, profitFactorCap, got)
}

func TestScoreBalanced(t *testing.T) {
	o, err := GetObjective("score_balanced")
	require.NoError(t, err)
	got := o.Fn(metrics.Summary{NetPct: 10, MaxDrawdownPct: 4})
	assert.InDelta(t, 8.0, got, 1e-12)
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 1.5, finite(1.5, 100))
	assert.Equal(t, 100.0, finite(math.Inf(1), 100))
	assert.Equal(t, -100.0, finite(math.Inf(-1), 100))
	assert.Equal(t, -100.0, finite(math.NaN(), 100))
}
