package replay

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim/internal/event"
	"tradesim/types"
)

func testLog() []event.Event {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	bar := func(i int, px int64) event.Bar {
		p := decimal.NewFromInt(px)
		return event.Bar{Time: t0.Add(time.Duration(i) * time.Minute), Index: i, Open: p, High: p, Low: p, Close: p}
	}
	eq := func(i int, v int64) event.Equity {
		return event.Equity{Time: t0.Add(time.Duration(i) * time.Minute), Equity: decimal.NewFromInt(v)}
	}
	return []event.Event{
		bar(0, 100),
		event.Signal{Time: t0, Side: types.SideBuy, Price: decimal.NewFromInt(100), Source: "test"},
		eq(0, 100_000),
		bar(1, 101),
		event.Fill{Time: t0.Add(time.Minute), Action: event.ActionOpen, Side: types.SideBuy, Price: decimal.NewFromInt(100), Qty: decimal.NewFromInt(10)},
		eq(1, 100_000),
		bar(2, 103),
		event.TradeClosed{Time: t0.Add(2 * time.Minute), Side: types.SideBuy, EntryPrice: decimal.NewFromInt(100), ExitPrice: decimal.NewFromInt(103), Qty: decimal.NewFromInt(10), Pnl: decimal.NewFromInt(30)},
		event.Fill{Time: t0.Add(2 * time.Minute), Action: event.ActionClose, Side: types.SideBuy, Price: decimal.NewFromInt(103), Qty: decimal.NewFromInt(10)},
		eq(2, 100_000),
		eq(2, 100_030), // corrective point for the forced close
	}
}

func TestStreamSeekClamps(t *testing.T) {
	s := NewStream(testLog())

	assert.Equal(t, len(testLog())-1, s.Cursor(), "fresh stream sits at the last event")
	assert.Equal(t, 0, s.Seek(-5))
	assert.Equal(t, s.MaxIndex(), s.Seek(1_000_000))
	assert.Equal(t, 3, s.Seek(3))
	assert.Equal(t, 1, s.Step(-2))
	assert.Equal(t, s.MaxIndex(), s.Step(100))
}

func TestStreamEmptyLog(t *testing.T) {
	s := NewStream(nil)
	assert.Equal(t, -1, s.MaxIndex())
	assert.Equal(t, -1, s.Seek(4))
	assert.True(t, s.CurrentTime().IsZero())
	assert.Empty(t, s.Candles())
	assert.Equal(t, -1, s.NearestBarIndex(time.Now()))
}

func TestStreamViewsFollowCursor(t *testing.T) {
	s := NewStream(testLog())

	s.Seek(2) // first bar processed, nothing filled yet
	assert.Len(t, s.Candles(), 1)
	assert.Empty(t, s.Fills())
	assert.Empty(t, s.Trades())
	require.Len(t, s.Equity(), 1)

	s.Seek(s.MaxIndex())
	assert.Len(t, s.Candles(), 3)
	assert.Len(t, s.Fills(), 2)
	require.Len(t, s.Trades(), 1)
	assert.Equal(t, "30", s.Trades()[0].Pnl.String())
}

func TestStreamEquityCorrectionSupersedes(t *testing.T) {
	s := NewStream(testLog())

	curve := s.Equity()
	require.Len(t, curve, 3, "same-timestamp correction replaces, not appends")
	assert.Equal(t, "100030", curve[2].Equity.String())

	// Before the corrective event the original point is still visible.
	s.Seek(s.MaxIndex() - 1)
	curve = s.Equity()
	require.Len(t, curve, 3)
	assert.Equal(t, "100000", curve[2].Equity.String())
}

func TestStreamRepeatedSeeksAreDeterministic(t *testing.T) {
	s := NewStream(testLog())
	s.Seek(5)
	first := s.Fills()
	s.Seek(0)
	s.Seek(s.MaxIndex())
	s.Seek(5)
	assert.Equal(t, first, s.Fills())
}

func TestStreamNearestBarIndex(t *testing.T) {
	s := NewStream(testLog())
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"exact first bar", t0, 0},
		{"between bars rounds to nearer", t0.Add(50 * time.Second), 3},
		{"tie resolves earlier", t0.Add(30 * time.Second), 0},
		{"far future clamps to last bar", t0.Add(time.Hour), 6},
		{"before start clamps to first bar", t0.Add(-time.Hour), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.NearestBarIndex(tc.at))
		})
	}
}
