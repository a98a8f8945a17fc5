// Package replay provides a cursor over a finished run's event log. The log
// is the single source of truth: every view is assembled from event payloads
// at or before the cursor, never by re-running engine logic, so scrubbing
// back and forth always reproduces the same intermediate pictures.
package replay

import (
	"time"

	"tradesim/internal/event"
)

// Stream is a seekable cursor over an immutable event slice. The zero cursor
// positions matter: a fresh stream sits at the last event so callers see the
// complete run until they rewind. Stream is not safe for concurrent use; give
// each consumer its own Stream over the shared slice.
type Stream struct {
	events []event.Event
	cursor int
}

// NewStream wraps events without copying. The caller must not mutate the
// slice afterwards.
func NewStream(events []event.Event) *Stream {
	return &Stream{events: events, cursor: len(events) - 1}
}

// MaxIndex returns the index of the last event, or -1 for an empty log.
func (s *Stream) MaxIndex() int {
	return len(s.events) - 1
}

// Cursor returns the current position, -1 for an empty log.
func (s *Stream) Cursor() int {
	return s.cursor
}

// Seek moves the cursor to i, clamped into [0, MaxIndex], and returns the
// resulting position.
func (s *Stream) Seek(i int) int {
	if i < 0 {
		i = 0
	}
	if max := s.MaxIndex(); i > max {
		i = max
	}
	s.cursor = i
	return s.cursor
}

// Step moves the cursor by n events (negative steps back), clamped.
func (s *Stream) Step(n int) int {
	return s.Seek(s.cursor + n)
}

// CurrentTime returns the timestamp of the event under the cursor, or the
// zero time for an empty log.
func (s *Stream) CurrentTime() time.Time {
	if s.cursor < 0 || s.cursor >= len(s.events) {
		return time.Time{}
	}
	return s.events[s.cursor].Timestamp()
}

// NearestBarIndex returns the event index of the bar whose timestamp is
// closest to t, for jump-to-time navigation. It returns -1 when the log
// contains no bars. Ties resolve to the earlier bar.
func (s *Stream) NearestBarIndex(t time.Time) int {
	best := -1
	var bestDiff time.Duration
	for i, ev := range s.events {
		if ev.EventType() != event.TypeBar {
			continue
		}
		diff := ev.Timestamp().Sub(t)
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// Candles returns every bar at or before the cursor.
func (s *Stream) Candles() []event.Bar {
	var out []event.Bar
	s.each(func(ev event.Event) {
		if b, ok := ev.(event.Bar); ok {
			out = append(out, b)
		}
	})
	return out
}

// Fills returns every fill at or before the cursor.
func (s *Stream) Fills() []event.Fill {
	var out []event.Fill
	s.each(func(ev event.Event) {
		if f, ok := ev.(event.Fill); ok {
			out = append(out, f)
		}
	})
	return out
}

// Equity returns the equity curve visible at the cursor. A later equity
// event with the same timestamp supersedes the earlier point, which is how
// the forced end-of-data close corrects the final bar.
func (s *Stream) Equity() []event.Equity {
	var out []event.Equity
	s.each(func(ev event.Event) {
		e, ok := ev.(event.Equity)
		if !ok {
			return
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(e.Time) {
			out[n-1] = e
			return
		}
		out = append(out, e)
	})
	return out
}

// Trades returns every closed trade at or before the cursor.
func (s *Stream) Trades() []event.TradeClosed {
	var out []event.TradeClosed
	s.each(func(ev event.Event) {
		if t, ok := ev.(event.TradeClosed); ok {
			out = append(out, t)
		}
	})
	return out
}

func (s *Stream) each(fn func(event.Event)) {
	for i := 0; i <= s.cursor && i < len(s.events); i++ {
		fn(s.events[i])
	}
}
