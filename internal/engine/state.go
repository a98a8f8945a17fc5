package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

// Exit and entry reasons carried on fills, trades and events.
const (
	ReasonSignal       = "Signal"
	ReasonReverse      = "ReverseSignal"
	ReasonStopLoss     = "StopLoss"
	ReasonTakeProfit   = "TakeProfit"
	ReasonTrailingStop = "TrailingStop"
	ReasonEndOfData    = "EndOfData"
)

// State is the engine's position/order state between bars. PENDING_ENTRY and
// PENDING_EXIT may overlap during a reversal; OPEN+PENDING_EXIT reports as
// PENDING_EXIT since the exit decides what happens next.
type State int

const (
	StateFlat State = iota
	StatePendingEntry
	StateOpen
	StatePendingExit
)

// pendingOrder is a scheduled entry or exit waiting out its latency
// countdown. Latency zero still goes through a pendingOrder so that every
// fill takes the same path.
type pendingOrder struct {
	side          types.Side // entry side; unset for exits
	intendedPrice decimal.Decimal
	reason        string
	latency       int // configured latency, decides the fill price basis
	remaining     int // bars left before the fill
	submittedTime time.Time
}

// position is the single open position. At most one exists at any time.
type position struct {
	side       types.Side
	entryTime  time.Time
	entryPrice decimal.Decimal
	size       decimal.Decimal
	stop       decimal.Decimal
	take       decimal.Decimal
	best       decimal.Decimal // best price since entry, for trailing
}

// execState groups the mutable machine state so transitions stay in one
// place and the single-position invariant is visible by construction: a
// position is only ever created from a consumed pendingEntry while pos is
// nil, and only ever destroyed by a consumed pendingExit or end of data.
type execState struct {
	pos          *position
	pendingEntry *pendingOrder
	pendingExit  *pendingOrder
}

func (s *execState) current() State {
	switch {
	case s.pos != nil && s.pendingExit != nil:
		return StatePendingExit
	case s.pos != nil:
		return StateOpen
	case s.pendingEntry != nil:
		return StatePendingEntry
	}
	return StateFlat
}

// scheduleEntry is idempotent: a second schedule while one is pending is
// dropped, so a reversal schedules each side at most once per occurrence.
func (s *execState) scheduleEntry(side types.Side, intended decimal.Decimal, reason string, latency int, submitted time.Time) bool {
	if s.pendingEntry != nil {
		return false
	}
	s.pendingEntry = &pendingOrder{
		side:          side,
		intendedPrice: intended,
		reason:        reason,
		latency:       latency,
		remaining:     latency,
		submittedTime: submitted,
	}
	return true
}

func (s *execState) scheduleExit(intended decimal.Decimal, reason string, latency int, submitted time.Time) bool {
	if s.pendingExit != nil {
		return false
	}
	s.pendingExit = &pendingOrder{
		intendedPrice: intended,
		reason:        reason,
		latency:       latency,
		remaining:     latency,
		submittedTime: submitted,
	}
	return true
}

// countdown decrements the pending order's latency counter and reports
// whether it fills on this bar.
func (p *pendingOrder) countdown() bool {
	if p.remaining > 0 {
		p.remaining--
	}
	return p.remaining == 0
}
