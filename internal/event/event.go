// Package event defines the typed, immutable records an engine run emits and
// their line-oriented wire serialization. The ordered event sequence is the
// canonical, replayable record of a simulation: every downstream view must be
// derivable from it alone.
package event

import (
	"time"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

// Type discriminates the closed set of event variants. The values double as
// the wire "type" field and must stay stable across versions.
type Type string

const (
	TypeBar         Type = "BarEvent"
	TypeSignal      Type = "SignalEvent"
	TypeFill        Type = "FillEvent"
	TypeEquity      Type = "EquityEvent"
	TypeTradeClosed Type = "TradeClosedEvent"
)

// Action distinguishes fills that enter a position from fills that exit one.
type Action string

const (
	ActionOpen  Action = "OPEN"
	ActionClose Action = "CLOSE"
)

// Event is one record in a run's log. Implementations are value types; once
// appended to a log they are never mutated.
type Event interface {
	Timestamp() time.Time
	EventType() Type
}

// Bar records the arrival of one candle, before any order processing for
// that candle happens.
type Bar struct {
	Time   time.Time       `json:"-"`
	Index  int             `json:"index"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

func (e Bar) Timestamp() time.Time { return e.Time }
func (e Bar) EventType() Type      { return TypeBar }

// Signal records the consumption of one strategy signal.
type Signal struct {
	Time   time.Time       `json:"-"`
	Side   types.Side      `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Source string          `json:"source"`
}

func (e Signal) Timestamp() time.Time { return e.Time }
func (e Signal) EventType() Type      { return TypeSignal }

// Fill records an order execution. The extra fields (intended price,
// slippage, latency, submission time) make execution fidelity auditable from
// the log alone.
type Fill struct {
	Time          time.Time       `json:"-"`
	Action        Action          `json:"action"`
	Side          types.Side      `json:"side"`
	Price         decimal.Decimal `json:"price"`
	IntendedPrice decimal.Decimal `json:"intended_price"`
	SlippageBps   decimal.Decimal `json:"slippage_bps"`
	LatencyBars   int             `json:"latency_bars"`
	SubmittedTime time.Time       `json:"submitted_time"`
	Qty           decimal.Decimal `json:"qty"`
	Reason        string          `json:"reason"`
}

func (e Fill) Timestamp() time.Time { return e.Time }
func (e Fill) EventType() Type      { return TypeFill }

// Equity records the account equity after all fills realized at or before
// its bar.
type Equity struct {
	Time   time.Time       `json:"-"`
	Equity decimal.Decimal `json:"equity"`
}

func (e Equity) Timestamp() time.Time { return e.Time }
func (e Equity) EventType() Type      { return TypeEquity }

// TradeClosed records one completed round trip.
type TradeClosed struct {
	Time       time.Time       `json:"-"`
	Side       types.Side      `json:"side"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Qty        decimal.Decimal `json:"qty"`
	Pnl        decimal.Decimal `json:"pnl"`
	PnlPct     decimal.Decimal `json:"pnl_pct"`
	Reason     string          `json:"reason"`
}

func (e TradeClosed) Timestamp() time.Time { return e.Time }
func (e TradeClosed) EventType() Type      { return TypeTradeClosed }
