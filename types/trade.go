package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable record of one completed round trip. The trade list
// is append-only: one entry per closed position.
type Trade struct {
	EntryTime  time.Time
	Side       Side
	EntryPrice decimal.Decimal
	Size       decimal.Decimal
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	Pnl        decimal.Decimal
	Reason     string
}
