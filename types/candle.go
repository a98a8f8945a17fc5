package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLCV bar. The input series owns its candles: one per
// timestamp, strictly increasing time. Gap-free spacing is not required.
type Candle struct {
	Ticker    string          `json:"ticker"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}
