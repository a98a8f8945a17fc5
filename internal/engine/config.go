package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config is immutable for the duration of one run.
type Config struct {
	// Portfolio / risk
	InitialEquity decimal.Decimal
	RiskPerTrade  decimal.Decimal // fraction of equity risked per trade

	// Exits, as fractions of the entry price
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
	TrailingPct   decimal.Decimal // zero disables
	AllowReverse  bool            // reverse on opposite signal

	// Execution fidelity
	EntrySlippageBps decimal.Decimal // basis points, adverse to the entry action
	ExitSlippageBps  decimal.Decimal // basis points, adverse to the closing action
	EntryLatencyBars int
	ExitLatencyBars  int
}

func DefaultConfig() Config {
	return Config{
		InitialEquity: decimal.NewFromInt(100_000),
		RiskPerTrade:  decimal.NewFromFloat(0.01),
		StopLossPct:   decimal.NewFromFloat(0.01),
		TakeProfitPct: decimal.NewFromFloat(0.02),
		TrailingPct:   decimal.Zero,
		AllowReverse:  true,
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
// A zero or near-zero stop distance is NOT rejected here; sizing clamps it.
func (c Config) Validate() error {
	if !c.InitialEquity.IsPositive() {
		return fmt.Errorf("%w: initial equity must be positive, got %s", ErrInvalidConfig, c.InitialEquity)
	}
	if c.RiskPerTrade.IsNegative() {
		return fmt.Errorf("%w: risk per trade is negative: %s", ErrInvalidConfig, c.RiskPerTrade)
	}
	if c.StopLossPct.IsNegative() {
		return fmt.Errorf("%w: stop loss pct is negative: %s", ErrInvalidConfig, c.StopLossPct)
	}
	if c.TakeProfitPct.IsNegative() {
		return fmt.Errorf("%w: take profit pct is negative: %s", ErrInvalidConfig, c.TakeProfitPct)
	}
	if c.TrailingPct.IsNegative() {
		return fmt.Errorf("%w: trailing pct is negative: %s", ErrInvalidConfig, c.TrailingPct)
	}
	if c.EntryLatencyBars < 0 || c.ExitLatencyBars < 0 {
		return fmt.Errorf("%w: latency bars cannot be negative", ErrInvalidConfig)
	}
	return nil
}
