package strategies

import (
	"github.com/shopspring/decimal"

	"tradesim/types"
)

// VolatilityBreakout trades continuation when the close clears the open by
// more than k times the average bar range over the lookback window. The
// range average includes the current bar.
type VolatilityBreakout struct{}

func (VolatilityBreakout) Run(candles []types.Candle, params map[string]any) []types.Signal {
	lookback := IntParam(params, "lookback")
	k := decimal.NewFromFloat(FloatParam(params, "k"))
	if lookback < 1 || len(candles) <= lookback {
		return nil
	}

	ranges := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		ranges[i] = c.High.Sub(c.Low)
	}
	n := decimal.NewFromInt(int64(lookback))

	var signals []types.Signal
	for i := lookback; i < len(candles); i++ {
		sum := decimal.Zero
		for _, r := range ranges[i-lookback+1 : i+1] {
			sum = sum.Add(r)
		}
		avgRange := sum.Div(n)
		offset := k.Mul(avgRange)

		c := candles[i]
		switch {
		case c.Close.GreaterThan(c.Open.Add(offset)):
			signals = append(signals, signal(c.Timestamp, "LONG", c.Close, "volatility_breakout"))
		case c.Close.LessThan(c.Open.Sub(offset)):
			signals = append(signals, signal(c.Timestamp, "SHORT", c.Close, "volatility_breakout"))
		}
	}
	return signals
}
