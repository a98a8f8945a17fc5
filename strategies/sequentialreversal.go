package strategies

import "tradesim/types"

// SequentialReversal fades runs: after run_len consecutive up closes it goes
// short, after run_len consecutive down closes it goes long. A flat or down
// close counts as down, matching sign-of-return streak counting.
type SequentialReversal struct{}

func (SequentialReversal) Run(candles []types.Candle, params map[string]any) []types.Signal {
	runLen := IntParam(params, "run_len")

	var signals []types.Signal
	streak := 0
	for i := 1; i < len(candles); i++ {
		up := candles[i].Close.GreaterThan(candles[i-1].Close)
		if up {
			if streak >= 0 {
				streak++
			} else {
				streak = 1
			}
		} else {
			if streak <= 0 {
				streak--
			} else {
				streak = -1
			}
		}

		if streak >= runLen {
			signals = append(signals, signal(candles[i].Timestamp, "SHORT", candles[i].Close, "sequential_reversal"))
		} else if streak <= -runLen {
			signals = append(signals, signal(candles[i].Timestamp, "LONG", candles[i].Close, "sequential_reversal"))
		}
	}
	return signals
}
