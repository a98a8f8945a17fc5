package strategies

import (
	"math"

	"tradesim/types"
)

// SigmaExtreme fades closes that stray more than sigma standard deviations
// from the rolling mean. The rolling window ends at the current bar and uses
// the sample standard deviation.
type SigmaExtreme struct{}

func (SigmaExtreme) Run(candles []types.Candle, params map[string]any) []types.Signal {
	window := IntParam(params, "window")
	sigma := FloatParam(params, "sigma")
	if window < 2 || len(candles) <= window {
		return nil
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i], _ = c.Close.Float64()
	}

	var signals []types.Signal
	for i := window; i < len(candles); i++ {
		mean, std := meanStd(closes[i-window+1 : i+1])
		upper := mean + sigma*std
		lower := mean - sigma*std

		switch {
		case closes[i] > upper:
			signals = append(signals, signal(candles[i].Timestamp, "SHORT", candles[i].Close, "sigma_extreme"))
		case closes[i] < lower:
			signals = append(signals, signal(candles[i].Timestamp, "LONG", candles[i].Close, "sigma_extreme"))
		}
	}
	return signals
}

// meanStd returns the mean and sample standard deviation of vals.
func meanStd(vals []float64) (float64, float64) {
	n := float64(len(vals))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / n
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
