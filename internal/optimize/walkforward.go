package optimize

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradesim/internal/engine"
	"tradesim/internal/metrics"
	"tradesim/strategies"
	"tradesim/types"
)

// Minimum segment sizes below which a window is skipped rather than
// optimized on noise.
const (
	minTrainBars = 50
	minTestBars  = 10
)

// WalkForwardConfig sizes the rolling windows, in days of calendar time.
type WalkForwardConfig struct {
	TrainDays int
	TestDays  int
	StepDays  int
	Objective string
	Sweep     SweepConfig
}

// DefaultWalkForwardConfig mirrors the historical defaults.
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{
		TrainDays: 180,
		TestDays:  30,
		StepDays:  30,
		Objective: "score_balanced",
		Sweep:     DefaultSweepConfig(),
	}
}

// Window is one train/test cycle: the best parameters found on the train
// segment and how they held up out of sample.
type Window struct {
	ID         int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	BestParams map[string]any

	Train metrics.Summary
	Test  metrics.Summary

	TrainObjective float64
	TestObjective  float64

	// ParamDrift sums the absolute change of each numeric parameter against
	// the previous window's best set; non-numeric changes count 1 each.
	ParamDrift float64
	// PerformanceDecay is test net over train net; NaN when train net is 0.
	PerformanceDecay float64
}

// EquityPoint is one out-of-sample equity observation, tagged with the
// window that produced it.
type EquityPoint struct {
	WindowID int
	Time     time.Time
	Equity   decimal.Decimal
}

// WalkForwardResult is every completed window plus the concatenated
// out-of-sample equity curve.
type WalkForwardResult struct {
	Windows   []Window
	OOSEquity []EquityPoint
}

// WalkForward rolls train/test windows over the series, re-optimizing on
// each train segment and evaluating the winner on the following unseen test
// segment.
func WalkForward(ctx context.Context, candles []types.Candle, strategyKey string, tokens []string, engCfg engine.Config, wfCfg WalkForwardConfig, logger *zap.Logger) (*WalkForwardResult, error) {
	desc, err := strategies.Get(strategyKey)
	if err != nil {
		return nil, err
	}
	objective, err := GetObjective(wfCfg.Objective)
	if err != nil {
		return nil, err
	}
	out := &WalkForwardResult{}
	if len(candles) == 0 {
		return out, nil
	}

	trainDelta := time.Duration(wfCfg.TrainDays) * 24 * time.Hour
	testDelta := time.Duration(wfCfg.TestDays) * 24 * time.Hour
	stepDelta := time.Duration(wfCfg.StepDays) * 24 * time.Hour

	start := candles[0].Timestamp.UTC().Truncate(24 * time.Hour)
	end := candles[len(candles)-1].Timestamp

	var prevBest map[string]any
	windowID := 0
	for cursor := start.Add(trainDelta); !cursor.Add(testDelta).After(end); cursor = cursor.Add(stepDelta) {
		trainStart := cursor.Add(-trainDelta)
		train := sliceByTime(candles, trainStart, cursor)
		test := sliceByTime(candles, cursor, cursor.Add(testDelta))
		if len(train) < minTrainBars || len(test) < minTestBars {
			continue
		}

		results, err := Sweep(ctx, train, desc.Key, tokens, engCfg, wfCfg.Objective, wfCfg.Sweep, logger)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			continue
		}
		best := results[0]

		trainSummary, _, err := runWith(train, desc, best.Params, engCfg)
		if err != nil {
			return nil, err
		}
		testSummary, testCurve, err := runWith(test, desc, best.Params, engCfg)
		if err != nil {
			return nil, err
		}

		decay := math.NaN()
		if trainSummary.NetPct != 0 {
			decay = testSummary.NetPct / trainSummary.NetPct
		}

		w := Window{
			ID:               windowID,
			TrainStart:       trainStart,
			TrainEnd:         cursor,
			TestStart:        cursor,
			TestEnd:          cursor.Add(testDelta),
			BestParams:       best.Params,
			Train:            trainSummary,
			Test:             testSummary,
			TrainObjective:   objective.Fn(trainSummary),
			TestObjective:    objective.Fn(testSummary),
			ParamDrift:       paramDrift(prevBest, best.Params),
			PerformanceDecay: decay,
		}
		out.Windows = append(out.Windows, w)

		for i, eq := range testCurve {
			out.OOSEquity = append(out.OOSEquity, EquityPoint{
				WindowID: windowID,
				Time:     test[i].Timestamp,
				Equity:   eq,
			})
		}

		logger.Info("walk-forward window",
			zap.Int("window", windowID),
			zap.Time("test_start", w.TestStart),
			zap.Float64("train_objective", w.TrainObjective),
			zap.Float64("test_objective", w.TestObjective),
		)

		prevBest = best.Params
		windowID++
	}
	return out, nil
}

func runWith(candles []types.Candle, desc strategies.Descriptor, params map[string]any, engCfg engine.Config) (metrics.Summary, []decimal.Decimal, error) {
	signals := desc.New().Run(candles, params)
	res, err := engine.RunNoEvents(candles, signals, engCfg)
	if err != nil {
		return metrics.Summary{}, nil, err
	}
	return metrics.Compute(engCfg.InitialEquity, res.EquityCurve, res.Trades), res.EquityCurve, nil
}

// sliceByTime returns the candles with start <= t < end. The input is
// already sorted, so a scan with early exit suffices.
func sliceByTime(candles []types.Candle, start, end time.Time) []types.Candle {
	var out []types.Candle
	for _, c := range candles {
		if c.Timestamp.Before(start) {
			continue
		}
		if !c.Timestamp.Before(end) {
			break
		}
		out = append(out, c)
	}
	return out
}

func paramDrift(prev, cur map[string]any) float64 {
	if len(prev) == 0 || len(cur) == 0 {
		return 0
	}
	drift := 0.0
	seen := make(map[string]bool, len(prev)+len(cur))
	for k := range prev {
		seen[k] = true
	}
	for k := range cur {
		seen[k] = true
	}
	for k := range seen {
		a, aok := prev[k]
		b, bok := cur[k]
		if aok && bok && a == b {
			continue
		}
		af, aNum := numericValue(a)
		bf, bNum := numericValue(b)
		if aNum && bNum {
			drift += math.Abs(af - bf)
		} else {
			drift++
		}
	}
	return drift
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
