package optimize

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tradesim/internal/engine"
	"tradesim/internal/metrics"
	"tradesim/strategies"
	"tradesim/types"
)

var (
	ErrBadSweepToken = errors.New("bad sweep token")
	ErrUnknownMode   = errors.New("unknown sweep mode")
)

// Mode selects how parameter sets are generated.
type Mode string

const (
	ModeGrid   Mode = "grid"
	ModeRandom Mode = "random"
)

// SweepConfig controls search breadth and determinism. The same seed and
// inputs always produce the same parameter sets, regardless of worker count.
type SweepConfig struct {
	Mode     Mode
	MaxEvals int // random-mode evaluations, and the grid cap when > 0
	Seed     int64
	Workers  int  // 0 means GOMAXPROCS
	Progress bool // render a progress bar on stderr
}

// DefaultSweepConfig mirrors the historical defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{Mode: ModeGrid, MaxEvals: 2000, Seed: 12345}
}

// EvalResult is one parameter set's evaluation.
type EvalResult struct {
	Params         map[string]any
	Summary        metrics.Summary
	ObjectiveValue float64
}

// ParseSweepTokens expands tokens into per-key value lists:
//
//	window=10:60:5          range start:stop:step, stop inclusive
//	sigma=1.5,2.0,2.5       explicit list
//	window=*                auto grid from the spec's min/max/step
//	run_len=4               singleton
func ParseSweepTokens(tokens []string, schema []strategies.ParamSpec) (map[string][]any, error) {
	specs := make(map[string]strategies.ParamSpec, len(schema))
	keys := make([]string, 0, len(schema))
	for _, s := range schema {
		specs[s.Key] = s
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)

	grid := make(map[string][]any)
	for _, tok := range tokens {
		key, rhs, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q, use key=...", ErrBadSweepToken, tok)
		}
		key = strings.TrimSpace(key)
		spec, known := specs[key]
		if !known {
			return nil, fmt.Errorf("%w: unknown param %q, known: %s", ErrBadSweepToken, key, strings.Join(keys, ", "))
		}
		vals, err := expandToken(strings.TrimSpace(rhs), spec)
		if err != nil {
			return nil, err
		}
		grid[key] = vals
	}
	return grid, nil
}

func expandToken(rhs string, spec strategies.ParamSpec) ([]any, error) {
	if rhs == "*" {
		if spec.Min == nil || spec.Max == nil || spec.Step == nil {
			return nil, fmt.Errorf("%w: param %q has no min/max/step for auto-grid", ErrBadSweepToken, spec.Key)
		}
		return rangeValues(spec, *spec.Min, *spec.Max, *spec.Step)
	}

	if strings.Contains(rhs, ",") && !strings.Contains(rhs, ":") {
		var vals []any
		for _, part := range strings.Split(rhs, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strategies.Coerce(part, spec.Kind)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	}

	if strings.Contains(rhs, ":") {
		parts := strings.Split(rhs, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: bad range %q for %q, use a:b:c", ErrBadSweepToken, rhs, spec.Key)
		}
		var bounds [3]float64
		for i, p := range parts {
			v, err := strategies.Coerce(strings.TrimSpace(p), strategies.KindFloat)
			if err != nil {
				return nil, fmt.Errorf("%w: bad range %q for %q", ErrBadSweepToken, rhs, spec.Key)
			}
			bounds[i] = v.(float64)
		}
		return rangeValues(spec, bounds[0], bounds[1], bounds[2])
	}

	v, err := strategies.Coerce(rhs, spec.Kind)
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

// rangeValues enumerates start..stop by step, stop inclusive, typed per the
// spec's kind.
func rangeValues(spec strategies.ParamSpec, start, stop, step float64) ([]any, error) {
	if step == 0 {
		return nil, fmt.Errorf("%w: zero step for %q", ErrBadSweepToken, spec.Key)
	}
	switch spec.Kind {
	case strategies.KindInt:
		var vals []any
		istep := int(step)
		if istep == 0 {
			return nil, fmt.Errorf("%w: zero int step for %q", ErrBadSweepToken, spec.Key)
		}
		if istep > 0 {
			for v := int(start); v <= int(stop); v += istep {
				vals = append(vals, v)
			}
		} else {
			for v := int(start); v >= int(stop); v += istep {
				vals = append(vals, v)
			}
		}
		return vals, nil
	case strategies.KindFloat:
		var vals []any
		const eps = 1e-12
		if step > 0 {
			for v := start; v <= stop+eps; v += step {
				vals = append(vals, v)
			}
		} else {
			for v := start; v >= stop-eps; v += step {
				vals = append(vals, v)
			}
		}
		return vals, nil
	}
	return nil, fmt.Errorf("%w: range sweep not supported for %s param %q", ErrBadSweepToken, spec.Kind, spec.Key)
}

// gridParamSets enumerates the cartesian product in sorted-key order, so the
// eval order is a pure function of the grid.
func gridParamSets(grid map[string][]any) []map[string]any {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := []map[string]any{{}}
	for _, k := range keys {
		var next []map[string]any
		for _, base := range sets {
			for _, v := range grid[k] {
				set := make(map[string]any, len(base)+1)
				for bk, bv := range base {
					set[bk] = bv
				}
				set[k] = v
				next = append(next, set)
			}
		}
		sets = next
	}
	return sets
}

// randomParamSet draws one parameter set: from the grid where the key was
// swept, uniformly from the spec range otherwise, default as a last resort.
func randomParamSet(schema []strategies.ParamSpec, grid map[string][]any, rng *rand.Rand) map[string]any {
	out := make(map[string]any, len(schema))
	for _, spec := range schema {
		if vals, ok := grid[spec.Key]; ok && len(vals) > 0 {
			out[spec.Key] = vals[rng.Intn(len(vals))]
			continue
		}
		switch {
		case spec.Kind == strategies.KindInt && spec.Min != nil && spec.Max != nil:
			lo, hi := int(*spec.Min), int(*spec.Max)
			out[spec.Key] = lo + rng.Intn(hi-lo+1)
		case spec.Kind == strategies.KindFloat && spec.Min != nil && spec.Max != nil:
			out[spec.Key] = *spec.Min + rng.Float64()*(*spec.Max-*spec.Min)
		default:
			out[spec.Key] = spec.Default
		}
	}
	return out
}

// Sweep evaluates a strategy over a parameter grid and returns the results
// sorted best-first by the objective, ties broken by generation order.
func Sweep(ctx context.Context, candles []types.Candle, strategyKey string, tokens []string, engCfg engine.Config, objectiveName string, cfg SweepConfig, logger *zap.Logger) ([]EvalResult, error) {
	desc, err := strategies.Get(strategyKey)
	if err != nil {
		return nil, err
	}
	objective, err := GetObjective(objectiveName)
	if err != nil {
		return nil, err
	}
	grid, err := ParseSweepTokens(tokens, desc.Params)
	if err != nil {
		return nil, err
	}

	paramSets, err := buildParamSets(desc, grid, cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("sweep start",
		zap.String("strategy", desc.Key),
		zap.String("mode", string(cfg.Mode)),
		zap.String("objective", objective.Name),
		zap.Int("evals", len(paramSets)),
	)

	results := make([]EvalResult, len(paramSets))
	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = initProgressBar(len(paramSets), "Sweeping parameter space...")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, params := range paramSets {
		i, params := i, params
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := evaluateOnce(candles, desc, params, engCfg, objective)
			if err != nil {
				return err
			}
			results[i] = res
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortResults(results, objective.Direction)
	if len(results) > 0 {
		logger.Info("sweep complete",
			zap.Float64("best", results[0].ObjectiveValue),
			zap.Any("best_params", results[0].Params),
		)
	}
	return results, nil
}

func buildParamSets(desc strategies.Descriptor, grid map[string][]any, cfg SweepConfig) ([]map[string]any, error) {
	switch cfg.Mode {
	case ModeGrid:
		sets := gridParamSets(grid)
		if cfg.MaxEvals > 0 && len(sets) > cfg.MaxEvals {
			sets = sets[:cfg.MaxEvals]
		}
		return sets, nil
	case ModeRandom:
		n := cfg.MaxEvals
		if n < 1 {
			n = 1
		}
		// Draw every set up front from one seeded source, so results do not
		// depend on worker scheduling.
		rng := rand.New(rand.NewSource(cfg.Seed))
		sets := make([]map[string]any, n)
		for i := range sets {
			sets[i] = randomParamSet(desc.Params, grid, rng)
		}
		return sets, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
}

func evaluateOnce(candles []types.Candle, desc strategies.Descriptor, overrides map[string]any, engCfg engine.Config, objective Objective) (EvalResult, error) {
	merged, err := strategies.MergeParams(overrides, desc.Params)
	if err != nil {
		return EvalResult{}, err
	}
	signals := desc.New().Run(candles, merged)
	res, err := engine.RunNoEvents(candles, signals, engCfg)
	if err != nil {
		return EvalResult{}, err
	}
	summary := metrics.Compute(engCfg.InitialEquity, res.EquityCurve, res.Trades)
	return EvalResult{
		Params:         merged,
		Summary:        summary,
		ObjectiveValue: objective.Fn(summary),
	}, nil
}

func sortResults(results []EvalResult, dir Direction) {
	sort.SliceStable(results, func(i, j int) bool {
		if dir == DirectionMin {
			return results[i].ObjectiveValue < results[j].ObjectiveValue
		}
		return results[i].ObjectiveValue > results[j].ObjectiveValue
	})
}

func initProgressBar(maxTicks int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
