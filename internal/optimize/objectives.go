// Package optimize searches strategy parameter space: grid/random sweeps and
// rolling walk-forward validation, each evaluation an independent engine run.
package optimize

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"tradesim/internal/metrics"
)

var ErrUnknownObjective = errors.New("unknown objective")

// Direction says whether bigger or smaller objective values win.
type Direction string

const (
	DirectionMax Direction = "max"
	DirectionMin Direction = "min"
)

// Objective scores a run summary. Fn always returns a finite value so that
// sorting sweep results never has to reason about NaN or Inf.
type Objective struct {
	Name      string
	Direction Direction
	Help      string
	Fn        func(metrics.Summary) float64
}

const (
	finiteCap       = 1e9
	profitFactorCap = 1000.0
)

// finite clamps NaN and infinities to ±cap.
func finite(x, cap float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		if x > 0 {
			return cap
		}
		return -cap
	}
	return x
}

var objectives = []Objective{
	{
		Name:      "net_pct",
		Direction: DirectionMax,
		Help:      "Maximize total return (final/initial - 1).",
		Fn:        func(m metrics.Summary) float64 { return finite(m.NetPct, finiteCap) },
	},
	{
		Name:      "max_drawdown_pct",
		Direction: DirectionMin,
		Help:      "Minimize maximum drawdown.",
		Fn:        func(m metrics.Summary) float64 { return finite(m.MaxDrawdownPct, finiteCap) },
	},
	{
		Name:      "profit_factor",
		Direction: DirectionMax,
		Help:      "Maximize profit factor (gross profit / gross loss).",
		Fn:        func(m metrics.Summary) float64 { return finite(m.ProfitFactor, profitFactorCap) },
	},
	{
		Name:      "win_rate",
		Direction: DirectionMax,
		Help:      "Maximize win rate.",
		Fn:        func(m metrics.Summary) float64 { return finite(m.WinRate, finiteCap) },
	},
	{
		Name:      "score_balanced",
		Direction: DirectionMax,
		Help:      "Balanced score: net_pct - 0.5 * max_drawdown_pct.",
		Fn: func(m metrics.Summary) float64 {
			return finite(m.NetPct, finiteCap) - 0.5*finite(m.MaxDrawdownPct, finiteCap)
		},
	},
}

// Objectives lists all objectives sorted by name.
func Objectives() []Objective {
	out := make([]Objective, len(objectives))
	copy(out, objectives)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetObjective resolves an objective by name.
func GetObjective(name string) (Objective, error) {
	needle := strings.TrimSpace(name)
	for _, o := range objectives {
		if o.Name == needle {
			return o, nil
		}
	}
	names := make([]string, 0, len(objectives))
	for _, o := range Objectives() {
		names = append(names, o.Name)
	}
	return Objective{}, fmt.Errorf("%w: %q, known: %s", ErrUnknownObjective, name, strings.Join(names, ", "))
}
