// Package strategies holds the static strategy catalog. A strategy turns a
// candle series and a merged parameter map into a signal series; it never
// touches execution state, so the same strategy output replays identically
// under different execution configs.
package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/types"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy produces signals over a full candle series. params is a merged
// map as returned by MergeParams.
type Strategy interface {
	Run(candles []types.Candle, params map[string]any) []types.Signal
}

// Descriptor is one catalog entry.
type Descriptor struct {
	Key         string
	Name        string
	Description string
	Params      []ParamSpec
	New         func() Strategy
}

var catalog = []Descriptor{
	{
		Key:         "sequential_reversal",
		Name:        "Sequential Reversal",
		Description: "After N consecutive closes in one direction, enter the reversal.",
		Params: func() []ParamSpec {
			min, max := rangeOf(2, 500)
			return []ParamSpec{
				{Key: "run_len", Kind: KindInt, Default: 3, Label: "Run length", Help: "Consecutive closes in one direction before fading the move.", Min: min, Max: max, Step: stepOf(1)},
			}
		}(),
		New: func() Strategy { return SequentialReversal{} },
	},
	{
		Key:         "sigma_extreme",
		Name:        "Sigma Extreme",
		Description: "Z-score extremes on rolling mean/std; fade extremes (contrarian).",
		Params: func() []ParamSpec {
			wMin, wMax := rangeOf(2, 5000)
			sMin, sMax := rangeOf(0.1, 10)
			return []ParamSpec{
				{Key: "window", Kind: KindInt, Default: 20, Label: "Window", Help: "Rolling window (bars).", Min: wMin, Max: wMax, Step: stepOf(1)},
				{Key: "sigma", Kind: KindFloat, Default: 2.0, Label: "Sigma", Help: "Std-dev multiple.", Min: sMin, Max: sMax, Step: stepOf(0.1)},
			}
		}(),
		New: func() Strategy { return SigmaExtreme{} },
	},
	{
		Key:         "volatility_breakout",
		Name:        "Volatility Breakout",
		Description: "Average-range breakout from the open; trade continuation when the close clears k times the average range.",
		Params: func() []ParamSpec {
			lMin, lMax := rangeOf(2, 20000)
			kMin, kMax := rangeOf(0.05, 10)
			return []ParamSpec{
				{Key: "lookback", Kind: KindInt, Default: 20, Label: "Lookback", Help: "Range average lookback (bars).", Min: lMin, Max: lMax, Step: stepOf(1)},
				{Key: "k", Kind: KindFloat, Default: 0.5, Label: "k", Help: "Multiplier on the average range.", Min: kMin, Max: kMax, Step: stepOf(0.05)},
			}
		}(),
		New: func() Strategy { return VolatilityBreakout{} },
	},
}

// List returns the catalog sorted by key.
func List() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Get resolves a strategy by key or display name, case-insensitive.
func Get(keyOrName string) (Descriptor, error) {
	needle := strings.ToLower(strings.TrimSpace(keyOrName))
	for _, d := range catalog {
		if d.Key == needle || strings.ToLower(d.Name) == needle {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, keyOrName)
}

// NormalizeSide maps the catalog's directional vocabulary (LONG/SHORT, plus
// plain BUY/SELL) onto the engine's side type.
func NormalizeSide(s string) (types.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG":
		return types.SideBuy, nil
	case "SHORT":
		return types.SideSell, nil
	}
	return types.ParseSide(s)
}

// signal builds one strategy signal in the LONG/SHORT vocabulary. Direction
// strings are authored in this package, so a bad one is a programmer error.
func signal(t time.Time, direction string, price decimal.Decimal, source string) types.Signal {
	side, err := NormalizeSide(direction)
	if err != nil {
		panic(err)
	}
	return types.NewSignal(t, side, price, source)
}
