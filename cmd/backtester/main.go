package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradesim/internal/data"
	"tradesim/internal/engine"
	"tradesim/internal/event"
	"tradesim/internal/metrics"
	"tradesim/internal/optimize"
	"tradesim/internal/repository"
	"tradesim/strategies"
	"tradesim/types"
)

// Env is process configuration from the environment (and .env if present).
type Env struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
}

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

type options struct {
	list       bool
	describe   string
	objectives bool

	strategy string
	params   stringList

	csvPath  string
	ticker   string
	interval string
	start    string
	end      string

	equity        float64
	risk          float64
	sl            float64
	tp            float64
	trail         float64
	noReverse     bool
	entrySlippage float64
	exitSlippage  float64
	entryLatency  int
	exitLatency   int
	eventsPath    string

	sweep     stringList
	sweepMode string
	maxEvals  int
	seed      int64
	objective string
	outPath   string

	walkForward bool
	trainDays   int
	testDays    int
	stepDays    int
	oosPath     string
}

func main() {
	var opts options
	flag.BoolVar(&opts.list, "list", false, "List available strategies")
	flag.StringVar(&opts.describe, "describe", "", "Print description and params for a strategy")
	flag.BoolVar(&opts.objectives, "objectives", false, "List optimization objectives")

	flag.StringVar(&opts.strategy, "strategy", "sigma_extreme", "Strategy key or name")
	flag.Var(&opts.params, "param", "Override strategy param: key=value (repeatable)")

	flag.StringVar(&opts.csvPath, "csv", "", "Path to OHLCV CSV (time,open,high,low,close,volume)")
	flag.StringVar(&opts.ticker, "ticker", "", "Load candles for this ticker from the database instead of CSV")
	flag.StringVar(&opts.interval, "interval", "D", "Candle interval when loading from the database (1,5,15,30,60,240,D,W)")
	flag.StringVar(&opts.start, "start", "", "Start of the database range, RFC3339 or YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "", "End of the database range, RFC3339 or YYYY-MM-DD")

	flag.Float64Var(&opts.equity, "equity", 100_000, "Initial equity")
	flag.Float64Var(&opts.risk, "risk", 0.01, "Risk per trade as fraction of equity")
	flag.Float64Var(&opts.sl, "sl", 0.01, "Stop loss pct (0.01 = 1%)")
	flag.Float64Var(&opts.tp, "tp", 0.02, "Take profit pct")
	flag.Float64Var(&opts.trail, "trail", 0, "Trailing pct (0 disables)")
	flag.BoolVar(&opts.noReverse, "no-reverse", false, "Ignore opposite-side signals while a position is open")
	flag.Float64Var(&opts.entrySlippage, "entry-slippage-bps", 0, "Entry slippage in basis points")
	flag.Float64Var(&opts.exitSlippage, "exit-slippage-bps", 0, "Exit slippage in basis points")
	flag.IntVar(&opts.entryLatency, "entry-latency", 0, "Entry latency in bars")
	flag.IntVar(&opts.exitLatency, "exit-latency", 0, "Exit latency in bars")
	flag.StringVar(&opts.eventsPath, "events", "", "Write the run's event log as JSONL to this path")

	flag.Var(&opts.sweep, "sweep", "Sweep token: key=a:b:c, key=v1,v2 or key=* (repeatable)")
	flag.StringVar(&opts.sweepMode, "sweep-mode", "grid", "Sweep mode: grid or random")
	flag.IntVar(&opts.maxEvals, "max-evals", 500, "Random evals, and the grid cap")
	flag.Int64Var(&opts.seed, "seed", 12345, "Seed for random sweeps")
	flag.StringVar(&opts.objective, "objective", "score_balanced", "Optimization objective")
	flag.StringVar(&opts.outPath, "out", "", "Write sweep or walk-forward results CSV to this path")

	flag.BoolVar(&opts.walkForward, "walk-forward", false, "Run walk-forward optimization with out-of-sample evaluation")
	flag.IntVar(&opts.trainDays, "train-days", 180, "Walk-forward training window (days)")
	flag.IntVar(&opts.testDays, "test-days", 30, "Walk-forward test window (days)")
	flag.IntVar(&opts.stepDays, "step-days", 30, "Walk-forward step size (days)")
	flag.StringVar(&opts.oosPath, "out-oos-equity", "", "Write the concatenated OOS equity curve CSV to this path")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(opts, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(opts options, logger *zap.Logger) error {
	switch {
	case opts.list:
		for _, d := range strategies.List() {
			fmt.Printf("%-28s %s\n", d.Key, d.Name)
		}
		return nil
	case opts.objectives:
		for _, o := range optimize.Objectives() {
			fmt.Printf("%-18s (%s)  %s\n", o.Name, o.Direction, o.Help)
		}
		return nil
	case opts.describe != "":
		return describe(opts.describe)
	}

	desc, err := strategies.Get(opts.strategy)
	if err != nil {
		return err
	}
	cfg, err := engineConfig(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	candles, err := loadCandles(ctx, opts)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("loaded candles",
		zap.Int("bars", len(candles)),
		zap.String("strategy", desc.Key),
	)

	if opts.walkForward {
		return runWalkForward(ctx, opts, desc.Key, candles, cfg, logger)
	}
	if len(opts.sweep) > 0 {
		return runSweep(ctx, opts, desc.Key, candles, cfg, logger)
	}
	return runSingle(opts, desc, candles, cfg)
}

func describe(key string) error {
	d, err := strategies.Get(key)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n%s\n\nParams:\n", d.Name, d.Key, d.Description)
	for _, p := range d.Params {
		rng := ""
		if p.Min != nil && p.Max != nil {
			rng = fmt.Sprintf(" [%v..%v]", *p.Min, *p.Max)
		}
		step := ""
		if p.Step != nil {
			step = fmt.Sprintf(" step=%v", *p.Step)
		}
		fmt.Printf("  - %s (%s) default=%v%s%s  %s\n", p.Key, p.Kind, p.Default, rng, step, p.Help)
	}
	return nil
}

func engineConfig(opts options) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.InitialEquity = decimal.NewFromFloat(opts.equity)
	cfg.RiskPerTrade = decimal.NewFromFloat(opts.risk)
	cfg.StopLossPct = decimal.NewFromFloat(opts.sl)
	cfg.TakeProfitPct = decimal.NewFromFloat(opts.tp)
	cfg.TrailingPct = decimal.NewFromFloat(opts.trail)
	cfg.AllowReverse = !opts.noReverse
	cfg.EntrySlippageBps = decimal.NewFromFloat(opts.entrySlippage)
	cfg.ExitSlippageBps = decimal.NewFromFloat(opts.exitSlippage)
	cfg.EntryLatencyBars = opts.entryLatency
	cfg.ExitLatencyBars = opts.exitLatency
	return cfg, cfg.Validate()
}

func loadCandles(ctx context.Context, opts options) ([]types.Candle, error) {
	if opts.csvPath != "" {
		interval, ok := types.ConvertInterval[opts.interval]
		if !ok {
			interval = types.Day
		}
		ticker := opts.ticker
		if ticker == "" {
			ticker = "CSV"
		}
		return data.LoadFile(opts.csvPath, ticker, interval)
	}
	if opts.ticker == "" {
		return nil, errors.New("either -csv or -ticker is required")
	}

	// .env is optional; explicit environment wins either way.
	_ = godotenv.Load()
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if env.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required when loading from the database")
	}

	interval, ok := types.ConvertInterval[opts.interval]
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrIntervalNotSupported, opts.interval)
	}
	start, err := parseDate(opts.start)
	if err != nil {
		return nil, fmt.Errorf("parse -start: %w", err)
	}
	end, err := parseDate(opts.end)
	if err != nil {
		return nil, fmt.Errorf("parse -end: %w", err)
	}

	db, err := repository.NewDatabase(ctx, env.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	asset, err := db.GetAssetByTicker(ctx, opts.ticker)
	if err != nil {
		return nil, err
	}
	return db.GetCandles(ctx, asset.Id, asset.Ticker, interval, start, end)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing date, use -start and -end")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func runSingle(opts options, desc strategies.Descriptor, candles []types.Candle, cfg engine.Config) error {
	overrides, err := strategies.ParseKVList(opts.params, desc.Params)
	if err != nil {
		return err
	}
	merged, err := strategies.MergeParams(overrides, desc.Params)
	if err != nil {
		return err
	}

	signals := desc.New().Run(candles, merged)
	res, err := engine.Run(candles, signals, cfg)
	if err != nil {
		return err
	}

	if opts.eventsPath != "" {
		if err := writeEvents(opts.eventsPath, res.Events); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", opts.eventsPath)
	}

	m := metrics.Compute(cfg.InitialEquity, res.EquityCurve, res.Trades)
	fmt.Printf("Strategy: %s (%s)\n", desc.Name, desc.Key)
	if len(overrides) > 0 {
		fmt.Printf("Params:   %v\n", overrides)
	}
	fmt.Printf("Trades:   %d\n", m.TotalTrades)
	fmt.Printf("WinRate:  %.2f%%\n", m.WinRate*100)
	fmt.Printf("Net:      %.2f%%\n", m.NetPct)
	fmt.Printf("MaxDD:    %.2f%%\n", m.MaxDrawdownPct)
	if math.IsInf(m.ProfitFactor, 1) {
		fmt.Println("PF:       inf")
	} else {
		fmt.Printf("PF:       %.3f\n", m.ProfitFactor)
	}
	fmt.Printf("Final:    %s\n", res.FinalEquity.StringFixed(2))
	return nil
}

func writeEvents(path string, events []event.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create events file: %w", err)
	}
	defer f.Close()

	return event.EncodeJSONL(f, events)
}

func sweepConfig(opts options) optimize.SweepConfig {
	cfg := optimize.DefaultSweepConfig()
	cfg.Mode = optimize.Mode(opts.sweepMode)
	cfg.MaxEvals = opts.maxEvals
	cfg.Seed = opts.seed
	cfg.Progress = true
	return cfg
}

func runSweep(ctx context.Context, opts options, strategyKey string, candles []types.Candle, cfg engine.Config, logger *zap.Logger) error {
	results, err := optimize.Sweep(ctx, candles, strategyKey, opts.sweep, cfg, opts.objective, sweepConfig(opts), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Sweep: %s mode=%s objective=%s\n", strategyKey, opts.sweepMode, opts.objective)
	fmt.Printf("Evaluations: %d\n", len(results))
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	best := results[0]
	fmt.Println("\nTop result:")
	fmt.Printf("  objective_value    %v\n", best.ObjectiveValue)
	fmt.Printf("  net_pct            %v\n", best.Summary.NetPct)
	fmt.Printf("  max_drawdown_pct   %v\n", best.Summary.MaxDrawdownPct)
	fmt.Printf("  profit_factor      %v\n", best.Summary.ProfitFactor)
	fmt.Printf("  win_rate           %v\n", best.Summary.WinRate)
	fmt.Printf("  total_trades       %d\n", best.Summary.TotalTrades)
	fmt.Printf("  params:            %v\n", best.Params)

	if opts.outPath != "" {
		if err := optimize.WriteSweepCSVFile(opts.outPath, results); err != nil {
			return err
		}
		fmt.Printf("\nWrote: %s\n", opts.outPath)
	}
	return nil
}

func runWalkForward(ctx context.Context, opts options, strategyKey string, candles []types.Candle, cfg engine.Config, logger *zap.Logger) error {
	if len(opts.sweep) == 0 {
		return errors.New("-walk-forward requires at least one -sweep token to define the search space")
	}

	wfCfg := optimize.WalkForwardConfig{
		TrainDays: max(1, opts.trainDays),
		TestDays:  max(1, opts.testDays),
		StepDays:  max(1, opts.stepDays),
		Objective: opts.objective,
		Sweep:     sweepConfig(opts),
	}
	wfCfg.Sweep.Progress = false // one bar per window is just noise

	res, err := optimize.WalkForward(ctx, candles, strategyKey, opts.sweep, cfg, wfCfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Walk-forward: %s objective=%s\n", strategyKey, opts.objective)
	fmt.Printf("Windows: %d\n", len(res.Windows))
	if len(res.Windows) > 0 {
		var net, dd float64
		for _, w := range res.Windows {
			net += w.Test.NetPct
			dd += w.Test.MaxDrawdownPct
		}
		n := float64(len(res.Windows))
		fmt.Printf("Avg OOS net_pct: %.4f\n", net/n)
		fmt.Printf("Avg OOS max_dd:  %.4f\n", dd/n)
	}

	if opts.outPath != "" {
		if err := optimize.WriteWindowsCSVFile(opts.outPath, res.Windows); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", opts.outPath)
	}
	if opts.oosPath != "" {
		if err := optimize.WriteOOSEquityCSVFile(opts.oosPath, res.OOSEquity); err != nil {
			return err
		}
		fmt.Printf("Wrote: %s\n", opts.oosPath)
	}
	return nil
}
