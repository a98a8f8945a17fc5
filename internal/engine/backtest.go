// Package engine is the bar-by-bar execution state machine. It turns a price
// series and a pre-computed signal series into filled trades, an equity curve
// and an ordered event log, applying position sizing, stop/take/trailing
// exits, slippage and order latency.
//
// A run is a pure function of (bars, signals, config): single-threaded,
// deterministic, no I/O, no ambient randomness. The emitted event log is
// immutable and safe to share read-only across any number of replay cursors.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/event"
	"tradesim/types"
)

// stopDistanceFloor guards sizing against a zero or near-zero stop distance.
// Clamping keeps degenerate configs deterministic instead of fatal.
var stopDistanceFloor = decimal.New(1, -9)

var (
	one     = decimal.NewFromInt(1)
	tenKBps = decimal.NewFromInt(10_000)
)

// Result is everything one run produces. EquityCurve has exactly one entry
// per bar; initial equity plus the sum of trade pnl equals FinalEquity.
type Result struct {
	Trades      []types.Trade
	EquityCurve []decimal.Decimal
	Events      []event.Event
	FinalEquity decimal.Decimal
}

// Run executes signals against bars under cfg, producing the full event log.
func Run(candles []types.Candle, signals []types.Signal, cfg Config) (*Result, error) {
	return run(candles, signals, cfg, true)
}

// RunNoEvents is Run without the event log, for tight sweep loops that only
// need trades and the equity curve.
func RunNoEvents(candles []types.Candle, signals []types.Signal, cfg Config) (*Result, error) {
	return run(candles, signals, cfg, false)
}

type backtester struct {
	cfg    Config
	st     execState
	equity decimal.Decimal
	curve  []decimal.Decimal
	trades []types.Trade
	events []event.Event
	emit   bool
}

func run(candles []types.Candle, signals []types.Signal, cfg Config, emitEvents bool) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkSorted(candles); err != nil {
		return nil, err
	}
	sigs, err := sortedSignals(signals)
	if err != nil {
		return nil, err
	}

	b := &backtester{
		cfg:    cfg,
		equity: cfg.InitialEquity,
		curve:  make([]decimal.Decimal, 0, len(candles)),
		emit:   emitEvents,
	}

	sigIdx := 0
	for i, c := range candles {
		b.emitEvent(event.Bar{
			Time:   c.Timestamp,
			Index:  i,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})

		// Pending exit first, so a reversal never opens the new side while
		// the old position still exists.
		b.fillPendingExit(c)
		b.fillPendingEntry(c)

		for sigIdx < len(sigs) && !sigs[sigIdx].Time.After(c.Timestamp) {
			b.consumeSignal(sigs[sigIdx], c)
			sigIdx++
		}

		b.checkExits(c)

		b.curve = append(b.curve, b.equity)
		b.emitEvent(event.Equity{Time: c.Timestamp, Equity: b.equity})
	}

	// Force-close anything still open at the last bar's close, with exit
	// slippage but no extra latency, and correct the final equity point.
	if b.st.pos != nil && len(candles) > 0 {
		last := candles[len(candles)-1]
		action := b.st.pos.side.Opposite()
		exec := applySlippage(last.Close, action, cfg.ExitSlippageBps)
		b.closePosition(last.Timestamp, exec, fillMeta{
			intendedPrice: last.Close,
			slippageBps:   cfg.ExitSlippageBps,
			latencyBars:   0,
			submittedTime: last.Timestamp,
			reason:        ReasonEndOfData,
		})
		b.curve[len(b.curve)-1] = b.equity
		b.emitEvent(event.Equity{Time: last.Timestamp, Equity: b.equity})
	}

	return &Result{
		Trades:      b.trades,
		EquityCurve: b.curve,
		Events:      b.events,
		FinalEquity: b.equity,
	}, nil
}

func (b *backtester) emitEvent(ev event.Event) {
	if b.emit {
		b.events = append(b.events, ev)
	}
}

// fillPendingExit runs the latency countdown on a pending exit and closes
// the position when it reaches zero. The fill price basis is the bar open
// when latency was configured, the originally intended price otherwise.
func (b *backtester) fillPendingExit(c types.Candle) {
	pe := b.st.pendingExit
	if pe == nil || b.st.pos == nil {
		return
	}
	if !pe.countdown() {
		return
	}
	base := pe.intendedPrice
	if pe.latency > 0 {
		base = c.Open
	}
	action := b.st.pos.side.Opposite()
	exec := applySlippage(base, action, b.cfg.ExitSlippageBps)
	b.closePosition(c.Timestamp, exec, fillMeta{
		intendedPrice: pe.intendedPrice,
		slippageBps:   b.cfg.ExitSlippageBps,
		latencyBars:   pe.latency,
		submittedTime: pe.submittedTime,
		reason:        pe.reason,
	})
	b.st.pendingExit = nil
}

// fillPendingEntry mirrors fillPendingExit for entries. A zero-latency entry
// fills at the intended price and keeps its submission time as fill time, so
// the fill reads as same-bar even though it takes the unified pending path.
func (b *backtester) fillPendingEntry(c types.Candle) {
	pe := b.st.pendingEntry
	if pe == nil || b.st.pos != nil {
		return
	}
	if !pe.countdown() {
		return
	}
	base := pe.intendedPrice
	fillTime := pe.submittedTime
	if pe.latency > 0 {
		base = c.Open
		fillTime = c.Timestamp
	}
	exec := applySlippage(base, pe.side, b.cfg.EntrySlippageBps)
	b.openPosition(fillTime, pe.side, exec, fillMeta{
		intendedPrice: pe.intendedPrice,
		slippageBps:   b.cfg.EntrySlippageBps,
		latencyBars:   pe.latency,
		submittedTime: pe.submittedTime,
		reason:        pe.reason,
	})
	b.st.pendingEntry = nil
}

func (b *backtester) consumeSignal(s types.Signal, c types.Candle) {
	source := s.Source
	if source == "" {
		source = "strategy"
	}
	b.emitEvent(event.Signal{Time: s.Time, Side: s.Side, Price: s.Price, Source: source})

	switch {
	case b.st.pos == nil:
		b.st.scheduleEntry(s.Side, s.Price, ReasonSignal, b.cfg.EntryLatencyBars, s.Time)

	case b.cfg.AllowReverse && b.st.pos.side != s.Side:
		// The exit is submitted at the processing bar with the bar close as
		// intended price; the entry keeps the signal's own time and price.
		b.st.scheduleExit(c.Close, ReasonReverse, b.cfg.ExitLatencyBars, c.Timestamp)
		b.st.scheduleEntry(s.Side, s.Price, ReasonReverse, b.cfg.EntryLatencyBars, s.Time)
	}
}

// checkExits updates best-price tracking and schedules at most one exit per
// bar, in priority order: stop loss, take profit, trailing stop.
func (b *backtester) checkExits(c types.Candle) {
	pos := b.st.pos
	if pos == nil || b.st.pendingExit != nil {
		return
	}

	long := pos.side == types.SideBuy
	if long {
		if c.High.GreaterThan(pos.best) {
			pos.best = c.High
		}
	} else {
		if c.Low.LessThan(pos.best) {
			pos.best = c.Low
		}
	}

	hitStop := c.High.GreaterThanOrEqual(pos.stop)
	hitTake := c.Low.LessThanOrEqual(pos.take)
	if long {
		hitStop = c.Low.LessThanOrEqual(pos.stop)
		hitTake = c.High.GreaterThanOrEqual(pos.take)
	}

	switch {
	case hitStop:
		b.st.scheduleExit(pos.stop, ReasonStopLoss, b.cfg.ExitLatencyBars, c.Timestamp)
	case hitTake:
		b.st.scheduleExit(pos.take, ReasonTakeProfit, b.cfg.ExitLatencyBars, c.Timestamp)
	case b.cfg.TrailingPct.IsPositive():
		dist := b.cfg.TrailingPct.Mul(pos.entryPrice)
		trail := pos.best.Sub(dist)
		hit := c.Low.LessThanOrEqual(trail)
		if !long {
			trail = pos.best.Add(dist)
			hit = c.High.GreaterThanOrEqual(trail)
		}
		if hit {
			b.st.scheduleExit(trail, ReasonTrailingStop, b.cfg.ExitLatencyBars, c.Timestamp)
		}
	}
}

// fillMeta carries the execution-fidelity fields onto fill events.
type fillMeta struct {
	intendedPrice decimal.Decimal
	slippageBps   decimal.Decimal
	latencyBars   int
	submittedTime time.Time
	reason        string
}

func (b *backtester) openPosition(fillTime time.Time, side types.Side, execPrice decimal.Decimal, meta fillMeta) {
	size := riskSize(b.equity, execPrice, b.cfg)
	slDist := b.cfg.StopLossPct.Mul(execPrice)
	tpDist := b.cfg.TakeProfitPct.Mul(execPrice)

	pos := &position{
		side:       side,
		entryTime:  fillTime,
		entryPrice: execPrice,
		size:       size,
		best:       execPrice,
	}
	if side == types.SideBuy {
		pos.stop = execPrice.Sub(slDist)
		pos.take = execPrice.Add(tpDist)
	} else {
		pos.stop = execPrice.Add(slDist)
		pos.take = execPrice.Sub(tpDist)
	}
	b.st.pos = pos

	b.emitEvent(event.Fill{
		Time:          fillTime,
		Action:        event.ActionOpen,
		Side:          side,
		Price:         execPrice,
		IntendedPrice: meta.intendedPrice,
		SlippageBps:   meta.slippageBps,
		LatencyBars:   meta.latencyBars,
		SubmittedTime: meta.submittedTime,
		Qty:           size,
		Reason:        meta.reason,
	})
}

func (b *backtester) closePosition(fillTime time.Time, execPrice decimal.Decimal, meta fillMeta) {
	pos := b.st.pos
	if pos == nil {
		return
	}

	pnl := positionPnl(pos.side, pos.entryPrice, execPrice, pos.size)
	b.equity = b.equity.Add(pnl)
	pnlPct := decimal.Zero
	if !b.equity.IsZero() {
		pnlPct = pnl.Div(b.equity)
	}

	b.trades = append(b.trades, types.Trade{
		EntryTime:  pos.entryTime,
		Side:       pos.side,
		EntryPrice: pos.entryPrice,
		Size:       pos.size,
		ExitTime:   fillTime,
		ExitPrice:  execPrice,
		Pnl:        pnl,
		Reason:     meta.reason,
	})

	b.emitEvent(event.TradeClosed{
		Time:       fillTime,
		Side:       pos.side,
		EntryPrice: pos.entryPrice,
		ExitPrice:  execPrice,
		Qty:        pos.size,
		Pnl:        pnl,
		PnlPct:     pnlPct,
		Reason:     meta.reason,
	})
	b.emitEvent(event.Fill{
		Time:          fillTime,
		Action:        event.ActionClose,
		Side:          pos.side,
		Price:         execPrice,
		IntendedPrice: meta.intendedPrice,
		SlippageBps:   meta.slippageBps,
		LatencyBars:   meta.latencyBars,
		SubmittedTime: meta.submittedTime,
		Qty:           pos.size,
		Reason:        meta.reason,
	})

	b.st.pos = nil
}

// riskSize sizes a position so that a stop-out loses equity*riskPerTrade,
// with the stop distance clamped away from zero.
func riskSize(equity, price decimal.Decimal, cfg Config) decimal.Decimal {
	riskDollars := equity.Mul(cfg.RiskPerTrade)
	dist := cfg.StopLossPct.Mul(price)
	if dist.LessThan(stopDistanceFloor) {
		dist = stopDistanceFloor
	}
	return riskDollars.Div(dist)
}

// applySlippage moves a fill price against the action side by bps basis
// points. Zero or negative bps is a no-op.
func applySlippage(price decimal.Decimal, action types.Side, bps decimal.Decimal) decimal.Decimal {
	if bps.Sign() <= 0 {
		return price
	}
	s := bps.Div(tenKBps)
	if action == types.SideBuy {
		return price.Mul(one.Add(s))
	}
	return price.Mul(one.Sub(s))
}

func positionPnl(side types.Side, entry, exit, size decimal.Decimal) decimal.Decimal {
	if side == types.SideBuy {
		return exit.Sub(entry).Mul(size)
	}
	return entry.Sub(exit).Mul(size)
}

func checkSorted(candles []types.Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return fmt.Errorf("%w: index %d (%s after %s)",
				ErrBarsNotSorted, i, candles[i].Timestamp, candles[i-1].Timestamp)
		}
	}
	return nil
}

// sortedSignals copies and stable-sorts signals by time, rejecting unknown
// sides up front so a run never half-completes.
func sortedSignals(signals []types.Signal) ([]types.Signal, error) {
	sigs := make([]types.Signal, len(signals))
	copy(sigs, signals)
	sort.SliceStable(sigs, func(i, j int) bool { return sigs[i].Time.Before(sigs[j].Time) })
	for _, s := range sigs {
		if s.Side != types.SideBuy && s.Side != types.SideSell {
			return nil, fmt.Errorf("%w: %q", types.ErrUnknownSide, string(s.Side))
		}
	}
	return sigs, nil
}
