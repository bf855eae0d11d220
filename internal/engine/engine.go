package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// Clock abstracts time for the live-fetch throttle so tests can drive
// it directly.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Notifier receives alerts the moment they transition to Triggered.
// Implementations must not block the tick path.
type Notifier interface {
	Notify(alert store.Alert, price float64)
}

type Config struct {
	TickInterval time.Duration // fallback cadence between ticks
	LiveRefresh  time.Duration // minimum gap between live feed attempts
	StartPaused  bool
}

// Engine drives the tick cycle: resolve prices for the tracked symbol
// universe, derive deltas, evaluate alerts, project valuations, publish
// the snapshot, dispatch side effects. It is also the scheduler: a
// two-state machine (Stopped, Running) driven by the visibility signal
// via Pause and Resume.
type Engine struct {
	cfg      Config
	store    store.Store
	source   *marketdata.Source
	state    *State
	notifier Notifier
	log      *zap.Logger
	clock    Clock

	mu       sync.Mutex
	rootCtx  context.Context
	running  bool
	closed   bool
	stopLoop context.CancelFunc

	// inFlight is the single-flight token: a timer firing while a tick
	// still holds it skips rather than queueing. Successive CAS pairs
	// on it also order lastLiveFetch between ticks, so no extra lock.
	inFlight      atomic.Bool
	lastLiveFetch time.Time

	subMu       sync.Mutex
	subscribers []func(*Snapshot)
}

func New(cfg Config, st store.Store, source *marketdata.Source, notifier Notifier, log *zap.Logger) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 6 * time.Second
	}
	if cfg.LiveRefresh <= 0 {
		cfg.LiveRefresh = 60 * time.Second
	}
	return &Engine{
		cfg:      cfg,
		store:    st,
		source:   source,
		state:    NewState(),
		notifier: notifier,
		log:      log,
		clock:    realClock{},
	}
}

// Snapshot returns the latest published snapshot.
func (e *Engine) Snapshot() *Snapshot {
	return e.state.Current()
}

// OnSnapshot registers fn to run after each tick publishes. Callbacks
// run on the tick goroutine and must return quickly.
func (e *Engine) OnSnapshot(fn func(*Snapshot)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = append(e.subscribers, fn)
}

// Start wires the process context and begins ticking unless configured
// to start paused.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.rootCtx = ctx
	e.mu.Unlock()
	if !e.cfg.StartPaused {
		e.Resume()
	}
}

// Resume transitions Stopped -> Running: one immediate tick, then the
// repeating cadence. No-op when already running or closed.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.running || e.closed || e.rootCtx == nil {
		e.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(e.rootCtx)
	e.stopLoop = cancel
	e.running = true
	e.mu.Unlock()

	observ.SetGauge("scheduler_running", 1, nil)
	e.log.Info("scheduler running")
	go e.run(loopCtx)
}

// Pause transitions Running -> Stopped. The cadence stops; a tick
// already in flight finishes and applies its state once, but nothing
// re-arms afterwards.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.stopLoop()
	e.stopLoop = nil
	e.running = false
	e.mu.Unlock()

	observ.SetGauge("scheduler_running", 0, nil)
	e.log.Info("scheduler stopped")
}

// Running reports whether the scheduler is in the Running state.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Close stops the scheduler permanently; Resume becomes a no-op.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	if e.running {
		e.stopLoop()
		e.stopLoop = nil
		e.running = false
	}
	e.mu.Unlock()
	observ.SetGauge("scheduler_running", 0, nil)
	e.log.Info("engine closed")
}

// run executes the immediate tick and then the cadence loop. Ticks run
// on the root context, not the loop context: pausing cancels the
// cadence but must not cancel a live fetch already in flight.
func (e *Engine) run(loopCtx context.Context) {
	e.mu.Lock()
	rootCtx := e.rootCtx
	e.mu.Unlock()

	// Pause can land before this goroutine is scheduled; a loop that is
	// already canceled must not start a fresh tick.
	select {
	case <-loopCtx.Done():
		return
	default:
	}
	e.tick(rootCtx)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			e.tick(rootCtx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		observ.IncCounter("ticks_skipped_total", nil)
		e.log.Debug("tick skipped, previous tick still in flight")
		return
	}
	defer e.inFlight.Store(false)

	wallStart := time.Now()
	u := e.buildUniverse(ctx)

	// The live path runs on its own slower cadence. The attempt time is
	// recorded up front so a failing feed degrades to fallback ticks
	// instead of being hammered every tick.
	now := e.clock.Now()
	var liveSyms []marketdata.Symbol
	if len(u.live) > 0 && now.Sub(e.lastLiveFetch) >= e.cfg.LiveRefresh {
		liveSyms = u.live
		e.lastLiveFetch = now
	}

	prev := e.state.Current()
	prevPrices := prev.prices()

	prices, isLive := e.source.Resolve(ctx, u.symbols, liveSyms, prevPrices)

	next := Mix(prev, prices, isLive, e.clock.Now())
	triggered := EvaluateAlerts(prevPrices, prices, u.alerts)
	invUpdates := ProjectValuations(next, u.investments)
	comUpdates := ProjectValuations(next, u.commodities)

	e.state.Replace(next)

	e.applyAlerts(ctx, next, triggered)
	e.applyValuations(ctx, store.KindInvestment, invUpdates)
	e.applyValuations(ctx, store.KindCommodity, comUpdates)
	e.broadcast(next)

	observ.IncCounter("ticks_total", nil)
	observ.SetGauge("snapshot_symbols", float64(len(next.Points)), nil)
	live := 0.0
	if isLive {
		live = 1
	}
	observ.SetGauge("snapshot_live", live, nil)
	observ.RecordDuration("tick_duration", time.Since(wallStart), nil)
}

// universe is one tick's worth of tracked state, rederived from the
// store every tick so new rows are picked up without a restart.
type universe struct {
	symbols     []marketdata.Symbol
	live        []marketdata.Symbol // subset eligible for the live feed
	investments []store.Holding
	commodities []store.Holding
	alerts      []store.Alert
}

func (e *Engine) buildUniverse(ctx context.Context) universe {
	var u universe
	seen := make(map[marketdata.Symbol]bool)
	liveSeen := make(map[marketdata.Symbol]bool)

	add := func(raw string, liveEligible bool) {
		sym := marketdata.NormalizeSymbol(raw)
		if sym == "" {
			return
		}
		if !seen[sym] {
			seen[sym] = true
			u.symbols = append(u.symbols, sym)
		}
		if liveEligible && !liveSeen[sym] {
			liveSeen[sym] = true
			u.live = append(u.live, sym)
		}
	}

	inv, err := e.store.Holdings(ctx, store.KindInvestment)
	if err != nil {
		e.readFailed("investments", err)
	}
	u.investments = inv
	for _, h := range inv {
		add(h.Symbol, true)
	}

	// Commodity symbols (gold grams and the like) are not quotable on
	// the equity feed; they are priced by fallback only.
	com, err := e.store.Holdings(ctx, store.KindCommodity)
	if err != nil {
		e.readFailed("commodities", err)
	}
	u.commodities = com
	for _, h := range com {
		add(h.Symbol, false)
	}

	watch, err := e.store.Watchlist(ctx)
	if err != nil {
		e.readFailed("watchlist", err)
	}
	for _, w := range watch {
		add(w.Symbol, true)
	}

	alerts, err := e.store.ActiveAlerts(ctx)
	if err != nil {
		e.readFailed("alerts", err)
	}
	u.alerts = alerts
	for _, a := range alerts {
		add(a.Symbol, true)
	}

	sort.Strings(u.symbols)
	sort.Strings(u.live)
	return u
}

// readFailed logs a store read failure; the tick proceeds with what it
// has and the next tick rereads everything anyway.
func (e *Engine) readFailed(what string, err error) {
	observ.IncCounter("store_read_errors_total", map[string]string{"set": what})
	e.log.Warn("store read failed", zap.String("set", what), zap.Error(err))
}

func (e *Engine) applyAlerts(ctx context.Context, snap *Snapshot, triggered []store.Alert) {
	if len(triggered) == 0 {
		return
	}

	ids := make([]int64, 0, len(triggered))
	for _, a := range triggered {
		ids = append(ids, a.ID)
	}
	if err := e.store.MarkAlertsTriggered(ctx, ids, snap.GeneratedAt); err != nil {
		observ.IncCounter("store_write_errors_total", map[string]string{"set": "alerts"})
		e.log.Error("mark alerts triggered failed", zap.Int("count", len(ids)), zap.Error(err))
	}
	observ.IncCounterBy("alerts_triggered_total", nil, int64(len(triggered)))

	for _, a := range triggered {
		price, _ := snap.Price(marketdata.NormalizeSymbol(a.Symbol))
		e.log.Info("price alert triggered",
			zap.Int64("alert_id", a.ID),
			zap.String("symbol", a.Symbol),
			zap.Float64("target", a.TargetPrice),
			zap.Float64("price", price))
		if e.notifier != nil {
			e.notifier.Notify(a, price)
		}
	}
}

func (e *Engine) applyValuations(ctx context.Context, kind store.Kind, updates []store.ValueUpdate) {
	if len(updates) == 0 {
		return
	}
	if err := e.store.UpdateHoldingValues(ctx, kind, updates); err != nil {
		observ.IncCounter("store_write_errors_total", map[string]string{"set": string(kind)})
		e.log.Error("update holding values failed",
			zap.String("kind", string(kind)),
			zap.Int("count", len(updates)),
			zap.Error(err))
	}
}

func (e *Engine) broadcast(snap *Snapshot) {
	e.subMu.Lock()
	subs := make([]func(*Snapshot), len(e.subscribers))
	copy(subs, e.subscribers)
	e.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
