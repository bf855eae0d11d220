package marketdata

import (
	"context"

	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
)

// Fetcher is the live-quote dependency of Source.
type Fetcher interface {
	Fetch(ctx context.Context, symbols []Symbol) (map[Symbol]float64, error)
}

// Source resolves a best-effort price for every requested symbol: live
// quotes for the symbols the caller permits this tick, deterministic
// fallback for everything else. Resolve never fails; any live-path
// error degrades to fallback pricing for the affected symbols.
type Source struct {
	feed Fetcher // nil disables the live path entirely
	sim  *Simulator
	log  *zap.Logger
}

func NewSource(feed Fetcher, sim *Simulator, log *zap.Logger) *Source {
	return &Source{feed: feed, sim: sim, log: log}
}

// Resolve prices all of symbols. liveSymbols is the subset to attempt
// against the feed (empty when the tick is throttled to fallback);
// prev carries the previous tick's prices for the fallback walk. The
// returned flag reports whether any live price was actually obtained.
func (s *Source) Resolve(ctx context.Context, symbols, liveSymbols []Symbol, prev map[Symbol]float64) (map[Symbol]float64, bool) {
	prices := make(map[Symbol]float64, len(symbols))
	isLive := false

	if s.feed != nil && len(liveSymbols) > 0 {
		observ.IncCounter("live_fetch_total", nil)
		live, err := s.feed.Fetch(ctx, liveSymbols)
		if err != nil {
			observ.IncCounter("live_fetch_failures_total", nil)
			s.log.Warn("live fetch failed, falling back for all symbols", zap.Error(err))
		}
		for sym, price := range live {
			prices[sym] = price
		}
		isLive = len(live) > 0
	}

	for _, sym := range symbols {
		if _, ok := prices[sym]; ok {
			continue
		}
		prices[sym] = s.sim.Next(sym, prev[sym])
	}

	return prices, isLive
}
