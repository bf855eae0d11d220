package marketdata

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestSourceResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("live prices win, gaps fall back", func(t *testing.T) {
		feed := &fakeFetcher{prices: map[Symbol]float64{"AAPL": 101.0}}
		src := NewSource(feed, NewSeededSimulator(1), zap.NewNop())

		prev := map[Symbol]float64{"AAPL": 100.0, "GOLD-G": 75.0}
		prices, isLive := src.Resolve(ctx, []Symbol{"AAPL", "GOLD-G"}, []Symbol{"AAPL"}, prev)

		if !isLive {
			t.Error("isLive = false, want true when live data arrived")
		}
		if prices["AAPL"] != 101.0 {
			t.Errorf("AAPL = %v, want live price 101.0", prices["AAPL"])
		}

		gold := prices["GOLD-G"]
		if gold <= 0 {
			t.Fatalf("GOLD-G = %v, want positive fallback price", gold)
		}
		if math.Abs(gold-75.0)/75.0 > 0.022 {
			t.Errorf("GOLD-G = %v, want a small walk from 75.0", gold)
		}
	})

	t.Run("feed failure degrades to fallback", func(t *testing.T) {
		feed := &fakeFetcher{err: errors.New("endpoint down")}
		src := NewSource(feed, NewSeededSimulator(2), zap.NewNop())

		prices, isLive := src.Resolve(ctx, []Symbol{"AAPL", "MSFT"}, []Symbol{"AAPL", "MSFT"}, nil)

		if isLive {
			t.Error("isLive = true, want false when the feed failed")
		}
		for sym, p := range prices {
			if p <= 0 {
				t.Errorf("%s = %v, want positive fallback price", sym, p)
			}
		}
		if len(prices) != 2 {
			t.Errorf("got %d prices, want 2", len(prices))
		}
	})

	t.Run("no live symbols skips the feed", func(t *testing.T) {
		feed := &fakeFetcher{prices: map[Symbol]float64{"AAPL": 101.0}}
		src := NewSource(feed, NewSeededSimulator(3), zap.NewNop())

		_, isLive := src.Resolve(ctx, []Symbol{"AAPL"}, nil, nil)

		if feed.calls() != 0 {
			t.Errorf("feed called %d times, want 0 for a throttled tick", feed.calls())
		}
		if isLive {
			t.Error("isLive = true, want false without a live attempt")
		}
	})

	t.Run("nil feed disables the live path", func(t *testing.T) {
		src := NewSource(nil, NewSeededSimulator(4), zap.NewNop())

		prices, isLive := src.Resolve(ctx, []Symbol{"AAPL"}, []Symbol{"AAPL"}, nil)

		if isLive {
			t.Error("isLive = true, want false with no feed configured")
		}
		if prices["AAPL"] != SeedPrice("AAPL") {
			t.Errorf("AAPL = %v, want seed price %v for first sighting", prices["AAPL"], SeedPrice("AAPL"))
		}
	})

	t.Run("partial live result still live", func(t *testing.T) {
		feed := &fakeFetcher{prices: map[Symbol]float64{"AAPL": 99.0}}
		src := NewSource(feed, NewSeededSimulator(5), zap.NewNop())

		prices, isLive := src.Resolve(ctx, []Symbol{"AAPL", "MSFT"}, []Symbol{"AAPL", "MSFT"}, nil)

		if !isLive {
			t.Error("isLive = false, want true for partial live data")
		}
		if prices["AAPL"] != 99.0 {
			t.Errorf("AAPL = %v, want live 99.0", prices["AAPL"])
		}
		if prices["MSFT"] <= 0 {
			t.Errorf("MSFT = %v, want positive fallback", prices["MSFT"])
		}
	})

	t.Run("unknown symbol seeds deterministically", func(t *testing.T) {
		src := NewSource(nil, NewSeededSimulator(6), zap.NewNop())

		prices, _ := src.Resolve(ctx, []Symbol{"NEWCO"}, nil, map[Symbol]float64{})
		if prices["NEWCO"] != SeedPrice("NEWCO") {
			t.Errorf("NEWCO = %v, want seed price %v", prices["NEWCO"], SeedPrice("NEWCO"))
		}
	})
}

// fakeFetcher is a scripted live feed for source tests.
type fakeFetcher struct {
	mu      sync.Mutex
	prices  map[Symbol]float64
	err     error
	fetches int
}

func (f *fakeFetcher) Fetch(ctx context.Context, symbols []Symbol) (map[Symbol]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[Symbol]float64)
	for _, sym := range symbols {
		if p, ok := f.prices[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}
