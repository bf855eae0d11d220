package engine

import (
	"sync/atomic"
	"time"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
)

// PricePoint is one symbol's price as of the current tick. Change and
// ChangePercent compare against the immediately preceding tick, not any
// longer-term baseline.
type PricePoint struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// Snapshot is the full price picture produced by one tick. It is
// immutable once published: every tick builds a fresh snapshot and
// swaps it in wholesale.
type Snapshot struct {
	Points      map[marketdata.Symbol]PricePoint `json:"points"`
	IsLive      bool                             `json:"isLive"`
	GeneratedAt time.Time                        `json:"generatedAt"`
}

// Price returns a symbol's current price and whether it is present.
func (s *Snapshot) Price(sym marketdata.Symbol) (float64, bool) {
	p, ok := s.Points[sym]
	return p.Price, ok
}

// prices flattens the snapshot for the next tick's inputs.
func (s *Snapshot) prices() map[marketdata.Symbol]float64 {
	out := make(map[marketdata.Symbol]float64, len(s.Points))
	for sym, p := range s.Points {
		out[sym] = p.Price
	}
	return out
}

// State holds the current snapshot behind an atomic pointer. The tick
// path is the single writer; HTTP handlers and the stream hub read
// concurrently and always see a complete snapshot, never a partially
// updated one.
type State struct {
	current atomic.Pointer[Snapshot]
}

func NewState() *State {
	s := &State{}
	s.current.Store(&Snapshot{Points: map[marketdata.Symbol]PricePoint{}})
	return s
}

// Current returns the latest published snapshot. Callers must treat it
// as read-only.
func (s *State) Current() *Snapshot {
	return s.current.Load()
}

// Replace publishes a new snapshot in a single reference swap.
func (s *State) Replace(snap *Snapshot) {
	s.current.Store(snap)
}
