package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// Store is an in-process implementation of store.Store backed by maps.
// It serves tests and demo mode, where the daemon runs without a
// database. All reads return copies so callers never share slices with
// the store's internals.
type Store struct {
	mu        sync.RWMutex
	holdings  map[int64]*store.Holding
	alerts    map[int64]*store.Alert
	watchlist map[int64]*store.WatchEntry
	nextID    int64
}

func New() *Store {
	return &Store{
		holdings:  make(map[int64]*store.Holding),
		alerts:    make(map[int64]*store.Alert),
		watchlist: make(map[int64]*store.WatchEntry),
		nextID:    1,
	}
}

// AddHolding inserts a holding and returns its assigned id.
func (s *Store) AddHolding(symbol string, quantity float64, kind store.Kind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.holdings[id] = &store.Holding{
		ID:       id,
		Symbol:   symbol,
		Quantity: quantity,
		Kind:     kind,
	}
	return id
}

// AddAlert inserts an active alert and returns its assigned id.
func (s *Store) AddAlert(symbol string, target float64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.alerts[id] = &store.Alert{
		ID:          id,
		Symbol:      symbol,
		TargetPrice: target,
		Status:      store.AlertActive,
	}
	return id
}

// AddWatch inserts a watchlist entry and returns its assigned id.
func (s *Store) AddWatch(symbol string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.watchlist[id] = &store.WatchEntry{ID: id, Symbol: symbol}
	return id
}

func (s *Store) Holdings(ctx context.Context, kind store.Kind) ([]store.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Holding
	for _, h := range s.holdings {
		if h.Kind == kind {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (s *Store) Watchlist(ctx context.Context) ([]store.WatchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.WatchEntry
	for _, w := range s.watchlist {
		out = append(out, *w)
	}
	return out, nil
}

func (s *Store) ActiveAlerts(ctx context.Context) ([]store.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Alert
	for _, a := range s.alerts {
		if a.Status == store.AlertActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *Store) UpdateHoldingValues(ctx context.Context, kind store.Kind, updates []store.ValueUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		if h, ok := s.holdings[u.ID]; ok && h.Kind == kind {
			h.CurrentValue = u.Value
		}
	}
	return nil
}

func (s *Store) MarkAlertsTriggered(ctx context.Context, ids []int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if a, ok := s.alerts[id]; ok && a.Status == store.AlertActive {
			a.Status = store.AlertTriggered
			t := at
			a.TriggeredAt = &t
		}
	}
	return nil
}

// Holding returns a copy of one holding for inspection.
func (s *Store) Holding(id int64) (store.Holding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings[id]
	if !ok {
		return store.Holding{}, false
	}
	return *h, true
}

// Alert returns a copy of one alert for inspection.
func (s *Store) Alert(id int64) (store.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return store.Alert{}, false
	}
	out := *a
	if a.TriggeredAt != nil {
		t := *a.TriggeredAt
		out.TriggeredAt = &t
	}
	return out, true
}

func (s *Store) IsHealthy(ctx context.Context) bool { return true }

func (s *Store) Close() error { return nil }
