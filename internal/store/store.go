package store

import (
	"context"
	"time"
)

// Kind partitions holdings into the two asset groups the dashboard
// tracks. Valuation math is identical for both; the split exists
// because they live in separate tables and are updated separately.
type Kind string

const (
	KindInvestment Kind = "investment"
	KindCommodity  Kind = "commodity"
)

// Alert statuses. An alert leaves Active at most once; resetting it is
// a CRUD-layer concern, not the engine's.
const (
	AlertActive    = "active"
	AlertTriggered = "triggered"
)

// Holding is a priced position. The engine reads Symbol and Quantity
// and writes back CurrentValue; everything else belongs to the CRUD
// layer.
type Holding struct {
	ID           int64
	Symbol       string
	Quantity     float64
	CurrentValue float64
	Kind         Kind
}

// Alert is a user-defined price threshold watch. TriggeredAt is set
// once, when the alert leaves Active.
type Alert struct {
	ID          int64
	Symbol      string
	TargetPrice float64
	Status      string
	TriggeredAt *time.Time
}

// WatchEntry is a symbol tracked for display only, with no position.
type WatchEntry struct {
	ID     int64
	Symbol string
}

// ValueUpdate is one holding's recomputed current value.
type ValueUpdate struct {
	ID    int64
	Value float64
}

// Store is the persistence boundary of the engine. Reads happen once
// per tick; writes are batched and idempotent, so a failed write is
// simply retried by the next tick's recomputation.
type Store interface {
	Holdings(ctx context.Context, kind Kind) ([]Holding, error)
	Watchlist(ctx context.Context) ([]WatchEntry, error)
	ActiveAlerts(ctx context.Context) ([]Alert, error)

	UpdateHoldingValues(ctx context.Context, kind Kind, updates []ValueUpdate) error
	MarkAlertsTriggered(ctx context.Context, ids []int64, at time.Time) error

	IsHealthy(ctx context.Context) bool
	Close() error
}
