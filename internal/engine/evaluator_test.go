package engine

import (
	"testing"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

func TestCrossed(t *testing.T) {
	tests := []struct {
		name   string
		old    float64
		new    float64
		target float64
		want   bool
	}{
		{"rises through", 95, 105, 100, true},
		{"falls through", 105, 95, 100, true},
		{"lands exactly on target", 95, 100, 100, true},
		{"leaves from target", 100, 105, 100, true},
		{"resting on target", 100, 100, 100, true},
		{"stays above", 102, 105, 100, false},
		{"stays below", 95, 98, 100, false},
		{"unchanged above", 105, 105, 100, false},
		{"unchanged below", 95, 95, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := crossed(tt.old, tt.new, tt.target); got != tt.want {
				t.Errorf("crossed(%v, %v, %v) = %v, want %v", tt.old, tt.new, tt.target, got, tt.want)
			}
		})
	}
}

func TestEvaluateAlerts(t *testing.T) {
	old := map[marketdata.Symbol]float64{"AAPL": 95.0, "MSFT": 400.0}
	new := map[marketdata.Symbol]float64{"AAPL": 105.0, "MSFT": 401.0}

	t.Run("crossing triggers", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 1, Symbol: "AAPL", TargetPrice: 100.0, Status: store.AlertActive},
		}
		got := EvaluateAlerts(old, new, alerts)
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("triggered = %v, want alert 1", got)
		}
	})

	t.Run("no crossing no trigger", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 2, Symbol: "MSFT", TargetPrice: 500.0, Status: store.AlertActive},
		}
		if got := EvaluateAlerts(old, new, alerts); len(got) != 0 {
			t.Errorf("triggered = %v, want none", got)
		}
	})

	t.Run("multiple alerts per symbol fire independently", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 1, Symbol: "AAPL", TargetPrice: 98.0, Status: store.AlertActive},
			{ID: 2, Symbol: "AAPL", TargetPrice: 102.0, Status: store.AlertActive},
			{ID: 3, Symbol: "AAPL", TargetPrice: 120.0, Status: store.AlertActive},
		}
		got := EvaluateAlerts(old, new, alerts)
		if len(got) != 2 {
			t.Fatalf("triggered %d alerts, want 2 (both targets inside the move)", len(got))
		}
		ids := map[int64]bool{}
		for _, a := range got {
			ids[a.ID] = true
		}
		if !ids[1] || !ids[2] {
			t.Errorf("triggered ids = %v, want 1 and 2", ids)
		}
	})

	t.Run("duplicate ids reported once", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 7, Symbol: "AAPL", TargetPrice: 100.0, Status: store.AlertActive},
			{ID: 7, Symbol: "AAPL", TargetPrice: 100.0, Status: store.AlertActive},
		}
		if got := EvaluateAlerts(old, new, alerts); len(got) != 1 {
			t.Errorf("triggered %d alerts, want 1 after dedup", len(got))
		}
	})

	t.Run("unpriced symbol skipped", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 4, Symbol: "NOPRICE", TargetPrice: 10.0, Status: store.AlertActive},
		}
		if got := EvaluateAlerts(old, new, alerts); len(got) != 0 {
			t.Errorf("triggered = %v, want none for unpriced symbol", got)
		}
	})

	t.Run("no history defaults old to new", func(t *testing.T) {
		newOnly := map[marketdata.Symbol]float64{"FRESH": 100.0}
		alerts := []store.Alert{
			{ID: 5, Symbol: "FRESH", TargetPrice: 100.0, Status: store.AlertActive},
			{ID: 6, Symbol: "FRESH", TargetPrice: 90.0, Status: store.AlertActive},
		}
		got := EvaluateAlerts(map[marketdata.Symbol]float64{}, newOnly, alerts)
		if len(got) != 1 || got[0].ID != 5 {
			t.Errorf("triggered = %v, want only the alert sitting exactly on the price", got)
		}
	})

	t.Run("symbol case folded", func(t *testing.T) {
		alerts := []store.Alert{
			{ID: 8, Symbol: "aapl", TargetPrice: 100.0, Status: store.AlertActive},
		}
		if got := EvaluateAlerts(old, new, alerts); len(got) != 1 {
			t.Errorf("triggered = %v, want lowercase symbol to match", got)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if got := EvaluateAlerts(nil, nil, nil); len(got) != 0 {
			t.Errorf("triggered = %v, want none", got)
		}
	})
}
