package engine

import (
	"testing"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

func TestProjectValuations(t *testing.T) {
	snap := &Snapshot{Points: map[marketdata.Symbol]PricePoint{
		"AAPL":   {Price: 52.5},
		"GOLD-G": {Price: 64.0},
	}}

	t.Run("price times quantity", func(t *testing.T) {
		holdings := []store.Holding{
			{ID: 1, Symbol: "AAPL", Quantity: 10},
		}
		got := ProjectValuations(snap, holdings)
		if len(got) != 1 {
			t.Fatalf("got %d updates, want 1", len(got))
		}
		if got[0].ID != 1 || got[0].Value != 525.0 {
			t.Errorf("update = %+v, want id 1 value 525.0", got[0])
		}
	})

	t.Run("unpriced holding produces no update", func(t *testing.T) {
		holdings := []store.Holding{
			{ID: 1, Symbol: "AAPL", Quantity: 10},
			{ID: 2, Symbol: "UNPRICED", Quantity: 5},
		}
		got := ProjectValuations(snap, holdings)
		if len(got) != 1 {
			t.Fatalf("got %d updates, want 1 (unpriced skipped, not zeroed)", len(got))
		}
		if got[0].ID != 1 {
			t.Errorf("update = %+v, want only holding 1", got[0])
		}
	})

	t.Run("symbol case folded", func(t *testing.T) {
		holdings := []store.Holding{
			{ID: 3, Symbol: "gold-g", Quantity: 2},
		}
		got := ProjectValuations(snap, holdings)
		if len(got) != 1 || got[0].Value != 128.0 {
			t.Errorf("updates = %v, want 128.0 for lowercase symbol", got)
		}
	})

	t.Run("no holdings", func(t *testing.T) {
		if got := ProjectValuations(snap, nil); len(got) != 0 {
			t.Errorf("updates = %v, want none", got)
		}
	})
}
