package engine

import (
	"testing"
	"time"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
)

func TestMix(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("delta against previous tick", func(t *testing.T) {
		prev := &Snapshot{Points: map[marketdata.Symbol]PricePoint{
			"AAPL": {Price: 100.0},
			"MSFT": {Price: 400.0},
		}}
		prices := map[marketdata.Symbol]float64{"AAPL": 105.0, "MSFT": 390.0}

		snap := Mix(prev, prices, true, at)

		aapl := snap.Points["AAPL"]
		if aapl.Price != 105.0 || aapl.Change != 5.0 || aapl.ChangePercent != 5.0 {
			t.Errorf("AAPL = %+v, want price 105 change 5 pct 5", aapl)
		}

		msft := snap.Points["MSFT"]
		if msft.Change != -10.0 || msft.ChangePercent != -2.5 {
			t.Errorf("MSFT = %+v, want change -10 pct -2.5", msft)
		}

		if !snap.IsLive {
			t.Error("IsLive not carried")
		}
		if !snap.GeneratedAt.Equal(at) {
			t.Errorf("GeneratedAt = %v, want %v", snap.GeneratedAt, at)
		}
	})

	t.Run("first sighting has zero delta", func(t *testing.T) {
		prev := &Snapshot{Points: map[marketdata.Symbol]PricePoint{}}
		snap := Mix(prev, map[marketdata.Symbol]float64{"NEWCO": 88.0}, false, at)

		p := snap.Points["NEWCO"]
		if p.Price != 88.0 || p.Change != 0 || p.ChangePercent != 0 {
			t.Errorf("NEWCO = %+v, want price 88 and zero deltas", p)
		}
	})

	t.Run("nil previous snapshot", func(t *testing.T) {
		snap := Mix(nil, map[marketdata.Symbol]float64{"AAPL": 100.0}, false, at)
		if p := snap.Points["AAPL"]; p.Change != 0 || p.ChangePercent != 0 {
			t.Errorf("AAPL = %+v, want zero deltas with no history", p)
		}
	})

	t.Run("zero old price guards division", func(t *testing.T) {
		prev := &Snapshot{Points: map[marketdata.Symbol]PricePoint{
			"X": {Price: 0},
		}}
		snap := Mix(prev, map[marketdata.Symbol]float64{"X": 10.0}, false, at)

		p := snap.Points["X"]
		if p.Change != 10.0 {
			t.Errorf("Change = %v, want 10", p.Change)
		}
		if p.ChangePercent != 0 {
			t.Errorf("ChangePercent = %v, want 0 when old price is zero", p.ChangePercent)
		}
	})

	t.Run("dropped symbols vanish", func(t *testing.T) {
		prev := &Snapshot{Points: map[marketdata.Symbol]PricePoint{
			"AAPL": {Price: 100.0},
			"GONE": {Price: 50.0},
		}}
		snap := Mix(prev, map[marketdata.Symbol]float64{"AAPL": 101.0}, false, at)

		if _, ok := snap.Points["GONE"]; ok {
			t.Error("symbol no longer tracked should not appear in the new snapshot")
		}
		if len(snap.Points) != 1 {
			t.Errorf("got %d points, want 1", len(snap.Points))
		}
	})

	t.Run("does not mutate previous", func(t *testing.T) {
		prev := &Snapshot{Points: map[marketdata.Symbol]PricePoint{
			"AAPL": {Price: 100.0},
		}}
		Mix(prev, map[marketdata.Symbol]float64{"AAPL": 200.0}, false, at)

		if prev.Points["AAPL"].Price != 100.0 {
			t.Error("Mix mutated the previous snapshot")
		}
	})
}
