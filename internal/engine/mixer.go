package engine

import (
	"time"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
)

// Mix builds the new snapshot from the previous one and this tick's
// resolved prices. Pure and deterministic: no I/O, no randomness, so
// the delta math is directly unit-testable.
//
// A symbol absent from prev gets change 0 (old price defaults to the
// new price). A zero or missing old price yields changePercent 0
// rather than dividing by zero.
func Mix(prev *Snapshot, prices map[marketdata.Symbol]float64, isLive bool, at time.Time) *Snapshot {
	points := make(map[marketdata.Symbol]PricePoint, len(prices))

	for sym, newPrice := range prices {
		oldPrice := newPrice
		if prev != nil {
			if p, ok := prev.Points[sym]; ok {
				oldPrice = p.Price
			}
		}

		change := newPrice - oldPrice
		changePercent := 0.0
		if oldPrice != 0 {
			changePercent = change / oldPrice * 100
		}

		points[sym] = PricePoint{
			Price:         newPrice,
			Change:        change,
			ChangePercent: changePercent,
		}
	}

	return &Snapshot{
		Points:      points,
		IsLive:      isLive,
		GeneratedAt: at,
	}
}
