package engine

import (
	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// ProjectValuations maps the snapshot's prices onto held quantities.
// One update per holding whose symbol has a price this tick; a holding
// with no resolved price produces no update at all (its stored value
// stays as-is rather than being zeroed). No rounding here; formatting
// is a presentation concern.
func ProjectValuations(snap *Snapshot, holdings []store.Holding) []store.ValueUpdate {
	var updates []store.ValueUpdate
	for _, h := range holdings {
		price, ok := snap.Price(marketdata.NormalizeSymbol(h.Symbol))
		if !ok {
			continue
		}
		updates = append(updates, store.ValueUpdate{
			ID:    h.ID,
			Value: price * h.Quantity,
		})
	}
	return updates
}
