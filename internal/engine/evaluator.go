package engine

import (
	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// EvaluateAlerts returns the active alerts whose targets were crossed
// between the old and new prices, each alert id at most once.
//
// Alerts are grouped per symbol into a multimap so several alerts on
// one symbol stay independent: N alerts crossed in the same tick yield
// N triggers. A symbol with no new price is skipped; a symbol with no
// old price uses the new price as its old price, matching the mixer.
func EvaluateAlerts(oldPrices, newPrices map[marketdata.Symbol]float64, alerts []store.Alert) []store.Alert {
	bySymbol := make(map[marketdata.Symbol][]store.Alert)
	for _, a := range alerts {
		sym := marketdata.NormalizeSymbol(a.Symbol)
		bySymbol[sym] = append(bySymbol[sym], a)
	}

	seen := make(map[int64]bool)
	var triggered []store.Alert

	for sym, group := range bySymbol {
		newPrice, ok := newPrices[sym]
		if !ok {
			continue
		}
		oldPrice, ok := oldPrices[sym]
		if !ok {
			oldPrice = newPrice
		}

		for _, a := range group {
			if !crossed(oldPrice, newPrice, a.TargetPrice) {
				continue
			}
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			triggered = append(triggered, a)
		}
	}

	return triggered
}

// crossed reports whether the price path [old -> new] touched or
// crossed target from either side. Boundaries are inclusive, so a path
// landing exactly on target counts, including old == new == target. A
// price resting strictly on one side of target never matches.
func crossed(old, new, target float64) bool {
	return (new >= target && old <= target) || (new <= target && old >= target)
}
