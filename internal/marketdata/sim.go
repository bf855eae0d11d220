package marketdata

import (
	"math"
	"math/rand"
	"time"
)

// minSimPrice is the floor for simulated prices; the walk below can go
// negative on paper but a published price must stay strictly positive.
const minSimPrice = 0.01

// Simulator produces fallback prices when the live feed is throttled or
// unavailable: a deterministic seed price for symbols never priced
// before, and a small percentage random walk for symbols with a prior
// price. The walk's mean is slightly negative so long fallback stretches
// drift down instead of compounding upward.
type Simulator struct {
	random *rand.Rand
}

// NewSimulator creates a simulator with a time-seeded walk.
func NewSimulator() *Simulator {
	return NewSeededSimulator(time.Now().UnixNano())
}

// NewSeededSimulator creates a simulator with a fixed walk seed, for
// reproducible runs.
func NewSeededSimulator(seed int64) *Simulator {
	return &Simulator{
		random: rand.New(rand.NewSource(seed)),
	}
}

// SeedPrice maps a symbol into the 50-500 price band using an
// order-dependent string hash. Same symbol, same price, across process
// restarts and with no prior state.
func SeedPrice(symbol Symbol) float64 {
	var h uint32
	for _, ch := range symbol {
		h = h*31 + uint32(ch)
	}
	return 50 + float64(h%45000)/100
}

// Next returns the fallback price for symbol given its previous price.
// Pass prev <= 0 for a symbol with no prior price.
func (s *Simulator) Next(symbol Symbol, prev float64) float64 {
	if prev <= 0 {
		return SeedPrice(symbol)
	}

	// Walk in [-2.08%, +1.92%]: s.random.Float64() is uniform in [0,1),
	// the 0.52 offset biases the mean slightly negative.
	pct := (s.random.Float64() - 0.52) * 0.04
	price := roundToTick(prev*(1+pct), tickSize(prev))
	if price < minSimPrice {
		price = minSimPrice
	}
	return price
}

// tickSize returns the quote precision for a price level.
func tickSize(price float64) float64 {
	if price >= 1.00 {
		return 0.01
	}
	return 0.0001
}

func roundToTick(price, tick float64) float64 {
	return math.Round(price/tick) * tick
}
