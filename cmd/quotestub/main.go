package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
)

// quotestub is a local stand-in for the public quote endpoint: same
// envelope, deterministic base prices, plus fault injection for
// exercising the engine's degraded paths by hand.
//
//	go run ./cmd/quotestub -addr :8091
//	curl 'localhost:8091/v7/finance/quote?symbols=AAPL,MSFT'
//	curl 'localhost:8091/v7/finance/quote?symbols=AAPL&fail=500'

type quoteEntry struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
}

type quotePayload struct {
	QuoteResponse struct {
		Result []quoteEntry `json:"result"`
		Error  any          `json:"error"`
	} `json:"quoteResponse"`
}

func main() {
	addr := flag.String("addr", ":8091", "listen address")
	jitterPct := flag.Float64("jitter", 0.5, "max percent wobble per request")
	flag.Parse()

	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/v7/finance/quote", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "GET only", http.StatusMethodNotAllowed)
			return
		}

		switch r.URL.Query().Get("fail") {
		case "500":
			http.Error(w, "injected server error", http.StatusInternalServerError)
			return
		case "429":
			http.Error(w, "injected rate limit", http.StatusTooManyRequests)
			return
		case "slow":
			time.Sleep(3 * time.Second)
		case "garbage":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"quoteResponse": [broken`))
			return
		}

		symbols := strings.Split(r.URL.Query().Get("symbols"), ",")
		var payload quotePayload
		payload.QuoteResponse.Result = []quoteEntry{}
		for _, raw := range symbols {
			sym := marketdata.NormalizeSymbol(raw)
			if sym == "" {
				continue
			}
			base := marketdata.SeedPrice(sym)
			wobble := (random.Float64()*2 - 1) * (*jitterPct / 100)
			payload.QuoteResponse.Result = append(payload.QuoteResponse.Result, quoteEntry{
				Symbol:             sym,
				RegularMarketPrice: base * (1 + wobble),
			})
		}

		log.Printf("quote request for %d symbols", len(payload.QuoteResponse.Result))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})

	log.Printf("quote stub listening on %s", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
