package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
)

// FeedConfig holds settings for the live quote endpoint.
type FeedConfig struct {
	BaseURL         string
	TimeoutMs       int
	BatchSize       int
	MaxRetries      int
	BackoffBaseMs   int
	RateLimitPerMin int
}

// FeedClient fetches live quotes over HTTP. Symbols are comma-joined
// into batches so one request covers many instruments; batches fan out
// concurrently and fail independently.
type FeedClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	batchSize   int
	maxRetries  int
	backoffBase time.Duration
	log         *zap.Logger
}

func NewFeedClient(cfg FeedConfig, log *zap.Logger) *FeedClient {
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = 5000
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > 40 {
		cfg.BatchSize = 40
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = 200
	}
	if cfg.RateLimitPerMin <= 0 {
		cfg.RateLimitPerMin = 30
	}

	return &FeedClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		// Burst covers one tick's batch fan-out so concurrent batches
		// are not serialized by the limiter.
		rateLimiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMin)/60), 5),
		batchSize:   cfg.BatchSize,
		maxRetries:  cfg.MaxRetries,
		backoffBase: time.Duration(cfg.BackoffBaseMs) * time.Millisecond,
		log:         log,
	}
}

// Fetch resolves live prices for the given symbols. Batches that fail
// are dropped from the result; an error is returned only when every
// batch failed, so callers can distinguish "partial live data" from
// "no live data at all".
func (f *FeedClient) Fetch(ctx context.Context, symbols []Symbol) (map[Symbol]float64, error) {
	if len(symbols) == 0 {
		return map[Symbol]float64{}, nil
	}

	batches := f.partition(symbols)

	var (
		mu      sync.Mutex
		merged  = make(map[Symbol]float64, len(symbols))
		lastErr error
		failed  int
	)

	var wg sync.WaitGroup
	for _, batch := range batches {
		wg.Add(1)
		go func(batch []Symbol) {
			defer wg.Done()
			prices, err := f.fetchBatch(ctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				lastErr = err
				observ.IncCounter("feed_batch_errors_total", nil)
				f.log.Warn("quote batch failed",
					zap.Int("symbols", len(batch)),
					zap.Error(err))
				return
			}
			for sym, price := range prices {
				merged[sym] = price
			}
		}(batch)
	}
	wg.Wait()

	observ.IncCounterBy("feed_batches_total", nil, int64(len(batches)))

	if len(merged) == 0 && failed > 0 {
		return nil, fmt.Errorf("all %d quote batches failed: %w", failed, lastErr)
	}
	return merged, nil
}

// Close releases client resources. The HTTP client holds no persistent
// connections worth draining, so this is a no-op kept for symmetry.
func (f *FeedClient) Close() error {
	return nil
}

func (f *FeedClient) partition(symbols []Symbol) [][]Symbol {
	var batches [][]Symbol
	for start := 0; start < len(symbols); start += f.batchSize {
		end := start + f.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batches = append(batches, symbols[start:end])
	}
	return batches
}

func (f *FeedClient) fetchBatch(ctx context.Context, symbols []Symbol) (map[Symbol]float64, error) {
	if err := f.rateLimiter.Wait(ctx); err != nil {
		return nil, NewNetworkError("", "rate limit wait cancelled", err)
	}

	params := url.Values{"symbols": {strings.Join(symbols, ",")}}
	requestURL := f.baseURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewNetworkError("", "fetch cancelled", ctx.Err())
			case <-time.After(f.backoffBase * (1 << (attempt - 1))):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, NewNetworkError("", "failed to create request", err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = NewNetworkError("", "request failed", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, NewRateLimitError("", "quote endpoint rate limit exceeded")
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, NewProviderError("", fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body)), nil)
		}

		prices, err := parseQuotePayload(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return prices, nil
	}

	return nil, lastErr
}

// parseQuotePayload decodes the quote endpoint envelope, keeping only
// entries that validate. Invalid entries are dropped rather than
// failing the batch.
func parseQuotePayload(body io.Reader) (map[Symbol]float64, error) {
	var payload struct {
		QuoteResponse struct {
			Result []struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"quoteResponse"`
	}

	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, NewProviderError("", "failed to parse response", err)
	}
	if e := payload.QuoteResponse.Error; e != nil {
		return nil, NewProviderError("", fmt.Sprintf("%s: %s", e.Code, e.Description), nil)
	}

	prices := make(map[Symbol]float64, len(payload.QuoteResponse.Result))
	for _, entry := range payload.QuoteResponse.Result {
		q := Quote{Symbol: entry.Symbol, Price: entry.RegularMarketPrice}
		if err := ValidateQuote(&q); err != nil {
			continue
		}
		prices[q.Symbol] = q.Price
	}
	return prices, nil
}
