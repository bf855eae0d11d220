package marketdata

import (
	"fmt"
	"strings"
	"time"
)

// Symbol is a case-normalized instrument identifier. It keys all
// per-tick state, so every entry point normalizes before use.
type Symbol = string

// NormalizeSymbol upper-cases and trims an instrument identifier.
func NormalizeSymbol(s string) Symbol {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Quote is a single live price as returned by the feed.
type Quote struct {
	Symbol    Symbol    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateQuote normalizes the symbol and rejects quotes the engine
// must never propagate (fail closed: a bad price is dropped, not fixed).
func ValidateQuote(q *Quote) error {
	if q == nil {
		return fmt.Errorf("quote is nil")
	}
	q.Symbol = NormalizeSymbol(q.Symbol)
	if q.Symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	if q.Price <= 0 {
		return fmt.Errorf("non-positive price %.4f for %s", q.Price, q.Symbol)
	}
	return nil
}

// QuoteError classifies live-feed failures so callers can decide what
// is retryable without string-matching messages.
type QuoteError struct {
	Type    string // "network", "rate_limit", "provider_error", "bad_symbol"
	Symbol  string
	Message string
	Cause   error
}

func (e *QuoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *QuoteError) Unwrap() error { return e.Cause }

// Retryable reports whether a failure is worth retrying within the
// same fetch; only transient network failures qualify.
func (e *QuoteError) Retryable() bool {
	return e.Type == "network"
}

func NewNetworkError(symbol, message string, cause error) *QuoteError {
	return &QuoteError{Type: "network", Symbol: symbol, Message: message, Cause: cause}
}

func NewRateLimitError(symbol, message string) *QuoteError {
	return &QuoteError{Type: "rate_limit", Symbol: symbol, Message: message}
}

func NewProviderError(symbol, message string, cause error) *QuoteError {
	return &QuoteError{Type: "provider_error", Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(symbol, message string) *QuoteError {
	return &QuoteError{Type: "bad_symbol", Symbol: symbol, Message: message}
}
