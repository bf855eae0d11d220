package marketdata

import (
	"errors"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want Symbol
	}{
		{"aapl", "AAPL"},
		{" msft ", "MSFT"},
		{"GOLD-G", "GOLD-G"},
		{"  ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateQuote(t *testing.T) {
	tests := []struct {
		name    string
		quote   *Quote
		wantErr bool
	}{
		{
			name:    "valid quote",
			quote:   &Quote{Symbol: "AAPL", Price: 187.32},
			wantErr: false,
		},
		{
			name:    "nil quote",
			quote:   nil,
			wantErr: true,
		},
		{
			name:    "empty symbol",
			quote:   &Quote{Symbol: "  ", Price: 10},
			wantErr: true,
		},
		{
			name:    "zero price",
			quote:   &Quote{Symbol: "AAPL", Price: 0},
			wantErr: true,
		},
		{
			name:    "negative price",
			quote:   &Quote{Symbol: "AAPL", Price: -4.2},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuote(tt.quote)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuote() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	t.Run("normalizes in place", func(t *testing.T) {
		q := &Quote{Symbol: " aapl ", Price: 100}
		if err := ValidateQuote(q); err != nil {
			t.Fatalf("ValidateQuote() error = %v", err)
		}
		if q.Symbol != "AAPL" {
			t.Errorf("Symbol = %q, want AAPL", q.Symbol)
		}
	})
}

func TestQuoteError(t *testing.T) {
	cause := errors.New("connection refused")
	netErr := NewNetworkError("AAPL", "request failed", cause)

	if !netErr.Retryable() {
		t.Error("network error should be retryable")
	}
	if !errors.Is(netErr, cause) {
		t.Error("expected cause to unwrap")
	}

	for _, e := range []*QuoteError{
		NewRateLimitError("AAPL", "too many requests"),
		NewProviderError("AAPL", "HTTP 500", nil),
		NewBadSymbolError("NOPE", "unknown symbol"),
	} {
		if e.Retryable() {
			t.Errorf("%s error should not be retryable", e.Type)
		}
		if e.Error() == "" {
			t.Errorf("%s error has empty message", e.Type)
		}
	}
}
