package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Engine struct {
	TickIntervalMs  int  `yaml:"tick_interval_ms"`
	LiveRefreshMs   int  `yaml:"live_refresh_ms"`
	StartPaused     bool `yaml:"start_paused"`
	SuspendWhenIdle bool `yaml:"suspend_when_idle"` // pause when the last stream client leaves
}

type Feed struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"base_url"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	BatchSize       int    `yaml:"batch_size"`
	MaxRetries      int    `yaml:"max_retries"`
	BackoffBaseMs   int    `yaml:"backoff_base_ms"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

type Store struct {
	Driver string `yaml:"driver"` // postgres | memory
	DSN    string `yaml:"dsn"`
}

type SeedHolding struct {
	Symbol   string  `yaml:"symbol"`
	Quantity float64 `yaml:"quantity"`
}

type SeedAlert struct {
	Symbol string  `yaml:"symbol"`
	Target float64 `yaml:"target"`
}

// Seed populates the memory store so the daemon runs end-to-end
// without a database.
type Seed struct {
	Investments []SeedHolding `yaml:"investments"`
	Commodities []SeedHolding `yaml:"commodities"`
	Watchlist   []string      `yaml:"watchlist"`
	Alerts      []SeedAlert   `yaml:"alerts"`
}

type Webhook struct {
	Enabled                  bool   `yaml:"enabled"`
	URL                      string `yaml:"url"`
	Channel                  string `yaml:"channel"`
	RateLimitPerMin          int    `yaml:"rate_limit_per_min"`
	RateLimitPerSymbolPerMin int    `yaml:"rate_limit_per_symbol_per_min"`
	DedupeWindowSecs         int    `yaml:"dedupe_window_seconds"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type Root struct {
	Env     string  `yaml:"env"` // development | production
	Engine  Engine  `yaml:"engine"`
	Feed    Feed    `yaml:"feed"`
	Store   Store   `yaml:"store"`
	Seed    Seed    `yaml:"seed"`
	Webhook Webhook `yaml:"webhook"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// overrides are secrets and deploy-specific values bound from the
// environment (prefix WEALTH_) after the file is parsed, so DSNs and
// webhook URLs stay out of the config file.
type overrides struct {
	StoreDSN   string `envconfig:"STORE_DSN"`
	WebhookURL string `envconfig:"WEBHOOK_URL"`
	FeedURL    string `envconfig:"FEED_URL"`
	ServerAddr string `envconfig:"SERVER_ADDR"`
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := applyEnv(&c); err != nil {
		return c, err
	}
	return c, nil
}

func applyDefaults(c *Root) {
	if c.Env == "" {
		c.Env = "development"
	}

	// Engine cadences: fast fallback refresh, slow live refresh.
	if c.Engine.TickIntervalMs == 0 {
		c.Engine.TickIntervalMs = 6000
	}
	if c.Engine.LiveRefreshMs == 0 {
		c.Engine.LiveRefreshMs = 60000
	}

	// Feed defaults sized for the public quote endpoint.
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	}
	if c.Feed.TimeoutMs == 0 {
		c.Feed.TimeoutMs = 5000
	}
	if c.Feed.BatchSize == 0 {
		c.Feed.BatchSize = 40
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = 2
	}
	if c.Feed.BackoffBaseMs == 0 {
		c.Feed.BackoffBaseMs = 200
	}
	if c.Feed.RateLimitPerMin == 0 {
		c.Feed.RateLimitPerMin = 30
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}

	if c.Webhook.RateLimitPerMin == 0 {
		c.Webhook.RateLimitPerMin = 10
	}
	if c.Webhook.RateLimitPerSymbolPerMin == 0 {
		c.Webhook.RateLimitPerSymbolPerMin = 3
	}
	if c.Webhook.DedupeWindowSecs == 0 {
		c.Webhook.DedupeWindowSecs = 60
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 14
	}
}

func applyEnv(c *Root) error {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	var o overrides
	if err := envconfig.Process("wealth", &o); err != nil {
		return fmt.Errorf("process env overrides: %w", err)
	}
	if o.StoreDSN != "" {
		c.Store.DSN = o.StoreDSN
	}
	if o.WebhookURL != "" {
		c.Webhook.URL = o.WebhookURL
		c.Webhook.Enabled = true
	}
	if o.FeedURL != "" {
		c.Feed.BaseURL = o.FeedURL
	}
	if o.ServerAddr != "" {
		c.Server.Addr = o.ServerAddr
	}
	return nil
}
