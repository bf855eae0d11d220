package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/alerts"
	"github.com/Rajchodisetti/wealth-dashboard/internal/config"
	"github.com/Rajchodisetti/wealth-dashboard/internal/engine"
	"github.com/Rajchodisetti/wealth-dashboard/internal/logging"
	"github.com/Rajchodisetti/wealth-dashboard/internal/marketdata"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store/memory"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store/postgres"
	"github.com/Rajchodisetti/wealth-dashboard/internal/transport"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Env, cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.Close()

	var feed marketdata.Fetcher
	if cfg.Feed.Enabled {
		feed = marketdata.NewFeedClient(marketdata.FeedConfig{
			BaseURL:         cfg.Feed.BaseURL,
			TimeoutMs:       cfg.Feed.TimeoutMs,
			BatchSize:       cfg.Feed.BatchSize,
			MaxRetries:      cfg.Feed.MaxRetries,
			BackoffBaseMs:   cfg.Feed.BackoffBaseMs,
			RateLimitPerMin: cfg.Feed.RateLimitPerMin,
		}, log.Named("feed"))
	}
	source := marketdata.NewSource(feed, marketdata.NewSimulator(), log.Named("source"))

	var notifier engine.Notifier
	var webhook *alerts.WebhookNotifier
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		webhook = alerts.NewWebhookNotifier(cfg.Webhook, log.Named("webhook"))
		notifier = webhook
	}

	eng := engine.New(engine.Config{
		TickInterval: time.Duration(cfg.Engine.TickIntervalMs) * time.Millisecond,
		LiveRefresh:  time.Duration(cfg.Engine.LiveRefreshMs) * time.Millisecond,
		// With suspend_when_idle the stream hub is the visibility
		// signal, so the scheduler waits for the first client.
		StartPaused: cfg.Engine.StartPaused || cfg.Engine.SuspendWhenIdle,
	}, st, source, notifier, log.Named("engine"))

	hub := transport.NewHub(log.Named("hub"))
	eng.OnSnapshot(hub.Broadcast)
	if cfg.Engine.SuspendWhenIdle {
		hub.OnPresence(eng.Resume, eng.Pause)
	}

	srv := transport.NewServer(cfg.Server.Addr, eng, st, hub, log.Named("http"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	hub.Close()
	eng.Close()
	if webhook != nil {
		webhook.Close()
	}
}

func openStore(cfg config.Root, log *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return postgres.New(cfg.Store.DSN, log.Named("store"))
	case "memory":
		mem := memory.New()
		seedStore(mem, cfg.Seed)
		return mem, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func seedStore(mem *memory.Store, seed config.Seed) {
	for _, h := range seed.Investments {
		mem.AddHolding(h.Symbol, h.Quantity, store.KindInvestment)
	}
	for _, h := range seed.Commodities {
		mem.AddHolding(h.Symbol, h.Quantity, store.KindCommodity)
	}
	for _, sym := range seed.Watchlist {
		mem.AddWatch(sym)
	}
	for _, a := range seed.Alerts {
		mem.AddAlert(a.Symbol, a.Target)
	}
}
