package alerts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Rajchodisetti/wealth-dashboard/internal/config"
	"github.com/Rajchodisetti/wealth-dashboard/internal/observ"
	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color  string       `json:"color"`
	Fields []SlackField `json:"fields"`
}

type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

type queuedNotice struct {
	alert     store.Alert
	price     float64
	at        time.Time
	attempts  int
	nextRetry time.Time
	hash      string
}

// WebhookNotifier pushes triggered alerts to a Slack-compatible webhook
// asynchronously: Notify enqueues and returns immediately, a worker
// goroutine delivers with retries. Delivery problems never reach the
// tick path.
type WebhookNotifier struct {
	cfg         config.Webhook
	httpClient  *http.Client
	queue       chan queuedNotice
	dedupeCache map[string]time.Time
	rateWindow  map[string][]time.Time // "global" + per-symbol send times
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	log         *zap.Logger
}

func NewWebhookNotifier(cfg config.Webhook, log *zap.Logger) *WebhookNotifier {
	ctx, cancel := context.WithCancel(context.Background())

	n := &WebhookNotifier{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		queue:       make(chan queuedNotice, 256),
		dedupeCache: make(map[string]time.Time),
		rateWindow:  make(map[string][]time.Time),
		ctx:         ctx,
		cancel:      cancel,
		log:         log,
	}

	go n.worker()
	go n.cleanup()

	return n
}

// Notify implements engine.Notifier.
func (n *WebhookNotifier) Notify(alert store.Alert, price float64) {
	if !n.cfg.Enabled || n.cfg.URL == "" {
		return
	}

	hash := noticeHash(alert)
	window := time.Duration(n.cfg.DedupeWindowSecs) * time.Second

	n.mu.Lock()
	if lastSent, exists := n.dedupeCache[hash]; exists && time.Since(lastSent) < window {
		n.mu.Unlock()
		return
	}
	n.dedupeCache[hash] = time.Now()
	n.mu.Unlock()

	if n.rateLimited(alert.Symbol) {
		observ.IncCounter("webhook_rate_limited_total", nil)
		return
	}

	notice := queuedNotice{
		alert:     alert,
		price:     price,
		at:        time.Now(),
		nextRetry: time.Now(),
		hash:      hash,
	}

	select {
	case n.queue <- notice:
	default:
		// Queue full; dropping is preferable to blocking a tick.
		observ.IncCounter("webhook_dropped_total", nil)
		n.log.Warn("webhook queue full, dropping notification",
			zap.Int64("alert_id", alert.ID))
	}
}

func noticeHash(alert store.Alert) string {
	data := fmt.Sprintf("%d:%s:%.2f", alert.ID, alert.Symbol, alert.TargetPrice)
	sum := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", sum)[:16]
}

func (n *WebhookNotifier) rateLimited(symbol string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	prune := func(key string) int {
		times := n.rateWindow[key]
		filtered := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				filtered = append(filtered, t)
			}
		}
		n.rateWindow[key] = filtered
		return len(filtered)
	}

	if prune("global") >= n.cfg.RateLimitPerMin {
		return true
	}
	if prune(symbol) >= n.cfg.RateLimitPerSymbolPerMin {
		return true
	}

	n.rateWindow["global"] = append(n.rateWindow["global"], now)
	n.rateWindow[symbol] = append(n.rateWindow[symbol], now)
	return false
}

func (n *WebhookNotifier) worker() {
	for {
		select {
		case <-n.ctx.Done():
			return
		case notice := <-n.queue:
			if wait := time.Until(notice.nextRetry); wait > 0 {
				select {
				case <-n.ctx.Done():
					return
				case <-time.After(wait):
				}
			}

			if n.send(notice) {
				observ.IncCounter("webhook_sent_total", nil)
				continue
			}

			notice.attempts++
			if notice.attempts >= 3 {
				observ.IncCounter("webhook_errors_total", nil)
				n.log.Warn("webhook delivery abandoned",
					zap.Int64("alert_id", notice.alert.ID),
					zap.Int("attempts", notice.attempts))
				continue
			}

			backoff := time.Duration(math.Pow(2, float64(notice.attempts))) * time.Second
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			notice.nextRetry = time.Now().Add(backoff + jitter)

			select {
			case n.queue <- notice:
			case <-n.ctx.Done():
				return
			default:
				observ.IncCounter("webhook_dropped_total", nil)
			}
		}
	}
}

func (n *WebhookNotifier) send(notice queuedNotice) bool {
	payload, err := json.Marshal(n.format(notice))
	if err != nil {
		n.log.Error("marshal webhook message failed", zap.Error(err))
		return false
	}

	resp, err := n.httpClient.Post(n.cfg.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("webhook post failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Warn("webhook rejected", zap.Int("status", resp.StatusCode))
		return false
	}
	return true
}

func (n *WebhookNotifier) format(notice queuedNotice) SlackMessage {
	direction := "rose to"
	color := "good"
	if notice.price < notice.alert.TargetPrice {
		direction = "fell to"
		color = "warning"
	}

	text := fmt.Sprintf("🔔 %s %s %.2f (target %.2f)",
		notice.alert.Symbol, direction, notice.price, notice.alert.TargetPrice)

	fields := []SlackField{
		{Title: "Symbol", Value: notice.alert.Symbol, Short: true},
		{Title: "Target", Value: fmt.Sprintf("%.2f", notice.alert.TargetPrice), Short: true},
		{Title: "Price", Value: fmt.Sprintf("%.2f", notice.price), Short: true},
		{Title: "Time", Value: notice.at.Format("15:04:05 MST"), Short: true},
	}

	return SlackMessage{
		Channel: n.cfg.Channel,
		Text:    text,
		Attachments: []SlackAttachment{{
			Color:  color,
			Fields: fields,
		}},
	}
}

func (n *WebhookNotifier) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.evictStale(time.Now())
		}
	}
}

// evictStale drops dedupe entries that have aged out of the configured
// window and no longer suppress anything.
func (n *WebhookNotifier) evictStale(now time.Time) {
	cutoff := now.Add(-time.Duration(n.cfg.DedupeWindowSecs) * time.Second)
	n.mu.Lock()
	defer n.mu.Unlock()
	for hash, stamp := range n.dedupeCache {
		if stamp.Before(cutoff) {
			delete(n.dedupeCache, hash)
		}
	}
}

func (n *WebhookNotifier) Close() {
	n.cancel()
}
