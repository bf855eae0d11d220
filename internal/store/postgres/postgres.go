package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Rajchodisetti/wealth-dashboard/internal/store"
)

// Client implements store.Store on Postgres via gorm.
type Client struct {
	db  *gorm.DB
	log *zap.Logger
}

// New connects and migrates the engine-owned columns and indexes.
func New(dsn string, log *zap.Logger) (*Client, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.AutoMigrate(
		&InvestmentRecord{},
		&CommodityRecord{},
		&AlertRecord{},
		&WatchRecord{},
	); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Client{db: db, log: log}, nil
}

func (c *Client) Holdings(ctx context.Context, kind store.Kind) ([]store.Holding, error) {
	switch kind {
	case store.KindInvestment:
		var records []InvestmentRecord
		if err := c.db.WithContext(ctx).Find(&records).Error; err != nil {
			return nil, fmt.Errorf("query investments: %w", err)
		}
		out := make([]store.Holding, 0, len(records))
		for _, r := range records {
			out = append(out, store.Holding{
				ID:           r.ID,
				Symbol:       r.Symbol,
				Quantity:     r.Quantity,
				CurrentValue: r.CurrentValue,
				Kind:         store.KindInvestment,
			})
		}
		return out, nil
	case store.KindCommodity:
		var records []CommodityRecord
		if err := c.db.WithContext(ctx).Find(&records).Error; err != nil {
			return nil, fmt.Errorf("query commodities: %w", err)
		}
		out := make([]store.Holding, 0, len(records))
		for _, r := range records {
			out = append(out, store.Holding{
				ID:           r.ID,
				Symbol:       r.Symbol,
				Quantity:     r.Quantity,
				CurrentValue: r.CurrentValue,
				Kind:         store.KindCommodity,
			})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown holding kind %q", kind)
	}
}

func (c *Client) Watchlist(ctx context.Context) ([]store.WatchEntry, error) {
	var records []WatchRecord
	if err := c.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query watchlist: %w", err)
	}
	out := make([]store.WatchEntry, 0, len(records))
	for _, r := range records {
		out = append(out, store.WatchEntry{ID: r.ID, Symbol: r.Symbol})
	}
	return out, nil
}

func (c *Client) ActiveAlerts(ctx context.Context) ([]store.Alert, error) {
	var records []AlertRecord
	if err := c.db.WithContext(ctx).Where("status = ?", store.AlertActive).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query active alerts: %w", err)
	}
	out := make([]store.Alert, 0, len(records))
	for _, r := range records {
		out = append(out, store.Alert{
			ID:          r.ID,
			Symbol:      r.Symbol,
			TargetPrice: r.TargetPrice,
			Status:      r.Status,
			TriggeredAt: r.TriggeredAt,
		})
	}
	return out, nil
}

func (c *Client) UpdateHoldingValues(ctx context.Context, kind store.Kind, updates []store.ValueUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var model any
	switch kind {
	case store.KindInvestment:
		model = &InvestmentRecord{}
	case store.KindCommodity:
		model = &CommodityRecord{}
	default:
		return fmt.Errorf("unknown holding kind %q", kind)
	}

	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Model(model).
				Where("id = ?", u.ID).
				Update("current_value", u.Value).Error; err != nil {
				return fmt.Errorf("update %s %d: %w", kind, u.ID, err)
			}
		}
		return nil
	})
}

func (c *Client) MarkAlertsTriggered(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	// Status filter keeps the write idempotent: an alert already
	// triggered by an earlier tick is left alone.
	err := c.db.WithContext(ctx).Model(&AlertRecord{}).
		Where("id IN ? AND status = ?", ids, store.AlertActive).
		Updates(map[string]any{
			"status":       store.AlertTriggered,
			"triggered_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("mark alerts triggered: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	sqlDB, err := c.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		c.log.Warn("postgres ping failed", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
