package postgres

import "time"

// Records mirror the dashboard's CRUD-owned tables. The engine only
// touches the columns it derives (current_value, status, triggered_at);
// migration keeps the rest intact.

type InvestmentRecord struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Symbol       string  `gorm:"size:16;not null;index:idx_investments_symbol"`
	Quantity     float64 `gorm:"not null"`
	CurrentValue float64 `gorm:"column:current_value"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (InvestmentRecord) TableName() string {
	return "investments"
}

type CommodityRecord struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Symbol       string  `gorm:"size:16;not null;index:idx_commodities_symbol"`
	Quantity     float64 `gorm:"not null"`
	CurrentValue float64 `gorm:"column:current_value"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CommodityRecord) TableName() string {
	return "commodities"
}

type AlertRecord struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Symbol      string  `gorm:"size:16;not null;index:idx_price_alerts_symbol"`
	TargetPrice float64 `gorm:"column:target_price;not null"`
	Status      string  `gorm:"size:16;not null;default:active;index:idx_price_alerts_status"`
	TriggeredAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (AlertRecord) TableName() string {
	return "price_alerts"
}

type WatchRecord struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Symbol    string `gorm:"size:16;not null;uniqueIndex:idx_watchlist_symbol"`
	CreatedAt time.Time
}

func (WatchRecord) TableName() string {
	return "watchlist_entries"
}
