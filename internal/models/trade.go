package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade represents a single disclosed congressional stock trade.
// The natural key is (politician name, ticker, transaction date,
// disclosure date); the composite unique index backs the upsert used by
// the reconciliation engine so concurrent syncs cannot duplicate a row.
type Trade struct {
	gorm.Model
	PoliticianName string `gorm:"size:100;not null;uniqueIndex:idx_trade_natural_key" json:"politician_name"`
	Chamber        string `gorm:"size:10;not null" json:"chamber"`
	Party          string `gorm:"size:20" json:"party"`
	State          string `gorm:"size:50" json:"state"`

	Ticker    string `gorm:"size:10;not null;index;uniqueIndex:idx_trade_natural_key" json:"ticker"`
	TradeType string `gorm:"size:20;not null" json:"trade_type"` // "Buy", "Sell" or a passthrough label

	EstimatedAmount float64 `json:"estimated_amount"`

	TransactionDate time.Time `gorm:"not null;index;uniqueIndex:idx_trade_natural_key" json:"transaction_date"`
	DisclosureDate  time.Time `gorm:"not null;uniqueIndex:idx_trade_natural_key" json:"disclosure_date"`

	// Whole days between transaction and disclosure. May be negative when
	// the provider's dates are inconsistent; stored as-is.
	DisclosureDelayDays int `json:"disclosure_delay_days"`

	Source string `gorm:"size:50;default:FMP" json:"source"`

	// Flips false -> true exactly once, after the copy-trade evaluator
	// has considered this trade.
	ProcessedForTrading bool `gorm:"default:false" json:"processed_for_trading"`
}
