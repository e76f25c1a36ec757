package models

import (
	"time"

	"gorm.io/gorm"
)

// Politician represents a member of Congress seen in trade disclosures.
// The four aggregate fields are a materialized view over that
// politician's Trade rows: they are recomputed wholesale by the
// reconciliation engine inside the same transaction as the triggering
// batch and are never mutated anywhere else.
type Politician struct {
	gorm.Model
	Name    string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Chamber string `gorm:"size:10;not null" json:"chamber"`
	Party   string `gorm:"size:20" json:"party"`
	State   string `gorm:"size:50" json:"state"`

	TotalTrades          int        `gorm:"default:0" json:"total_trades"`
	TotalEstimatedVolume float64    `gorm:"default:0" json:"total_estimated_volume"`
	AverageTradeSize     float64    `gorm:"default:0" json:"average_trade_size"`
	LastTradeDate        *time.Time `json:"last_trade_date"`
}
