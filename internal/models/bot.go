package models

import "gorm.io/gorm"

// BotSettings holds a user's copy-trading configuration.
type BotSettings struct {
	gorm.Model
	UserID         uint    `gorm:"index" json:"user_id"`
	IsActive       bool    `gorm:"default:false" json:"is_active"`
	MaxTradeAmount float64 `gorm:"default:1000" json:"max_trade_amount"`
	// JSON-encoded list of politician names to mirror.
	FollowPoliticians string `gorm:"type:text" json:"follow_politicians"`
	Strategy          string `gorm:"size:50;default:copy_trades" json:"strategy"`
}

// BotTrade records one mirror order executed on behalf of a user,
// linked back to the congressional trade that triggered it.
type BotTrade struct {
	gorm.Model
	UserID               uint    `gorm:"index" json:"user_id"`
	CongressionalTradeID uint    `gorm:"index" json:"congressional_trade_id"`
	Symbol               string  `gorm:"size:10;not null" json:"symbol"`
	Side                 string  `gorm:"size:10;not null" json:"side"`
	Quantity             float64 `json:"quantity"`
	Price                float64 `json:"price"`
	AlpacaOrderID        string  `gorm:"size:100" json:"alpaca_order_id"`
	ProfitLoss           float64 `gorm:"default:0" json:"profit_loss"`
}
