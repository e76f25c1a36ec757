package models

import "gorm.io/gorm"

// User is a registered account that may run the copy-trading bot.
// Authentication and session handling live outside this service; only
// the fields the bot needs are modeled here.
type User struct {
	gorm.Model
	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	FullName string `gorm:"size:100" json:"full_name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	BotSettings    *BotSettings    `json:"bot_settings,omitempty"`
	TradingAccount *TradingAccount `json:"trading_account,omitempty"`
}

// TradingAccount holds a user's linked Alpaca brokerage credentials.
type TradingAccount struct {
	gorm.Model
	UserID          uint   `gorm:"index" json:"user_id"`
	AlpacaApiKey    string `gorm:"size:255" json:"-"`
	AlpacaSecretKey string `gorm:"size:255" json:"-"`
	AccountType     string `gorm:"size:20;default:paper" json:"account_type"`
	IsActive        bool   `gorm:"default:true" json:"is_active"`
}
