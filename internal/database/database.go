package database

import (
	"fmt"

	"congress-trade-bot-go/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the schema for all persisted entities.
// Unlike a drop-and-recreate migration, disclosure data must survive
// restarts: the trade history is the product.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Politician{},
		&models.Trade{},
		&models.User{},
		&models.TradingAccount{},
		&models.BotSettings{},
		&models.BotTrade{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
