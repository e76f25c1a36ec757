package copytrade

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"congress-trade-bot-go/internal/alpaca"
	"congress-trade-bot-go/internal/config"
	"congress-trade-bot-go/internal/database"
	"congress-trade-bot-go/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type submittedOrder struct {
	symbol   string
	notional float64
}

// fakeBroker records submitted orders instead of calling Alpaca.
type fakeBroker struct {
	orders   []submittedOrder
	failWith error
}

func (f *fakeBroker) SubmitMarketOrder(ctx context.Context, symbol string, notional float64) (*alpaca.Order, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.orders = append(f.orders, submittedOrder{symbol: symbol, notional: notional})
	return &alpaca.Order{
		ID:             "order-" + symbol,
		Symbol:         symbol,
		Qty:            "2.5",
		FilledAvgPrice: "200.10",
		Status:         "filled",
	}, nil
}

func (f *fakeBroker) GetAccount(ctx context.Context) (*alpaca.Account, error) {
	return &alpaca.Account{ID: "fake", Status: "ACTIVE"}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func testConfig() *config.Trading {
	return &config.Trading{
		Enabled:        true,
		CopyThreshold:  15000,
		MirrorFraction: 0.1,
		LookbackHours:  1,
	}
}

func buyTrade(amount float64) *models.Trade {
	return &models.Trade{
		PoliticianName:  "Nancy Pelosi",
		Chamber:         "House",
		Ticker:          "AAPL",
		TradeType:       "Buy",
		EstimatedAmount: amount,
		TransactionDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		DisclosureDate:  time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestShouldCopy(t *testing.T) {
	followed := &models.BotSettings{
		IsActive:          true,
		MaxTradeAmount:    1000,
		FollowPoliticians: `["Nancy Pelosi"]`,
	}

	testCases := []struct {
		name     string
		trade    *models.Trade
		settings *models.BotSettings
		expected bool
	}{
		{
			name:     "Followed buy above threshold",
			trade:    buyTrade(20000),
			settings: followed,
			expected: true,
		},
		{
			name: "Sell is never mirrored",
			trade: func() *models.Trade {
				trade := buyTrade(20000)
				trade.TradeType = "Sell"
				return trade
			}(),
			settings: followed,
			expected: false,
		},
		{
			name:     "Buy below threshold",
			trade:    buyTrade(10000),
			settings: followed,
			expected: false,
		},
		{
			name:  "Unfollowed politician",
			trade: buyTrade(20000),
			settings: &models.BotSettings{
				IsActive:          true,
				FollowPoliticians: `["Chuck Schumer"]`,
			},
			expected: false,
		},
		{
			name:     "Empty follow list",
			trade:    buyTrade(20000),
			settings: &models.BotSettings{IsActive: true},
			expected: false,
		},
		{
			name:  "Malformed follow list",
			trade: buyTrade(20000),
			settings: &models.BotSettings{
				IsActive:          true,
				FollowPoliticians: `not json`,
			},
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ShouldCopy(tc.trade, tc.settings, 15000))
		})
	}
}

func createBotUser(t *testing.T, db *gorm.DB, email string, maxAmount float64, withAccount bool) *models.User {
	t.Helper()
	user := &models.User{Email: email, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.BotSettings{
		UserID:            user.ID,
		IsActive:          true,
		MaxTradeAmount:    maxAmount,
		FollowPoliticians: `["Nancy Pelosi"]`,
		Strategy:          "copy_trades",
	}).Error)
	if withAccount {
		require.NoError(t, db.Create(&models.TradingAccount{
			UserID:          user.ID,
			AlpacaApiKey:    "key-" + email,
			AlpacaSecretKey: "secret",
			IsActive:        true,
		}).Error)
	}
	return user
}

func TestProcessTradeExecutesCopy(t *testing.T) {
	db := setupTestDB(t)
	broker := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface { return broker }
	p := NewProcessor(zap.NewNop(), testConfig(), true, db, factory)

	user := createBotUser(t, db, "alice@example.com", 1000, true)
	trade := buyTrade(20000)
	require.NoError(t, db.Create(trade).Error)

	p.ProcessTrade(context.Background(), trade)

	// Mirror size = min(max trade amount, 10% of the estimated amount).
	require.Len(t, broker.orders, 1)
	assert.Equal(t, "AAPL", broker.orders[0].symbol)
	assert.InDelta(t, 1000, broker.orders[0].notional, 0.0001)

	var botTrade models.BotTrade
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&botTrade).Error)
	assert.Equal(t, trade.ID, botTrade.CongressionalTradeID)
	assert.Equal(t, "AAPL", botTrade.Symbol)
	assert.Equal(t, "buy", botTrade.Side)
	assert.InDelta(t, 2.5, botTrade.Quantity, 0.0001)
	assert.InDelta(t, 200.10, botTrade.Price, 0.0001)
	assert.Equal(t, "order-AAPL", botTrade.AlpacaOrderID)
}

func TestProcessTradeMirrorSizeBelowMax(t *testing.T) {
	db := setupTestDB(t)
	broker := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface { return broker }
	p := NewProcessor(zap.NewNop(), testConfig(), true, db, factory)

	createBotUser(t, db, "bob@example.com", 50000, true)
	trade := buyTrade(20000)
	require.NoError(t, db.Create(trade).Error)

	p.ProcessTrade(context.Background(), trade)

	// 10% of 20000 is below the user's 50000 cap.
	require.Len(t, broker.orders, 1)
	assert.InDelta(t, 2000, broker.orders[0].notional, 0.0001)
}

func TestProcessTradeSkipsUserWithoutAccount(t *testing.T) {
	db := setupTestDB(t)
	broker := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface { return broker }
	p := NewProcessor(zap.NewNop(), testConfig(), true, db, factory)

	user := createBotUser(t, db, "carol@example.com", 1000, false)
	trade := buyTrade(20000)
	require.NoError(t, db.Create(trade).Error)

	p.ProcessTrade(context.Background(), trade)

	assert.Empty(t, broker.orders)
	var count int64
	db.Model(&models.BotTrade{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestProcessTradeIsolatesUserFailures(t *testing.T) {
	db := setupTestDB(t)

	// The first user's broker always fails; the second user's succeeds.
	failing := &fakeBroker{failWith: errors.New("insufficient buying power")}
	working := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface {
		if apiKey == "key-dave@example.com" {
			return failing
		}
		return working
	}
	p := NewProcessor(zap.NewNop(), testConfig(), true, db, factory)

	createBotUser(t, db, "dave@example.com", 1000, true)
	eve := createBotUser(t, db, "eve@example.com", 1000, true)
	trade := buyTrade(20000)
	require.NoError(t, db.Create(trade).Error)

	p.ProcessTrade(context.Background(), trade)

	require.Len(t, working.orders, 1)
	var botTrades []models.BotTrade
	require.NoError(t, db.Find(&botTrades).Error)
	require.Len(t, botTrades, 1)
	assert.Equal(t, eve.ID, botTrades[0].UserID)
}

func TestProcessPendingMarksTradesProcessed(t *testing.T) {
	db := setupTestDB(t)
	broker := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface { return broker }
	p := NewProcessor(zap.NewNop(), testConfig(), true, db, factory)

	createBotUser(t, db, "frank@example.com", 1000, true)
	trade := buyTrade(20000)
	require.NoError(t, db.Create(trade).Error)

	require.NoError(t, p.ProcessPending(context.Background()))

	var reloaded models.Trade
	require.NoError(t, db.First(&reloaded, trade.ID).Error)
	assert.True(t, reloaded.ProcessedForTrading)
	require.Len(t, broker.orders, 1)

	// A second pass finds nothing: the flag flips exactly once.
	require.NoError(t, p.ProcessPending(context.Background()))
	assert.Len(t, broker.orders, 1)
}

func TestProcessPendingHonorsDryRun(t *testing.T) {
	db := setupTestDB(t)
	broker := &fakeBroker{}
	factory := func(apiKey, secretKey string, paper bool) alpaca.ClientInterface { return broker }
	cfg := testConfig()
	cfg.DryRun = true
	p := NewProcessor(zap.NewNop(), cfg, true, db, factory)

	createBotUser(t, db, "grace@example.com", 1000, true)
	require.NoError(t, db.Create(buyTrade(20000)).Error)

	require.NoError(t, p.ProcessPending(context.Background()))
	assert.Empty(t, broker.orders)
}
