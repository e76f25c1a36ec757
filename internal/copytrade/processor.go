package copytrade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"congress-trade-bot-go/internal/alpaca"
	"congress-trade-bot-go/internal/config"
	"congress-trade-bot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BrokerFactory builds a brokerage client from a user's linked account
// credentials. Injected so tests can substitute a fake broker.
type BrokerFactory func(apiKey, secretKey string, paper bool) alpaca.ClientInterface

// Processor evaluates newly reconciled congressional trades against
// every active bot and mirrors the ones that pass the filter.
type Processor struct {
	logger    *zap.Logger
	cfg       *config.Trading
	paper     bool
	db        *gorm.DB
	newBroker BrokerFactory
}

// NewProcessor creates a copy-trade processor.
func NewProcessor(logger *zap.Logger, cfg *config.Trading, paper bool, db *gorm.DB, newBroker BrokerFactory) *Processor {
	if newBroker == nil {
		newBroker = func(apiKey, secretKey string, paper bool) alpaca.ClientInterface {
			return alpaca.NewClient(apiKey, secretKey, paper, logger)
		}
	}
	return &Processor{
		logger:    logger,
		cfg:       cfg,
		paper:     paper,
		db:        db,
		newBroker: newBroker,
	}
}

// ShouldCopy reports whether a congressional trade passes a user's
// filter: the politician must be followed, the direction must be Buy,
// and the estimated amount must clear the threshold. Sells and
// unfollowed politicians are never mirrored.
func ShouldCopy(trade *models.Trade, settings *models.BotSettings, threshold float64) bool {
	var followed []string
	if settings.FollowPoliticians != "" {
		if err := json.Unmarshal([]byte(settings.FollowPoliticians), &followed); err != nil {
			followed = nil
		}
	}

	found := false
	for _, name := range followed {
		if name == trade.PoliticianName {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	if trade.TradeType != "Buy" {
		return false
	}

	return trade.EstimatedAmount >= threshold
}

// ProcessPending evaluates all recent unprocessed trades for every
// active bot, then marks each trade processed. A trade is considered by
// the evaluator exactly once.
func (p *Processor) ProcessPending(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(p.cfg.LookbackHours) * time.Hour)

	var trades []models.Trade
	err := p.db.WithContext(ctx).
		Where("created_at > ? AND processed_for_trading = ?", cutoff, false).
		Find(&trades).Error
	if err != nil {
		return fmt.Errorf("failed to load unprocessed trades: %w", err)
	}

	p.logger.Info("Processing new congressional trades", zap.Int("count", len(trades)))

	for i := range trades {
		trade := &trades[i]
		p.ProcessTrade(ctx, trade)
		if err := p.db.WithContext(ctx).Model(trade).
			Update("processed_for_trading", true).Error; err != nil {
			return fmt.Errorf("failed to mark trade %d processed: %w", trade.ID, err)
		}
	}
	return nil
}

// ProcessTrade evaluates one trade for every active user. A failure for
// one user is logged and never blocks the others.
func (p *Processor) ProcessTrade(ctx context.Context, trade *models.Trade) {
	var users []models.User
	err := p.db.WithContext(ctx).
		Preload("BotSettings").
		Preload("TradingAccount").
		Where("is_active = ?", true).
		Find(&users).Error
	if err != nil {
		p.logger.Error("Failed to load users for copy-trade evaluation", zap.Error(err))
		return
	}

	p.logger.Info("Evaluating trade for bots",
		zap.String("politician", trade.PoliticianName),
		zap.String("ticker", trade.Ticker),
		zap.Int("users", len(users)))

	for i := range users {
		user := &users[i]
		if user.BotSettings == nil || !user.BotSettings.IsActive {
			continue
		}
		if !ShouldCopy(trade, user.BotSettings, p.cfg.CopyThreshold) {
			continue
		}
		if err := p.executeCopy(ctx, trade, user); err != nil {
			p.logger.Error("Failed to execute copy trade",
				zap.Uint("user_id", user.ID),
				zap.String("ticker", trade.Ticker),
				zap.Error(err))
		}
	}
}

// executeCopy mirrors one trade into one user's brokerage account and
// records the resulting bot trade.
func (p *Processor) executeCopy(ctx context.Context, trade *models.Trade, user *models.User) error {
	account := user.TradingAccount
	if account == nil || !account.IsActive {
		p.logger.Error("User has no active trading account, skipping",
			zap.Uint("user_id", user.ID))
		return nil
	}

	amount := user.BotSettings.MaxTradeAmount
	if mirror := trade.EstimatedAmount * p.cfg.MirrorFraction; mirror < amount {
		amount = mirror
	}

	l := p.logger.With(
		zap.Uint("user_id", user.ID),
		zap.String("ticker", trade.Ticker),
		zap.Float64("amount", amount),
	)

	if p.cfg.DryRun {
		l.Warn("Dry run enabled, no order will be placed")
		return nil
	}

	broker := p.newBroker(account.AlpacaApiKey, account.AlpacaSecretKey, p.paper)
	order, err := broker.SubmitMarketOrder(ctx, trade.Ticker, amount)
	if err != nil {
		return fmt.Errorf("order submission failed: %w", err)
	}

	botTrade := models.BotTrade{
		UserID:               user.ID,
		CongressionalTradeID: trade.ID,
		Symbol:               trade.Ticker,
		Side:                 alpaca.OrderSideBuy,
		Quantity:             order.FilledQuantity(),
		Price:                order.FillPrice(),
		AlpacaOrderID:        order.ID,
	}
	if err := p.db.WithContext(ctx).Create(&botTrade).Error; err != nil {
		return fmt.Errorf("failed to save bot trade: %w", err)
	}

	l.Info("Executed copy trade", zap.String("order_id", order.ID))
	return nil
}
