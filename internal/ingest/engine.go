package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"congress-trade-bot-go/internal/fmp"
	"congress-trade-bot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine merges fetched disclosure batches into the database and keeps
// politician aggregates consistent. Manual triggers and scheduled jobs
// are just two callers of the same Sync operation.
type Engine struct {
	logger *zap.Logger
	client fmp.ClientInterface
	db     *gorm.DB
}

// NewEngine creates a reconciliation engine.
func NewEngine(logger *zap.Logger, client fmp.ClientInterface, db *gorm.DB) *Engine {
	return &Engine{
		logger: logger,
		client: client,
		db:     db,
	}
}

// Sync fetches disclosures for both chambers and reconciles them into
// the store. The returned report is always non-nil, also on failure.
func (e *Engine) Sync(ctx context.Context, limitPerChamber int) *Report {
	e.logger.Info("Starting trade sync", zap.Int("limit_per_chamber", limitPerChamber))

	report := newReport()
	defer report.finish()

	records, rejections, err := e.client.FetchAll(ctx, limitPerChamber)
	if err != nil {
		e.logger.Error("Disclosure fetch failed", zap.Error(err))
		report.Errors = append(report.Errors, fmt.Sprintf("fetch failed: %v", err))
		return report
	}
	report.Errors = append(report.Errors, rejections...)

	report.TradesFetched = len(records)
	if len(records) == 0 {
		e.logger.Warn("No trades returned by FMP API")
		report.Errors = append(report.Errors, "no trades returned from FMP API")
		return report
	}

	e.Reconcile(ctx, records, report)

	e.logger.Info("Trade sync completed",
		zap.String("run_id", report.RunID),
		zap.Int("stored", report.TradesStored),
		zap.Int("updated", report.TradesUpdated),
		zap.Int("errors", len(report.Errors)),
		zap.Bool("success", report.Success))
	return report
}

// Reconcile merges one normalized batch into the store as a single
// transaction: trade upserts and the politician aggregate recompute
// commit together or not at all. A malformed or failing record is
// recorded in the report and skipped; only a store-level error rolls
// the whole batch back.
func (e *Engine) Reconcile(ctx context.Context, records []fmp.TradeRecord, report *Report) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			if err := e.reconcileRecord(tx, record, report); err != nil {
				msg := fmt.Sprintf("error processing trade %s - %s: %v",
					record.PoliticianName, record.Ticker, err)
				e.logger.Error("Record reconciliation failed",
					zap.String("politician", record.PoliticianName),
					zap.String("ticker", record.Ticker),
					zap.Error(err))
				report.Errors = append(report.Errors, msg)
				continue
			}
		}

		// Aggregates are recomputed inside the same transaction so they
		// can never be read against partially-committed trade rows.
		return recomputePoliticianStats(tx, e.logger)
	})
	if err != nil {
		e.logger.Error("Trade sync transaction rolled back", zap.Error(err))
		report.Errors = append(report.Errors, fmt.Sprintf("trade sync failed: %v", err))
		return
	}

	report.Success = true
}

// reconcileRecord upserts one trade and its politician.
func (e *Engine) reconcileRecord(tx *gorm.DB, record fmp.TradeRecord, report *Report) error {
	created, err := lookupOrCreatePolitician(tx, record.PoliticianName, record.Chamber)
	if err != nil {
		return fmt.Errorf("politician lookup failed: %w", err)
	}
	if created {
		e.logger.Info("Created new politician",
			zap.String("name", record.PoliticianName),
			zap.String("chamber", record.Chamber))
		report.PoliticiansCreated++
	}

	stored, err := upsertTrade(tx, record)
	if err != nil {
		return fmt.Errorf("trade upsert failed: %w", err)
	}
	if stored {
		report.TradesStored++
	} else {
		report.TradesUpdated++
	}
	return nil
}

// lookupOrCreatePolitician finds a politician by name, creating it with
// zeroed aggregates on first sight. The boolean reports Created vs
// Found explicitly; no transient state is attached to the entity.
func lookupOrCreatePolitician(tx *gorm.DB, name, chamber string) (bool, error) {
	var politician models.Politician
	result := tx.Where(models.Politician{Name: name}).
		Attrs(models.Politician{Chamber: chamber}).
		FirstOrCreate(&politician)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// upsertTrade inserts a trade or updates the existing row matching the
// natural key. The returned boolean is true for an insert. The insert
// carries an ON CONFLICT clause against the natural-key unique index so
// a concurrent run racing on the same key degrades to an update instead
// of a duplicate row or an error.
func upsertTrade(tx *gorm.DB, record fmp.TradeRecord) (bool, error) {
	delay := fmp.DisclosureDelayDays(record.TransactionDate, record.DisclosureDate)

	var existing models.Trade
	err := tx.Where(
		"politician_name = ? AND ticker = ? AND transaction_date = ? AND disclosure_date = ?",
		record.PoliticianName, record.Ticker, record.TransactionDate, record.DisclosureDate,
	).First(&existing).Error

	if err == nil {
		updates := map[string]interface{}{
			"estimated_amount":      record.Amount,
			"trade_type":            record.TradeType,
			"disclosure_delay_days": delay,
			"updated_at":            time.Now().UTC(),
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return false, err
		}
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	trade := models.Trade{
		PoliticianName:      record.PoliticianName,
		Chamber:             record.Chamber,
		Ticker:              record.Ticker,
		TradeType:           record.TradeType,
		EstimatedAmount:     record.Amount,
		TransactionDate:     record.TransactionDate,
		DisclosureDate:      record.DisclosureDate,
		DisclosureDelayDays: delay,
		Source:              record.Source,
	}
	if err := tx.Clauses(naturalKeyConflict()).Create(&trade).Error; err != nil {
		return false, err
	}
	return true, nil
}

// naturalKeyConflict turns an insert racing on the trade natural key
// into an update of the mutable fields.
func naturalKeyConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "politician_name"},
			{Name: "ticker"},
			{Name: "transaction_date"},
			{Name: "disclosure_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"estimated_amount", "trade_type", "disclosure_delay_days", "updated_at",
		}),
	}
}

// RefreshStats recomputes all politician aggregates in their own
// transaction. This is the daily stats-only job.
func (e *Engine) RefreshStats(ctx context.Context) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return recomputePoliticianStats(tx, e.logger)
	})
}

// recomputePoliticianStats rebuilds the materialized aggregate fields of
// every politician from that politician's current trade rows. A full
// recompute is deliberately preferred over incremental maintenance: it
// cannot drift.
func recomputePoliticianStats(tx *gorm.DB, logger *zap.Logger) error {
	logger.Info("Updating politician statistics...")

	var politicians []models.Politician
	if err := tx.Find(&politicians).Error; err != nil {
		return fmt.Errorf("failed to load politicians: %w", err)
	}

	for i := range politicians {
		politician := &politicians[i]

		var trades []models.Trade
		err := tx.Where("politician_name = ?", politician.Name).Find(&trades).Error
		if err != nil {
			return fmt.Errorf("failed to load trades for %s: %w", politician.Name, err)
		}

		politician.TotalTrades = len(trades)
		politician.TotalEstimatedVolume = 0
		politician.AverageTradeSize = 0
		politician.LastTradeDate = nil

		if len(trades) > 0 {
			var lastTrade time.Time
			for _, trade := range trades {
				politician.TotalEstimatedVolume += trade.EstimatedAmount
				if trade.TransactionDate.After(lastTrade) {
					lastTrade = trade.TransactionDate
				}
			}
			politician.AverageTradeSize = politician.TotalEstimatedVolume / float64(len(trades))
			politician.LastTradeDate = &lastTrade
		}

		if err := tx.Save(politician).Error; err != nil {
			return fmt.Errorf("failed to save stats for %s: %w", politician.Name, err)
		}
	}

	logger.Info("Updated statistics", zap.Int("politicians", len(politicians)))
	return nil
}
