package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"congress-trade-bot-go/internal/api"
	"congress-trade-bot-go/internal/config"
	"congress-trade-bot-go/internal/copytrade"
	"congress-trade-bot-go/internal/database"
	"congress-trade-bot-go/internal/fmp"
	"congress-trade-bot-go/internal/ingest"
	"congress-trade-bot-go/internal/logger"
	"congress-trade-bot-go/internal/scheduler"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "tracker")
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize FMP disclosure client
	fmpClient := fmp.NewClient(&cfg.FMP, log)

	// Initialize reconciliation engine and copy-trade processor
	engine := ingest.NewEngine(log, fmpClient, db)

	var processor *copytrade.Processor
	if cfg.Trading.Enabled {
		processor = copytrade.NewProcessor(log, &cfg.Trading, cfg.Alpaca.Paper, db, nil)
		log.Info("Copy-trading bot enabled", zap.Bool("paper", cfg.Alpaca.Paper))
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Register the background jobs
	sched := scheduler.New(log, &cfg.Scheduler)
	sched.Add("sync-trades", cfg.Scheduler.SyncCron, func(ctx context.Context) error {
		report := engine.Sync(ctx, cfg.FMP.LimitPerChamber)
		if !report.Success {
			return fmt.Errorf("sync run %s failed: %v", report.RunID, report.Errors)
		}
		if processor != nil {
			return processor.ProcessPending(ctx)
		}
		return nil
	})
	sched.Add("refresh-politician-stats", cfg.Scheduler.StatsCron, func(ctx context.Context) error {
		return engine.RefreshStats(ctx)
	})

	// Start the manual-trigger API server
	server := api.NewServer(cfg.Server.Port, engine, processor, cfg.FMP.LimitPerChamber, log)
	server.Start()

	// Run the scheduler until shutdown
	sched.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Tracker has been shut down.")
}
