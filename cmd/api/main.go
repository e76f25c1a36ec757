package main

import (
	"fmt"
	"net/http"
	"os"

	"congress-trade-bot-go/internal/config"
	"congress-trade-bot-go/internal/database"
	"congress-trade-bot-go/internal/logger"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, "api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Setup HTTP server
	mux := http.NewServeMux()

	apiHandler := NewAPIHandler(log, db)

	// API endpoints
	mux.HandleFunc("/api/trades", apiHandler.TradesHandler)
	mux.HandleFunc("/api/politicians", apiHandler.PoliticiansHandler)
	mux.HandleFunc("/api/politicians/recent", apiHandler.RecentTradersHandler)
	mux.HandleFunc("/api/analytics/summary", apiHandler.SummaryHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.UIPort)
	log.Info("Starting data API server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("Data API server failed", zap.Error(err))
	}
}
