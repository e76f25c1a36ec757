package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"congress-trade-bot-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", zap.Error(err))
	}
}

func queryLimit(r *http.Request, def, max int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}

// TradesHandler returns disclosed trades, most recent transaction first.
// Optional filters: ticker, politician.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	query := h.db.Order("transaction_date desc")

	if ticker := r.URL.Query().Get("ticker"); ticker != "" {
		query = query.Where("ticker = ?", ticker)
	}
	if politician := r.URL.Query().Get("politician"); politician != "" {
		query = query.Where("politician_name = ?", politician)
	}

	var trades []models.Trade
	if err := query.Limit(queryLimit(r, 100, 500)).Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, trades)
}

// PoliticiansHandler returns politicians ordered by total estimated
// trading volume, busiest traders first.
func (h *APIHandler) PoliticiansHandler(w http.ResponseWriter, r *http.Request) {
	var politicians []models.Politician
	err := h.db.Where("total_estimated_volume > 0").
		Order("total_estimated_volume desc").
		Limit(queryLimit(r, 10, 100)).
		Find(&politicians).Error
	if err != nil {
		h.log.Error("Failed to get politicians from database", zap.Error(err))
		http.Error(w, "Failed to get politicians", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, politicians)
}

// RecentTradersHandler returns politicians who traded within the last
// N days (default 30), most recently active first.
func (h *APIHandler) RecentTradersHandler(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	var politicians []models.Politician
	err := h.db.Where("last_trade_date > ?", cutoff).
		Order("last_trade_date desc").
		Limit(queryLimit(r, 10, 100)).
		Find(&politicians).Error
	if err != nil {
		h.log.Error("Failed to get recent traders", zap.Error(err))
		http.Error(w, "Failed to get recent traders", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, politicians)
}

// SummaryResponse is the structure for the /api/analytics/summary endpoint.
type SummaryResponse struct {
	TotalTrades      int64   `json:"total_trades"`
	TotalPoliticians int64   `json:"total_politicians"`
	TotalVolume      float64 `json:"total_volume"`
	BuyCount         int64   `json:"buy_count"`
	SellCount        int64   `json:"sell_count"`
	AvgDisclosureLag float64 `json:"avg_disclosure_delay_days"`
}

// SummaryHandler returns store-wide analytics over all disclosed trades.
func (h *APIHandler) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	var summary SummaryResponse

	if err := h.db.Model(&models.Trade{}).Count(&summary.TotalTrades).Error; err != nil {
		h.log.Error("Failed to count trades", zap.Error(err))
		http.Error(w, "Failed to calculate summary", http.StatusInternalServerError)
		return
	}
	h.db.Model(&models.Politician{}).Count(&summary.TotalPoliticians)
	h.db.Model(&models.Trade{}).Where("trade_type = ?", "Buy").Count(&summary.BuyCount)
	h.db.Model(&models.Trade{}).Where("trade_type = ?", "Sell").Count(&summary.SellCount)

	var totals struct {
		Volume float64
		AvgLag float64
	}
	h.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(estimated_amount), 0) AS volume, COALESCE(AVG(disclosure_delay_days), 0) AS avg_lag").
		Scan(&totals)
	summary.TotalVolume = totals.Volume
	summary.AvgDisclosureLag = totals.AvgLag

	h.writeJSON(w, summary)
}
