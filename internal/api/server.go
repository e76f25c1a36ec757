package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"congress-trade-bot-go/internal/copytrade"
	"congress-trade-bot-go/internal/fmp"
	"congress-trade-bot-go/internal/ingest"
	"go.uber.org/zap"
)

// Server exposes the manual sync trigger and service status over HTTP.
// Routing middleware, auth and the public data API live elsewhere; this
// is only the operational surface of the sync service.
type Server struct {
	server    *http.Server
	engine    *ingest.Engine
	processor *copytrade.Processor
	logger    *zap.Logger
	startTime time.Time

	defaultLimit int
}

// NewServer creates a Server listening on the given port.
func NewServer(port int, engine *ingest.Engine, processor *copytrade.Processor, defaultLimit int, logger *zap.Logger) *Server {
	s := &Server{
		engine:       engine,
		processor:    processor,
		logger:       logger.Named("api-server"),
		startTime:    time.Now(),
		defaultLimit: defaultLimit,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/admin/sync", s.syncHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Service   string `json:"service"`
		StartTime string `json:"start_time"`
		Uptime    string `json:"uptime"`
	}{
		Service:   "congress-trade-tracker",
		StartTime: s.startTime.Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

// syncHandler is the manual on-demand trigger. It runs a full sync
// synchronously and returns the report, then kicks the copy-trade pass
// for whatever the sync brought in.
func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.defaultLimit
	if v := r.URL.Query().Get("limit_per_chamber"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit_per_chamber", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > fmp.MaxLimitPerChamber {
		limit = fmp.MaxLimitPerChamber
	}

	s.logger.Info("Manual sync triggered", zap.Int("limit_per_chamber", limit))
	report := s.engine.Sync(r.Context(), limit)

	if report.Success && s.processor != nil {
		if err := s.processor.ProcessPending(r.Context()); err != nil {
			s.logger.Error("Copy-trade pass failed after manual sync", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if !report.Success {
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("Failed to write sync report", zap.Error(err))
	}
}
