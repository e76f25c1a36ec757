package ingest

import (
	"time"

	"github.com/google/uuid"
)

// Report summarizes one reconciliation run. It is returned to the
// caller (manual trigger or scheduler) and never persisted.
type Report struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationSec float64   `json:"duration_seconds"`

	TradesFetched      int `json:"trades_fetched"`
	TradesStored       int `json:"trades_stored"`
	TradesUpdated      int `json:"trades_updated"`
	PoliticiansCreated int `json:"politicians_created"`

	// Per-record failures. These never flip Success; only a fetch that
	// produced nothing or a store-level rollback does.
	Errors  []string `json:"errors"`
	Success bool     `json:"success"`
}

func newReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Errors:    []string{},
	}
}

func (r *Report) finish() {
	r.CompletedAt = time.Now().UTC()
	r.DurationSec = r.CompletedAt.Sub(r.StartedAt).Seconds()
}
