package scheduler

import (
	"context"
	"time"

	"congress-trade-bot-go/internal/config"
	"github.com/adhocore/gronx"
	"go.uber.org/zap"
)

// Job is a named unit of work triggered on a cron schedule.
type Job struct {
	Name string
	Expr string
	Run  func(ctx context.Context) error
}

// Scheduler fires registered jobs on their cron schedules, checking
// expressions once per minute. A failing job is retried with a fixed
// backoff; the jobs themselves stay ignorant of the retry policy.
type Scheduler struct {
	logger  *zap.Logger
	gron    *gronx.Gronx
	jobs    []Job
	retries int
	backoff time.Duration
}

// New creates a scheduler.
func New(logger *zap.Logger, cfg *config.Scheduler) *Scheduler {
	return &Scheduler{
		logger:  logger.Named("scheduler"),
		gron:    gronx.New(),
		retries: cfg.Retries,
		backoff: time.Duration(cfg.BackoffSeconds) * time.Second,
	}
}

// Add registers a job. Must be called before Run.
func (s *Scheduler) Add(name, expr string, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, Job{Name: name, Expr: expr, Run: run})
	s.logger.Info("Registered job", zap.String("job", name), zap.String("schedule", expr))
}

// Run blocks until the context is cancelled, firing due jobs each
// minute. Jobs run in their own goroutines so a slow sync cannot delay
// the stats refresh.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopping")
			return
		case now := <-ticker.C:
			for _, job := range s.jobs {
				due, err := s.gron.IsDue(job.Expr, now)
				if err != nil {
					s.logger.Error("Invalid cron expression",
						zap.String("job", job.Name),
						zap.String("expr", job.Expr),
						zap.Error(err))
					continue
				}
				if due {
					go s.runJob(ctx, job)
				}
			}
		}
	}
}

// runJob executes one job, retrying on error up to the configured
// attempt count with a fixed backoff between attempts.
func (s *Scheduler) runJob(ctx context.Context, job Job) {
	for attempt := 0; ; attempt++ {
		err := job.Run(ctx)
		if err == nil {
			return
		}

		if attempt >= s.retries {
			s.logger.Error("Job failed after retries were exhausted",
				zap.String("job", job.Name),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return
		}

		s.logger.Warn("Job failed, retrying",
			zap.String("job", job.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", s.backoff),
			zap.Error(err))

		select {
		case <-time.After(s.backoff):
		case <-ctx.Done():
			return
		}
	}
}
