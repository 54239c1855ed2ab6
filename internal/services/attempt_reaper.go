package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// AttemptReaper periodically abandons attempts stranded on closed exam
// windows. It runs inside the service process; all instances may run it
// concurrently because the underlying update is idempotent.
type AttemptReaper struct {
	cron     *cron.Cron
	attempts AttemptService
	logger   *slog.Logger
	schedule string
}

func NewAttemptReaper(attempts AttemptService, schedule string, logger *slog.Logger) *AttemptReaper {
	return &AttemptReaper{
		cron:     cron.New(),
		attempts: attempts,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the reap job and begins the schedule.
func (r *AttemptReaper) Start() error {
	_, err := r.cron.AddFunc(r.schedule, r.run)
	if err != nil {
		return fmt.Errorf("invalid reaper schedule %q: %w", r.schedule, err)
	}

	r.cron.Start()
	r.logger.Info("Attempt reaper started", "schedule", r.schedule)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (r *AttemptReaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Attempt reaper stopped")
}

func (r *AttemptReaper) run() {
	reaped, err := r.attempts.ReapExpired(context.Background())
	if err != nil {
		r.logger.Error("Attempt reaping failed", "error", err)
		return
	}
	if reaped > 0 {
		r.logger.Info("Attempt reaping pass complete", "reaped", reaped)
	}
}
