package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/session"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP EXPIRED JOB
// ══════════════════════════════════════════════════════════════════════════════

// SweepExpiredJob periodically discards active sessions whose start day has
// passed. It complements the opportunistic sweep at the command boundary, so
// stale sessions disappear even when nobody issues commands.
type SweepExpiredJob struct {
	store    session.Store
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// NewSweepExpiredJob creates a new SweepExpiredJob.
func NewSweepExpiredJob(store session.Store, recorder Recorder, logger *slog.Logger, timeout time.Duration) *SweepExpiredJob {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &SweepExpiredJob{
		store:    store,
		recorder: recorder,
		logger:   logger,
		timeout:  timeout,
	}
}

// Name returns the unique name of the job.
func (j *SweepExpiredJob) Name() string {
	return "sweep_expired"
}

// Description returns a human-readable description of the job.
func (j *SweepExpiredJob) Description() string {
	return "Discards active sessions that span a day boundary"
}

// Run executes the job.
func (j *SweepExpiredJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	swept, err := j.store.SweepExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("sweep_expired: %w", err)
	}

	if swept > 0 {
		j.recorder.SessionsSwept(swept)
		j.logger.Info("swept expired sessions", "job", j.Name(), "swept", swept)
	}

	return nil
}
