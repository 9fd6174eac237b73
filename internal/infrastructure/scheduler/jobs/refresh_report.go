package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/study-tracker-hub/internal/application/query"
	"github.com/studyhub/study-tracker-hub/internal/domain/report"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH REPORT JOB
// ══════════════════════════════════════════════════════════════════════════════

// Locker serializes a job across worker instances. Acquire returns false when
// another instance already holds the lock; the implementation owns the TTL.
type Locker interface {
	AcquireLock(ctx context.Context, resource string) (bool, error)
	ReleaseLock(ctx context.Context, resource string) error
}

// RefreshReportJob edits the pinned live report message with the current
// day's ranked snapshot. The anchored message can disappear at any time
// (deleted by an admin, chat migrated); that is an expected failure handled
// by republishing, not an error that stops the scheduler.
type RefreshReportJob struct {
	snapshot  *query.RankedSnapshotHandler
	anchors   report.AnchorRepository
	publisher report.Publisher
	recorder  Recorder
	locker    Locker
	logger    *slog.Logger

	chatID  int64
	timeout time.Duration
}

// RefreshReportConfig contains configuration for the refresh job.
type RefreshReportConfig struct {
	// ChatID is the group chat the report lives in.
	ChatID int64

	// Timeout bounds one refresh tick.
	Timeout time.Duration
}

// NewRefreshReportJob creates a new RefreshReportJob. A nil locker means the
// deployment runs a single worker and no cross-instance coordination happens.
func NewRefreshReportJob(
	snapshot *query.RankedSnapshotHandler,
	anchors report.AnchorRepository,
	publisher report.Publisher,
	recorder Recorder,
	locker Locker,
	logger *slog.Logger,
	config RefreshReportConfig,
) *RefreshReportJob {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshReportJob{
		snapshot:  snapshot,
		anchors:   anchors,
		publisher: publisher,
		recorder:  recorder,
		locker:    locker,
		logger:    logger,
		chatID:    config.ChatID,
		timeout:   config.Timeout,
	}
}

// Name returns the unique name of the job.
func (j *RefreshReportJob) Name() string {
	return "refresh_report"
}

// Description returns a human-readable description of the job.
func (j *RefreshReportJob) Description() string {
	return "Edits the live report message with the current day's ranking"
}

// Run executes the job.
func (j *RefreshReportJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	runID := uuid.NewString()
	log := j.logger.With("job", j.Name(), "run_id", runID)

	if j.locker != nil {
		held, err := j.locker.AcquireLock(ctx, j.Name())
		if err != nil {
			// A broken lock backend must not silence the board; proceed and
			// accept the chance of a duplicate edit.
			log.Warn("lock acquire failed, refreshing without it", "error", err)
		} else if !held {
			log.Debug("another instance holds the refresh lock, skipping tick")
			return nil
		} else {
			defer func() {
				if err := j.locker.ReleaseLock(ctx, j.Name()); err != nil {
					log.Warn("lock release failed", "error", err)
				}
			}()
		}
	}

	res, err := j.snapshot.Handle(ctx, query.RankedSnapshotQuery{Period: stats.PeriodDay})
	if err != nil {
		j.recorder.RefreshFailed()
		return fmt.Errorf("refresh_report: snapshot failed: %w", err)
	}

	text := renderReport("Today's study board", res)

	if err := j.publishOrEdit(ctx, res.Key, text); err != nil {
		j.recorder.RefreshFailed()
		log.Error("live report refresh failed", "day_key", res.Key, "error", err)
		return err
	}

	j.recorder.ReportPublished()
	log.Debug("live report refreshed", "day_key", res.Key, "rows", len(res.Rows))

	return nil
}

// publishOrEdit edits the day's anchored message, publishing a fresh one when
// no anchor exists yet or the anchored message is gone.
func (j *RefreshReportJob) publishOrEdit(ctx context.Context, dayKey, text string) error {
	anchor, err := j.anchors.Get(ctx, dayKey)
	switch {
	case err == nil:
		editErr := j.publisher.Edit(ctx, anchor.ChatID, anchor.MessageID, text)
		if editErr == nil {
			return nil
		}
		if !errors.Is(editErr, report.ErrMessageGone) {
			return fmt.Errorf("refresh_report: edit failed: %w", editErr)
		}
		j.logger.Warn("anchored message gone, republishing", "day_key", dayKey)
	case errors.Is(err, shared.ErrAnchorNotFound):
		// First tick of the day.
	default:
		return fmt.Errorf("refresh_report: anchor lookup failed: %w", err)
	}

	messageID, err := j.publisher.Publish(ctx, j.chatID, text)
	if err != nil {
		return fmt.Errorf("refresh_report: publish failed: %w", err)
	}

	if err := j.anchors.Save(ctx, &report.Anchor{
		DayKey:    dayKey,
		ChatID:    j.chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("refresh_report: anchor save failed: %w", err)
	}

	return nil
}
