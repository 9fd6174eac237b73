package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/study-tracker-hub/internal/application/query"
	"github.com/studyhub/study-tracker-hub/internal/domain/report"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY REPORT JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailyReportJob runs just after local midnight: it sweeps the day-spanning
// sessions, publishes the previous day's final ranking as a fresh message,
// and drops the previous day's anchor so the live report starts a new thread.
type DailyReportJob struct {
	store     session.Store
	snapshot  *query.RankedSnapshotHandler
	anchors   report.AnchorRepository
	publisher report.Publisher
	recorder  Recorder
	logger    *slog.Logger

	chatID  int64
	loc     *time.Location
	timeout time.Duration
}

// DailyReportConfig contains configuration for the daily report job.
type DailyReportConfig struct {
	// ChatID is the group chat the report is published to.
	ChatID int64

	// Location is the operating timezone the day rolls over in.
	Location *time.Location

	// Timeout bounds one run.
	Timeout time.Duration
}

// NewDailyReportJob creates a new DailyReportJob.
func NewDailyReportJob(
	store session.Store,
	snapshot *query.RankedSnapshotHandler,
	anchors report.AnchorRepository,
	publisher report.Publisher,
	recorder Recorder,
	logger *slog.Logger,
	config DailyReportConfig,
) *DailyReportJob {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Location == nil {
		config.Location = timeutil.TehranTZ
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Minute
	}

	return &DailyReportJob{
		store:     store,
		snapshot:  snapshot,
		anchors:   anchors,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		chatID:    config.ChatID,
		loc:       config.Location,
		timeout:   config.Timeout,
	}
}

// Name returns the unique name of the job.
func (j *DailyReportJob) Name() string {
	return "daily_report"
}

// Description returns a human-readable description of the job.
func (j *DailyReportJob) Description() string {
	return "Publishes the previous day's final ranking after midnight"
}

// Run executes the job.
func (j *DailyReportJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	runID := uuid.NewString()
	log := j.logger.With("job", j.Name(), "run_id", runID)
	now := time.Now()

	// Sweep first so no stale live time leaks into the final ranking.
	swept, err := j.store.SweepExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("daily_report: sweep failed: %w", err)
	}
	if swept > 0 {
		j.recorder.SessionsSwept(swept)
		log.Info("swept expired sessions before rollover", "swept", swept)
	}

	// The last instant of the previous civil day selects its buckets.
	yesterday := timeutil.StartOfDay(now).Add(-time.Second)

	res, err := j.snapshot.Handle(ctx, query.RankedSnapshotQuery{
		Period:    stats.PeriodDay,
		Timestamp: yesterday,
	})
	if err != nil {
		return fmt.Errorf("daily_report: snapshot failed: %w", err)
	}

	text := renderReport("Final study board", res)

	if _, err := j.publisher.Publish(ctx, j.chatID, text); err != nil {
		return fmt.Errorf("daily_report: publish failed: %w", err)
	}
	j.recorder.ReportPublished()

	if err := j.anchors.Delete(ctx, res.Key); err != nil {
		log.Warn("failed to drop previous day's anchor", "day_key", res.Key, "error", err)
	}

	log.Info("daily report published", "day_key", res.Key, "rows", len(res.Rows))

	return nil
}
