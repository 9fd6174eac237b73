package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// END SESSION COMMAND
// Finishes the session and commits its effective time into the daily, weekly
// and monthly totals. Sessions under the minimum floor are rejected and stay
// active, keeping their original start instant.
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionCommand contains the data to end a session.
type EndSessionCommand struct {
	// UserID is the member's identifier.
	UserID string

	// Timestamp is the end instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c EndSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("end_session: user_id is required")
	}
	return nil
}

// EndSessionResult contains the result of ending a session.
type EndSessionResult struct {
	// UserID is the member's identifier.
	UserID string

	// CommittedSeconds is the effective study time added to the totals.
	CommittedSeconds int64

	// Keys are the period keys the time was committed under.
	Keys calendar.PeriodKeys
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EndSessionHandler handles the EndSessionCommand.
type EndSessionHandler struct {
	store      session.Store
	stats      stats.Aggregator
	resolver   calendar.Resolver
	cache      stats.SnapshotCache
	recorder   Recorder
	log        *logger.Logger
	minSeconds int64
}

// NewEndSessionHandler creates a new EndSessionHandler. cache may be nil when
// the snapshot cache is disabled. A non-positive minSeconds falls back to the
// domain default floor.
func NewEndSessionHandler(
	store session.Store,
	aggregator stats.Aggregator,
	resolver calendar.Resolver,
	cache stats.SnapshotCache,
	recorder Recorder,
	log *logger.Logger,
	minSeconds int64,
) *EndSessionHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}
	if minSeconds <= 0 {
		minSeconds = session.MinSessionSeconds
	}

	return &EndSessionHandler{
		store:      store,
		stats:      aggregator,
		resolver:   resolver,
		cache:      cache,
		recorder:   recorder,
		log:        log,
		minSeconds: minSeconds,
	}
}

// Handle executes the end session command.
func (h *EndSessionHandler) Handle(ctx context.Context, cmd EndSessionCommand) (*EndSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("end_session: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sweepExpired(ctx, h.store, h.recorder, h.log, timestamp)

	// Capture the display name before End clears the session row.
	sess, err := h.store.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("end_session: %w", err)
	}
	displayName := sess.DisplayName

	elapsed, err := h.store.End(ctx, cmd.UserID, timestamp, h.minSeconds)
	if err != nil {
		return nil, fmt.Errorf("end_session: %w", err)
	}

	// The sweep above guarantees the session started on this civil day, so
	// the end instant resolves to the buckets the time belongs to.
	keys, err := h.resolver.Resolve(timestamp)
	if err != nil {
		return nil, fmt.Errorf("end_session: failed to resolve period keys: %w", err)
	}

	if err := h.stats.Commit(ctx, cmd.UserID, displayName, keys, elapsed); err != nil {
		return nil, fmt.Errorf("end_session: failed to commit totals: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx, keys); err != nil {
			h.log.Warn("snapshot cache invalidation failed", logger.Err(err), logger.UserID(cmd.UserID))
		}
	}

	h.recorder.SessionEnded(elapsed)
	h.log.Info("session ended",
		logger.UserID(cmd.UserID),
		logger.Elapsed(elapsed),
		logger.PeriodKey(keys.Day),
	)

	return &EndSessionResult{
		UserID:           cmd.UserID,
		CommittedSeconds: elapsed,
		Keys:             keys,
	}, nil
}
