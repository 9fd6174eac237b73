package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START SESSION COMMAND
// Begins a study session: registers the member on today's board and starts
// the clock. Fails with AlreadyActive if a session is in progress.
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionCommand contains the data to start a session.
type StartSessionCommand struct {
	// UserID is the member's identifier.
	UserID string

	// DisplayName is the name shown on the board. Last write wins.
	DisplayName string

	// Timestamp is the start instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c StartSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("start_session: user_id is required")
	}
	if c.DisplayName == "" {
		return errors.New("start_session: display_name is required")
	}
	return nil
}

// StartSessionResult contains the result of starting a session.
type StartSessionResult struct {
	// UserID is the member's identifier.
	UserID string

	// StartedAt is the instant the clock started.
	StartedAt time.Time

	// Keys are the period keys the session will commit into if it ends on
	// the same civil day.
	Keys calendar.PeriodKeys
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// StartSessionHandler handles the StartSessionCommand.
type StartSessionHandler struct {
	store    session.Store
	users    user.Repository
	stats    stats.Aggregator
	resolver calendar.Resolver
	recorder Recorder
	log      *logger.Logger
}

// NewStartSessionHandler creates a new StartSessionHandler.
func NewStartSessionHandler(
	store session.Store,
	users user.Repository,
	aggregator stats.Aggregator,
	resolver calendar.Resolver,
	recorder Recorder,
	log *logger.Logger,
) *StartSessionHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}

	return &StartSessionHandler{
		store:    store,
		users:    users,
		stats:    aggregator,
		resolver: resolver,
		recorder: recorder,
		log:      log,
	}
}

// Handle executes the start session command.
func (h *StartSessionHandler) Handle(ctx context.Context, cmd StartSessionCommand) (*StartSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_session: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sweepExpired(ctx, h.store, h.recorder, h.log, timestamp)

	u, err := user.New(cmd.UserID, cmd.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}
	if err := h.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("start_session: failed to upsert user: %w", err)
	}

	keys, err := h.resolver.Resolve(timestamp)
	if err != nil {
		return nil, fmt.Errorf("start_session: failed to resolve period keys: %w", err)
	}
	if err := h.stats.Ensure(ctx, cmd.UserID, cmd.DisplayName, keys); err != nil {
		return nil, fmt.Errorf("start_session: failed to ensure stat rows: %w", err)
	}

	if err := h.store.Start(ctx, cmd.UserID, timestamp); err != nil {
		return nil, fmt.Errorf("start_session: %w", err)
	}

	h.recorder.SessionStarted()
	h.log.Info("session started", logger.UserID(cmd.UserID), logger.PeriodKey(keys.Day))

	return &StartSessionResult{
		UserID:    cmd.UserID,
		StartedAt: timestamp,
		Keys:      keys,
	}, nil
}

// sweepExpired runs the opportunistic sweep before a command touches state.
// Best effort: a sweep failure is logged and the command proceeds.
func sweepExpired(ctx context.Context, store session.Store, recorder Recorder, log *logger.Logger, now time.Time) {
	swept, err := store.SweepExpired(ctx, now)
	if err != nil {
		log.Warn("opportunistic sweep failed", logger.Err(err))
		return
	}
	if swept > 0 {
		recorder.SessionsSwept(swept)
		log.Info("swept expired sessions", logger.Swept(swept))
	}
}
