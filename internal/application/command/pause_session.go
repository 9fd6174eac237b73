package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAUSE SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// PauseSessionCommand contains the data to pause a running session.
type PauseSessionCommand struct {
	// UserID is the member's identifier.
	UserID string

	// Timestamp is the pause instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c PauseSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("pause_session: user_id is required")
	}
	return nil
}

// PauseSessionResult contains the result of pausing a session.
type PauseSessionResult struct {
	// UserID is the member's identifier.
	UserID string

	// ElapsedSeconds is the effective study time accumulated so far.
	ElapsedSeconds int64
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// PauseSessionHandler handles the PauseSessionCommand.
type PauseSessionHandler struct {
	store    session.Store
	recorder Recorder
	log      *logger.Logger
}

// NewPauseSessionHandler creates a new PauseSessionHandler.
func NewPauseSessionHandler(store session.Store, recorder Recorder, log *logger.Logger) *PauseSessionHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}

	return &PauseSessionHandler{
		store:    store,
		recorder: recorder,
		log:      log,
	}
}

// Handle executes the pause session command.
func (h *PauseSessionHandler) Handle(ctx context.Context, cmd PauseSessionCommand) (*PauseSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("pause_session: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sweepExpired(ctx, h.store, h.recorder, h.log, timestamp)

	if err := h.store.Pause(ctx, cmd.UserID, timestamp); err != nil {
		return nil, fmt.Errorf("pause_session: %w", err)
	}

	sess, err := h.store.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("pause_session: failed to read back session: %w", err)
	}

	h.log.Info("session paused", logger.UserID(cmd.UserID), logger.Elapsed(sess.Elapsed(timestamp)))

	return &PauseSessionResult{
		UserID:         cmd.UserID,
		ElapsedSeconds: sess.Elapsed(timestamp),
	}, nil
}
