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
// RESUME SESSION COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ResumeSessionCommand contains the data to resume a paused session.
type ResumeSessionCommand struct {
	// UserID is the member's identifier.
	UserID string

	// Timestamp is the resume instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c ResumeSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("resume_session: user_id is required")
	}
	return nil
}

// ResumeSessionResult contains the result of resuming a session.
type ResumeSessionResult struct {
	// UserID is the member's identifier.
	UserID string

	// ElapsedSeconds is the effective study time accumulated so far.
	ElapsedSeconds int64
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ResumeSessionHandler handles the ResumeSessionCommand.
type ResumeSessionHandler struct {
	store    session.Store
	recorder Recorder
	log      *logger.Logger
}

// NewResumeSessionHandler creates a new ResumeSessionHandler.
func NewResumeSessionHandler(store session.Store, recorder Recorder, log *logger.Logger) *ResumeSessionHandler {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if log == nil {
		log = logger.Default()
	}

	return &ResumeSessionHandler{
		store:    store,
		recorder: recorder,
		log:      log,
	}
}

// Handle executes the resume session command.
func (h *ResumeSessionHandler) Handle(ctx context.Context, cmd ResumeSessionCommand) (*ResumeSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("resume_session: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	sweepExpired(ctx, h.store, h.recorder, h.log, timestamp)

	if err := h.store.Resume(ctx, cmd.UserID, timestamp); err != nil {
		return nil, fmt.Errorf("resume_session: %w", err)
	}

	sess, err := h.store.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("resume_session: failed to read back session: %w", err)
	}

	h.log.Info("session resumed", logger.UserID(cmd.UserID), logger.Elapsed(sess.Elapsed(timestamp)))

	return &ResumeSessionResult{
		UserID:         cmd.UserID,
		ElapsedSeconds: sess.Elapsed(timestamp),
	}, nil
}
