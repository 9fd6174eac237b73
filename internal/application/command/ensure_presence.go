package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENSURE PRESENCE COMMAND
// Registers a member on today's board: upserts the display name and creates
// zero-valued stat rows, so the member is visible before any time is committed.
// ══════════════════════════════════════════════════════════════════════════════

// EnsurePresenceCommand contains the data to register a member.
type EnsurePresenceCommand struct {
	// UserID is the member's identifier.
	UserID string

	// DisplayName is the name shown on the board. Last write wins.
	DisplayName string

	// Timestamp is the presence instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c EnsurePresenceCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("ensure_presence: user_id is required")
	}
	if c.DisplayName == "" {
		return errors.New("ensure_presence: display_name is required")
	}
	return nil
}

// EnsurePresenceResult contains the result of registering a member.
type EnsurePresenceResult struct {
	// UserID is the member's identifier.
	UserID string

	// Keys are the period keys the member now has rows under.
	Keys calendar.PeriodKeys
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnsurePresenceHandler handles the EnsurePresenceCommand.
type EnsurePresenceHandler struct {
	users    user.Repository
	stats    stats.Aggregator
	resolver calendar.Resolver
}

// NewEnsurePresenceHandler creates a new EnsurePresenceHandler.
func NewEnsurePresenceHandler(users user.Repository, aggregator stats.Aggregator, resolver calendar.Resolver) *EnsurePresenceHandler {
	return &EnsurePresenceHandler{
		users:    users,
		stats:    aggregator,
		resolver: resolver,
	}
}

// Handle executes the ensure presence command.
func (h *EnsurePresenceHandler) Handle(ctx context.Context, cmd EnsurePresenceCommand) (*EnsurePresenceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("ensure_presence: validation failed: %w", err)
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	u, err := user.New(cmd.UserID, cmd.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("ensure_presence: %w", err)
	}

	if err := h.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("ensure_presence: failed to upsert user: %w", err)
	}

	keys, err := h.resolver.Resolve(timestamp)
	if err != nil {
		return nil, fmt.Errorf("ensure_presence: failed to resolve period keys: %w", err)
	}

	if err := h.stats.Ensure(ctx, cmd.UserID, cmd.DisplayName, keys); err != nil {
		return nil, fmt.Errorf("ensure_presence: failed to ensure stat rows: %w", err)
	}

	return &EnsurePresenceResult{
		UserID: cmd.UserID,
		Keys:   keys,
	}, nil
}
