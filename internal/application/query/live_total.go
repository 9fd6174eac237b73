// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIVE TOTAL QUERY
// A member's study time today: committed day total plus the in-flight session.
// ══════════════════════════════════════════════════════════════════════════════

// LiveTotalQuery contains the parameters for a live total read.
type LiveTotalQuery struct {
	// UserID is the member's identifier.
	UserID string

	// Timestamp is the read instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the query.
func (q LiveTotalQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("live_total: user_id is required")
	}
	return nil
}

// LiveTotalResult contains the result of a live total read.
type LiveTotalResult struct {
	// UserID is the member's identifier.
	UserID string

	// DayKey is the civil day the totals belong to.
	DayKey string

	// CommittedSeconds is the day total already committed.
	CommittedSeconds int64

	// LiveSeconds is the in-flight session's elapsed time, zero when idle or
	// when the session belongs to a different civil day.
	LiveSeconds int64

	// TotalSeconds is CommittedSeconds + LiveSeconds.
	TotalSeconds int64

	// State is the member's current session state.
	State session.State
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LiveTotalHandler handles the LiveTotalQuery. Strictly read-only.
type LiveTotalHandler struct {
	store    session.Store
	stats    stats.Aggregator
	resolver calendar.Resolver
}

// NewLiveTotalHandler creates a new LiveTotalHandler.
func NewLiveTotalHandler(store session.Store, aggregator stats.Aggregator, resolver calendar.Resolver) *LiveTotalHandler {
	return &LiveTotalHandler{
		store:    store,
		stats:    aggregator,
		resolver: resolver,
	}
}

// Handle executes the live total query.
func (h *LiveTotalHandler) Handle(ctx context.Context, q LiveTotalQuery) (*LiveTotalResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("live_total: validation failed: %w", err)
	}

	timestamp := q.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	keys, err := h.resolver.Resolve(timestamp)
	if err != nil {
		return nil, fmt.Errorf("live_total: failed to resolve period keys: %w", err)
	}

	committed, err := h.stats.Total(ctx, q.UserID, stats.PeriodDay, keys.Day)
	if err != nil {
		return nil, fmt.Errorf("live_total: failed to read committed total: %w", err)
	}

	sess, err := h.store.Get(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("live_total: %w", err)
	}

	var live int64
	if sess.Active() {
		// A session from a previous civil day is dead weight awaiting the
		// sweeper; it never counts toward today.
		startKeys, err := h.resolver.Resolve(sess.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("live_total: failed to resolve session start: %w", err)
		}
		if startKeys.Day == keys.Day {
			live = sess.Elapsed(timestamp)
		}
	}

	return &LiveTotalResult{
		UserID:           q.UserID,
		DayKey:           keys.Day,
		CommittedSeconds: committed,
		LiveSeconds:      live,
		TotalSeconds:     committed + live,
		State:            sess.State(),
	}, nil
}
