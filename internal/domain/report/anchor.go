// Package report models the published live-report message: one pinned-style
// message per civil day that the refresh job keeps editing in place.
package report

import (
	"context"
	"errors"
	"time"
)

// ErrMessageGone indicates the previously published report message no longer
// exists (deleted by an admin, chat purged). The publisher should post a fresh
// message and move the anchor instead of failing the refresh tick.
var ErrMessageGone = errors.New("report: published message is gone")

// Anchor points at the live report message for one civil day.
type Anchor struct {
	// DayKey is the civil-day key ("2006-01-02") the report covers.
	DayKey string

	// ChatID is the Telegram chat the report was published to.
	ChatID int64

	// MessageID is the message being edited on every refresh tick.
	MessageID int64

	UpdatedAt time.Time
}

// AnchorRepository is the persistence contract for report anchors.
type AnchorRepository interface {
	// Get returns the anchor for a day or shared.ErrAnchorNotFound.
	Get(ctx context.Context, dayKey string) (*Anchor, error)

	// Save creates or replaces the anchor for its day.
	Save(ctx context.Context, a *Anchor) error

	// Delete removes the anchor for a day. Deleting a missing anchor is a no-op.
	Delete(ctx context.Context, dayKey string) error
}

// Publisher is the outbound messaging contract the report jobs need.
// Edit returns ErrMessageGone when the target message no longer exists.
type Publisher interface {
	Publish(ctx context.Context, chatID int64, text string) (messageID int64, err error)
	Edit(ctx context.Context, chatID, messageID int64, text string) error
}
