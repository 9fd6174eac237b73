package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/report"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPORT ANCHOR REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AnchorRepository implements report.AnchorRepository using PostgreSQL.
// The anchor survives restarts, so a redeployed bot keeps editing the same
// day message instead of spamming the chat with new ones.
type AnchorRepository struct {
	conn *Connection
}

// NewAnchorRepository creates a new AnchorRepository.
func NewAnchorRepository(conn *Connection) *AnchorRepository {
	return &AnchorRepository{conn: conn}
}

// Get retrieves the anchor for a day key.
func (r *AnchorRepository) Get(ctx context.Context, dayKey string) (*report.Anchor, error) {
	query := `
		SELECT day_key, chat_id, message_id, updated_at
		FROM report_anchors
		WHERE day_key = $1
	`

	var (
		anchor    report.Anchor
		updatedAt time.Time
	)

	err := r.conn.QueryRow(ctx, query, dayKey).Scan(&anchor.DayKey, &anchor.ChatID, &anchor.MessageID, &updatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAnchorNotFound
		}
		return nil, fmt.Errorf("failed to get report anchor: %w", err)
	}

	anchor.UpdatedAt = updatedAt

	return &anchor, nil
}

// Save stores or replaces the anchor for its day key.
func (r *AnchorRepository) Save(ctx context.Context, anchor *report.Anchor) error {
	if anchor == nil {
		return fmt.Errorf("%w: anchor is nil", shared.ErrInvalidInput)
	}

	query := `
		INSERT INTO report_anchors (day_key, chat_id, message_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (day_key) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			message_id = EXCLUDED.message_id,
			updated_at = NOW()
	`

	if _, err := r.conn.Exec(ctx, query, anchor.DayKey, anchor.ChatID, anchor.MessageID); err != nil {
		return fmt.Errorf("failed to save report anchor: %w", err)
	}

	return nil
}

// Delete removes the anchor for a day key. Deleting a missing anchor is not
// an error.
func (r *AnchorRepository) Delete(ctx context.Context, dayKey string) error {
	query := `DELETE FROM report_anchors WHERE day_key = $1`

	if _, err := r.conn.Exec(ctx, query, dayKey); err != nil {
		return fmt.Errorf("failed to delete report anchor: %w", err)
	}

	return nil
}
