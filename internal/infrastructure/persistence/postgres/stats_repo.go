package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements stats.Aggregator over the three period tables.
// Commits touch all three tables inside one transaction, so a committed
// session is visible in the daily, weekly and monthly standings atomically.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

// statsTable maps a period to its table. Period keys never collide across
// periods, but separate tables keep the ranked indexes small.
func statsTable(period stats.Period) (string, error) {
	switch period {
	case stats.PeriodDay:
		return "daily_stats", nil
	case stats.PeriodWeek:
		return "weekly_stats", nil
	case stats.PeriodMonth:
		return "monthly_stats", nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownPeriod, period)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

// Ensure creates zero rows for the user in all three period tables so the
// user appears on the board the moment a session starts.
func (r *StatsRepository) Ensure(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys) error {
	return r.upsertAll(ctx, userID, displayName, keys, 0)
}

// Commit adds a finished session's seconds to the user's daily, weekly and
// monthly totals in one transaction.
func (r *StatsRepository) Commit(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: %d", shared.ErrNegativeSeconds, seconds)
	}
	return r.upsertAll(ctx, userID, displayName, keys, seconds)
}

func (r *StatsRepository) upsertAll(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys, seconds int64) error {
	if keys.IsZero() {
		return shared.ErrZeroInstant
	}

	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		for _, period := range stats.Periods() {
			table, err := statsTable(period)
			if err != nil {
				return err
			}

			query := fmt.Sprintf(`
				INSERT INTO %s (user_id, period_key, display_name, total_seconds)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_id, period_key) DO UPDATE SET
					total_seconds = %s.total_seconds + EXCLUDED.total_seconds,
					display_name = EXCLUDED.display_name
			`, table, table)

			if _, err := tx.Exec(ctx, query, userID, period.KeyFor(keys), displayName, seconds); err != nil {
				return fmt.Errorf("failed to upsert %s: %w", table, err)
			}
		}
		return nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// Total returns a user's committed seconds for one period key. A user with no
// committed row has a zero total, not an error.
func (r *StatsRepository) Total(ctx context.Context, userID string, period stats.Period, key string) (int64, error) {
	table, err := statsTable(period)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT total_seconds FROM %s WHERE user_id = $1 AND period_key = $2`, table)

	var total int64
	if err := r.conn.QueryRow(ctx, query, userID, key).Scan(&total); err != nil {
		if IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get total: %w", err)
	}

	return total, nil
}

// Ranked returns the committed standings for one period key, most seconds
// first, user id breaking ties.
func (r *StatsRepository) Ranked(ctx context.Context, period stats.Period, key string) ([]stats.Entry, error) {
	table, err := statsTable(period)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT user_id, display_name, total_seconds, updated_at
		FROM %s
		WHERE period_key = $1
		ORDER BY total_seconds DESC, user_id ASC
	`, table)

	rows, err := r.conn.Query(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked stats: %w", err)
	}
	defer rows.Close()

	var entries []stats.Entry
	for rows.Next() {
		var e stats.Entry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.TotalSeconds, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
