package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Store on the users table.
//
// Every transition is a single conditional UPDATE so concurrent commands for
// the same user serialize on the row: exactly one statement matches, the rest
// observe zero affected rows and classify the conflict with a follow-up read.
type SessionRepository struct {
	conn *Connection

	// tz is the operating timezone name used for civil-day comparisons
	// inside SQL (e.g. "+03:30" or "Asia/Tehran").
	tz string
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection, tz string) *SessionRepository {
	if tz == "" {
		tz = "Asia/Tehran"
	}
	return &SessionRepository{conn: conn, tz: tz}
}

// elapsedExpr computes the effective elapsed seconds of the active session
// in SQL: the clock runs from started to paused-or-now, minus finished pauses,
// clamped to zero. The columns are read from the cur CTE because RETURNING on
// an UPDATE sees the row's new contents, and End has just nulled them.
const elapsedExpr = `GREATEST(0, EXTRACT(EPOCH FROM (COALESCE(cur.session_paused_at, $2::timestamptz) - cur.session_started_at))::bigint - cur.session_paused_seconds)`

// ─────────────────────────────────────────────────────────────────────────────
// Transitions
// ─────────────────────────────────────────────────────────────────────────────

// Start begins a session for an idle user.
func (r *SessionRepository) Start(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE users SET
			session_started_at = $2,
			session_paused_at = NULL,
			session_paused_seconds = 0
		WHERE user_id = $1 AND session_started_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classify(ctx, userID, shared.ErrAlreadyActive)
	}

	return nil
}

// Pause stops the clock of a running session.
func (r *SessionRepository) Pause(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE users SET session_paused_at = $2
		WHERE user_id = $1
		  AND session_started_at IS NOT NULL
		  AND session_paused_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to pause session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classify(ctx, userID, shared.ErrAlreadyPaused)
	}

	return nil
}

// Resume restarts the clock, folding the finished pause into the total.
func (r *SessionRepository) Resume(ctx context.Context, userID string, now time.Time) error {
	query := `
		UPDATE users SET
			session_paused_seconds = session_paused_seconds +
				GREATEST(0, EXTRACT(EPOCH FROM ($2::timestamptz - session_paused_at))::bigint),
			session_paused_at = NULL
		WHERE user_id = $1
		  AND session_started_at IS NOT NULL
		  AND session_paused_at IS NOT NULL
	`

	result, err := r.conn.Exec(ctx, query, userID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classify(ctx, userID, shared.ErrNotPaused)
	}

	return nil
}

// End finishes the session and returns its effective elapsed seconds.
// Sessions under the floor are left untouched.
func (r *SessionRepository) End(ctx context.Context, userID string, now time.Time, minSeconds int64) (int64, error) {
	query := `
		WITH cur AS (
			SELECT user_id, session_started_at, session_paused_at, session_paused_seconds
			FROM users
			WHERE user_id = $1 AND session_started_at IS NOT NULL
		)
		UPDATE users SET
			session_started_at = NULL,
			session_paused_at = NULL,
			session_paused_seconds = 0
		FROM cur
		WHERE users.user_id = cur.user_id
		  AND ` + elapsedExpr + ` >= $3
		RETURNING ` + elapsedExpr

	var elapsed int64
	err := r.conn.QueryRow(ctx, query, userID, now.UTC(), minSeconds).Scan(&elapsed)
	if err == nil {
		return elapsed, nil
	}
	if !IsNoRows(err) {
		return 0, fmt.Errorf("failed to end session: %w", err)
	}

	// No row matched: either nothing is active or the session is too short.
	sess, getErr := r.Get(ctx, userID)
	if getErr != nil {
		return 0, getErr
	}
	if !sess.Active() {
		return 0, shared.ErrNoActiveSession
	}
	return 0, shared.ErrSessionTooShort
}

// classify explains a zero-row conditional update. The follow-up read runs
// outside the failed statement, on the error path only.
func (r *SessionRepository) classify(ctx context.Context, userID string, conflict error) error {
	sess, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !sess.Active() {
		return shared.ErrNoActiveSession
	}
	return conflict
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the session snapshot for a user.
func (r *SessionRepository) Get(ctx context.Context, userID string) (*session.Session, error) {
	query := `
		SELECT user_id, display_name, session_started_at, session_paused_at, session_paused_seconds
		FROM users
		WHERE user_id = $1
	`

	row := r.conn.QueryRow(ctx, query, userID)
	sess, err := scanSession(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

// Active returns all in-progress sessions.
func (r *SessionRepository) Active(ctx context.Context) ([]*session.Session, error) {
	query := `
		SELECT user_id, display_name, session_started_at, session_paused_at, session_paused_seconds
		FROM users
		WHERE session_started_at IS NOT NULL
		ORDER BY user_id
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Expiry
// ─────────────────────────────────────────────────────────────────────────────

// SweepExpired clears every active session that did not start on now's civil
// day. Expired time is discarded, never committed.
func (r *SessionRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET
			session_started_at = NULL,
			session_paused_at = NULL,
			session_paused_seconds = 0
		WHERE session_started_at IS NOT NULL
		  AND (session_started_at AT TIME ZONE $1)::date <> ($2::timestamptz AT TIME ZONE $1)::date
	`

	result, err := r.conn.Exec(ctx, query, r.tz, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	return result.RowsAffected(), nil
}

// scanSession scans a session row. NULL session columns map to the idle state.
func scanSession(row pgx.Row) (*session.Session, error) {
	var (
		sess          session.Session
		startedAt     *time.Time
		pausedAt      *time.Time
		pausedSeconds int64
	)

	if err := row.Scan(&sess.UserID, &sess.DisplayName, &startedAt, &pausedAt, &pausedSeconds); err != nil {
		return nil, err
	}

	if startedAt != nil {
		sess.StartedAt = *startedAt
	}
	if pausedAt != nil {
		sess.PausedAt = *pausedAt
	}
	sess.PausedSeconds = pausedSeconds

	return &sess, nil
}
