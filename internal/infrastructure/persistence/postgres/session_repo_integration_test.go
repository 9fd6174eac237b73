//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

// newTestConnection connects to the database named by TEST_DATABASE_URL and
// applies migrations. Tests use throwaway user ids so runs never collide.
func newTestConnection(t *testing.T) *Connection {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := NewConnectionFromURL(ctx, url)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	require.NoError(t, NewMigrator(conn).Migrate(ctx))

	return conn
}

func seedUser(t *testing.T, conn *Connection, displayName string) string {
	t.Helper()

	userID := uuid.NewString()
	u, err := user.New(userID, displayName)
	require.NoError(t, err)
	require.NoError(t, NewUserRepository(conn).Upsert(context.Background(), u))

	return userID
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestEndReturnsElapsedSeconds(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewSessionRepository(conn, "")
	ctx := context.Background()

	userID := seedUser(t, conn, "Alice")

	end := time.Now().UTC().Truncate(time.Second)
	start := end.Add(-10 * time.Minute)

	require.NoError(t, repo.Start(ctx, userID, start))
	require.NoError(t, repo.Pause(ctx, userID, start.Add(2*time.Minute)))
	require.NoError(t, repo.Resume(ctx, userID, start.Add(5*time.Minute)))

	elapsed, err := repo.End(ctx, userID, end, session.MinSessionSeconds)
	require.NoError(t, err)

	// 10 minutes on the wall clock minus the 3-minute pause.
	assert.Equal(t, int64(420), elapsed)

	sess, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	assert.False(t, sess.Active())
}

func TestEndTooShortLeavesSessionIntact(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewSessionRepository(conn, "")
	ctx := context.Background()

	userID := seedUser(t, conn, "Bob")

	now := time.Now().UTC().Truncate(time.Second)
	start := now.Add(-30 * time.Second)

	require.NoError(t, repo.Start(ctx, userID, start))

	_, err := repo.End(ctx, userID, now, session.MinSessionSeconds)
	require.ErrorIs(t, err, shared.ErrSessionTooShort)

	// The clock keeps running; ending later succeeds with the full elapsed.
	sess, err := repo.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, sess.Active())
	assert.Equal(t, start, sess.StartedAt.UTC())

	elapsed, err := repo.End(ctx, userID, start.Add(2*time.Minute), session.MinSessionSeconds)
	require.NoError(t, err)
	assert.Equal(t, int64(120), elapsed)
}

func TestEndWithoutSessionFails(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewSessionRepository(conn, "")
	ctx := context.Background()

	userID := seedUser(t, conn, "Carol")

	_, err := repo.End(ctx, userID, time.Now().UTC(), session.MinSessionSeconds)
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)
}

func TestTransitionConflictsClassified(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewSessionRepository(conn, "")
	ctx := context.Background()

	userID := seedUser(t, conn, "Dave")
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Start(ctx, userID, now))
	assert.ErrorIs(t, repo.Start(ctx, userID, now), shared.ErrAlreadyActive)
	assert.ErrorIs(t, repo.Resume(ctx, userID, now), shared.ErrNotPaused)

	require.NoError(t, repo.Pause(ctx, userID, now.Add(time.Minute)))
	assert.ErrorIs(t, repo.Pause(ctx, userID, now.Add(2*time.Minute)), shared.ErrAlreadyPaused)
}

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRY SWEEP
// ══════════════════════════════════════════════════════════════════════════════

func TestSweepExpiredClearsOtherDaySessions(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewSessionRepository(conn, "")
	ctx := context.Background()

	stale := seedUser(t, conn, "Erin")
	fresh := seedUser(t, conn, "Frank")

	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Start(ctx, stale, now.Add(-48*time.Hour)))
	require.NoError(t, repo.Start(ctx, fresh, now))

	swept, err := repo.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, int64(1))

	sess, err := repo.Get(ctx, stale)
	require.NoError(t, err)
	assert.False(t, sess.Active(), "day-spanning session must be discarded")

	sess, err = repo.Get(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, sess.Active(), "today's session must survive the sweep")
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS COMMIT
// ══════════════════════════════════════════════════════════════════════════════

func TestCommitWritesAllThreePeriods(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewStatsRepository(conn)
	ctx := context.Background()

	userID := seedUser(t, conn, "Grace")
	keys := calendar.PeriodKeys{Day: "2026-08-29", Week: "1405-W24", Month: "1405-06"}

	require.NoError(t, repo.Ensure(ctx, userID, "Grace", keys))
	require.NoError(t, repo.Commit(ctx, userID, "Grace", keys, 600))
	require.NoError(t, repo.Commit(ctx, userID, "Grace", keys, 300))

	for _, tc := range []struct {
		period stats.Period
		key    string
	}{
		{stats.PeriodDay, keys.Day},
		{stats.PeriodWeek, keys.Week},
		{stats.PeriodMonth, keys.Month},
	} {
		total, err := repo.Total(ctx, userID, tc.period, tc.key)
		require.NoError(t, err)
		assert.Equal(t, int64(900), total, "period %s", tc.period)
	}
}

func TestCommitRejectsNegativeSeconds(t *testing.T) {
	conn := newTestConnection(t)
	repo := NewStatsRepository(conn)
	ctx := context.Background()

	userID := seedUser(t, conn, "Heidi")
	keys := calendar.PeriodKeys{Day: "2026-08-29", Week: "1405-W24", Month: "1405-06"}

	err := repo.Commit(ctx, userID, "Heidi", keys, -1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNegativeSeconds))

	total, err := repo.Total(ctx, userID, stats.PeriodDay, keys.Day)
	require.NoError(t, err)
	assert.Zero(t, total, "a rejected commit must write nothing")
}
