package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
	infracal "github.com/studyhub/study-tracker-hub/internal/infrastructure/calendar"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

type queryFixture struct {
	store      *memory.Store
	aggregator *memory.Aggregator
	snapshot   *RankedSnapshotHandler
	liveTotal  *LiveTotalHandler
	resolver   *infracal.PersianResolver
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()

	store := memory.NewStore(timeutil.TehranTZ)
	aggregator := memory.NewAggregator()
	resolver := infracal.NewPersianResolver(timeutil.TehranTZ)

	return &queryFixture{
		store:      store,
		aggregator: aggregator,
		snapshot:   NewRankedSnapshotHandler(store, aggregator, resolver, nil, nil),
		liveTotal:  NewLiveTotalHandler(store, aggregator, resolver),
		resolver:   resolver,
	}
}

func (f *queryFixture) addUser(t *testing.T, id, name string) {
	t.Helper()
	u, err := user.New(id, name)
	require.NoError(t, err)
	require.NoError(t, f.store.Upsert(context.Background(), u))
}

func TestRankedSnapshotFoldsLiveTime(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	keys, err := f.resolver.Resolve(at)
	require.NoError(t, err)

	// A has 125 committed seconds and no active session; B has no committed
	// time but 200 live seconds. B outranks A.
	f.addUser(t, "a", "Arman")
	f.addUser(t, "b", "Bita")

	require.NoError(t, f.aggregator.Commit(ctx, "a", "Arman", keys, 125))
	require.NoError(t, f.store.Start(ctx, "b", at))

	res, err := f.snapshot.Handle(ctx, RankedSnapshotQuery{Period: stats.PeriodDay, Timestamp: at.Add(200 * time.Second)})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Rows[0].Rank)
	assert.Equal(t, "b", res.Rows[0].UserID)
	assert.EqualValues(t, 200, res.Rows[0].TotalSeconds)
	assert.EqualValues(t, 200, res.Rows[0].LiveSeconds)

	assert.Equal(t, 2, res.Rows[1].Rank)
	assert.Equal(t, "a", res.Rows[1].UserID)
	assert.EqualValues(t, 125, res.Rows[1].TotalSeconds)
	assert.Zero(t, res.Rows[1].LiveSeconds)
}

func TestRankedSnapshotCombinesCommittedAndLive(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	keys, err := f.resolver.Resolve(at)
	require.NoError(t, err)

	f.addUser(t, "a", "Arman")
	require.NoError(t, f.aggregator.Commit(ctx, "a", "Arman", keys, 100))
	require.NoError(t, f.store.Start(ctx, "a", at))

	res, err := f.snapshot.Handle(ctx, RankedSnapshotQuery{Period: stats.PeriodDay, Timestamp: at.Add(50 * time.Second)})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 150, res.Rows[0].TotalSeconds)
	assert.EqualValues(t, 50, res.Rows[0].LiveSeconds)
}

func TestRankedSnapshotTieBreaksByUserID(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	keys, err := f.resolver.Resolve(at)
	require.NoError(t, err)

	require.NoError(t, f.aggregator.Commit(ctx, "b", "Bita", keys, 300))
	require.NoError(t, f.aggregator.Commit(ctx, "a", "Arman", keys, 300))

	res, err := f.snapshot.Handle(ctx, RankedSnapshotQuery{Period: stats.PeriodDay, Timestamp: at})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a", res.Rows[0].UserID)
	assert.Equal(t, "b", res.Rows[1].UserID)
}

func TestRankedSnapshotExcludesOtherDaySessions(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	// Session started yesterday evening; today's day snapshot must not fold
	// it in, even before the sweeper has run.
	f.addUser(t, "a", "Arman")
	require.NoError(t, f.store.Start(ctx, "a", timeutil.DateTime(2026, 8, 28, 22, 0, 0)))

	res, err := f.snapshot.Handle(ctx, RankedSnapshotQuery{Period: stats.PeriodDay, Timestamp: timeutil.DateTime(2026, 8, 29, 9, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestRankedSnapshotWeekBucketFoldsSameWeekSession(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	// Friday evening session folds into the week snapshot taken the same
	// Friday, even though the day bucket differs from Saturday's.
	at := timeutil.DateTime(2026, 8, 28, 22, 0, 0)
	f.addUser(t, "a", "Arman")
	require.NoError(t, f.store.Start(ctx, "a", at))

	res, err := f.snapshot.Handle(ctx, RankedSnapshotQuery{Period: stats.PeriodWeek, Timestamp: at.Add(300 * time.Second)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 300, res.Rows[0].TotalSeconds)
}

func TestRankedSnapshotInvalidPeriod(t *testing.T) {
	f := newQueryFixture(t)

	_, err := f.snapshot.Handle(context.Background(), RankedSnapshotQuery{Period: "decade"})
	assert.Error(t, err)
}

func TestLiveTotalAddsElapsedToCommitted(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	keys, err := f.resolver.Resolve(at)
	require.NoError(t, err)

	f.addUser(t, "a", "Arman")
	require.NoError(t, f.aggregator.Commit(ctx, "a", "Arman", keys, 600))
	require.NoError(t, f.store.Start(ctx, "a", at))

	res, err := f.liveTotal.Handle(ctx, LiveTotalQuery{UserID: "a", Timestamp: at.Add(90 * time.Second)})
	require.NoError(t, err)

	assert.EqualValues(t, 600, res.CommittedSeconds)
	assert.EqualValues(t, 90, res.LiveSeconds)
	assert.EqualValues(t, 690, res.TotalSeconds)
	assert.Equal(t, session.StateRunning, res.State)
}

func TestLiveTotalIgnoresStaleSession(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addUser(t, "a", "Arman")
	require.NoError(t, f.store.Start(ctx, "a", timeutil.DateTime(2026, 8, 28, 22, 0, 0)))

	res, err := f.liveTotal.Handle(ctx, LiveTotalQuery{UserID: "a", Timestamp: timeutil.DateTime(2026, 8, 29, 9, 0, 0)})
	require.NoError(t, err)

	assert.Zero(t, res.LiveSeconds)
	assert.Zero(t, res.TotalSeconds)
}

func TestLiveTotalIdleUser(t *testing.T) {
	f := newQueryFixture(t)
	ctx := context.Background()

	f.addUser(t, "a", "Arman")

	res, err := f.liveTotal.Handle(ctx, LiveTotalQuery{UserID: "a", Timestamp: timeutil.DateTime(2026, 8, 29, 9, 0, 0)})
	require.NoError(t, err)

	assert.Equal(t, session.StateIdle, res.State)
	assert.Zero(t, res.TotalSeconds)
}
