package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	infracal "github.com/studyhub/study-tracker-hub/internal/infrastructure/calendar"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

type fixture struct {
	store      *memory.Store
	aggregator *memory.Aggregator
	start      *StartSessionHandler
	pause      *PauseSessionHandler
	resume     *ResumeSessionHandler
	end        *EndSessionHandler
	presence   *EnsurePresenceHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore(timeutil.TehranTZ)
	aggregator := memory.NewAggregator()
	resolver := infracal.NewPersianResolver(timeutil.TehranTZ)

	return &fixture{
		store:      store,
		aggregator: aggregator,
		start:      NewStartSessionHandler(store, store, aggregator, resolver, nil, nil),
		pause:      NewPauseSessionHandler(store, nil, nil),
		resume:     NewResumeSessionHandler(store, nil, nil),
		end:        NewEndSessionHandler(store, aggregator, resolver, nil, nil, nil, 0),
		presence:   NewEnsurePresenceHandler(store, aggregator, resolver),
	}
}

func TestStartSessionCreatesUserAndZeroRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	res, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)
	assert.Equal(t, "2026-08-29", res.Keys.Day)

	total, err := f.aggregator.Total(ctx, "u1", stats.PeriodDay, res.Keys.Day)
	require.NoError(t, err)
	assert.Zero(t, total)

	ranked, err := f.aggregator.Ranked(ctx, stats.PeriodDay, res.Keys.Day)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Arman", ranked[0].DisplayName)
}

func TestStartSessionTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	_, err = f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at.Add(time.Minute)})
	assert.ErrorIs(t, err, shared.ErrAlreadyActive)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestPauseResumeArithmetic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	// 30s running, 60s paused, 60s running again.
	pauseRes, err := f.pause.Handle(ctx, PauseSessionCommand{UserID: "u1", Timestamp: at.Add(30 * time.Second)})
	require.NoError(t, err)
	assert.EqualValues(t, 30, pauseRes.ElapsedSeconds)

	resumeRes, err := f.resume.Handle(ctx, ResumeSessionCommand{UserID: "u1", Timestamp: at.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.EqualValues(t, 30, resumeRes.ElapsedSeconds)

	endRes, err := f.end.Handle(ctx, EndSessionCommand{UserID: "u1", Timestamp: at.Add(150 * time.Second)})
	require.NoError(t, err)
	assert.EqualValues(t, 90, endRes.CommittedSeconds)
}

func TestPauseWithoutSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.presence.Handle(ctx, EnsurePresenceCommand{UserID: "u1", DisplayName: "Arman"})
	require.NoError(t, err)

	_, err = f.pause.Handle(ctx, PauseSessionCommand{UserID: "u1"})
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)
}

func TestResumeRunningSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	_, err = f.resume.Handle(ctx, ResumeSessionCommand{UserID: "u1", Timestamp: at.Add(time.Minute)})
	assert.ErrorIs(t, err, shared.ErrNotPaused)
}

func TestEndTooShortKeepsSessionIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	_, err = f.end.Handle(ctx, EndSessionCommand{UserID: "u1", Timestamp: at.Add(45 * time.Second)})
	assert.ErrorIs(t, err, shared.ErrSessionTooShort)

	// The session survives with its original start instant, so a later end
	// commits the full span.
	res, err := f.end.Handle(ctx, EndSessionCommand{UserID: "u1", Timestamp: at.Add(120 * time.Second)})
	require.NoError(t, err)
	assert.EqualValues(t, 120, res.CommittedSeconds)
}

func TestEndCommitsAllThreeBuckets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	res, err := f.end.Handle(ctx, EndSessionCommand{UserID: "u1", Timestamp: at.Add(10 * time.Minute)})
	require.NoError(t, err)
	assert.EqualValues(t, 600, res.CommittedSeconds)

	for _, period := range stats.Periods() {
		total, err := f.aggregator.Total(ctx, "u1", period, period.KeyFor(res.Keys))
		require.NoError(t, err)
		assert.EqualValues(t, 600, total, "period %s", period)
	}
}

func TestCommandSweepsDaySpanningSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yesterday := timeutil.DateTime(2026, 8, 28, 22, 0, 0)

	_, err := f.start.Handle(ctx, StartSessionCommand{UserID: "u1", DisplayName: "Arman", Timestamp: yesterday})
	require.NoError(t, err)

	// The next day, ending fails because the sweep already discarded the
	// stale session; nothing was committed.
	today := timeutil.DateTime(2026, 8, 29, 9, 0, 0)
	_, err = f.end.Handle(ctx, EndSessionCommand{UserID: "u1", Timestamp: today})
	assert.ErrorIs(t, err, shared.ErrNoActiveSession)

	total, err := f.aggregator.Total(ctx, "u1", stats.PeriodDay, "2026-08-28")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestEnsurePresenceUpdatesDisplayName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := timeutil.DateTime(2026, 8, 29, 9, 0, 0)

	_, err := f.presence.Handle(ctx, EnsurePresenceCommand{UserID: "u1", DisplayName: "Arman", Timestamp: at})
	require.NoError(t, err)

	res, err := f.presence.Handle(ctx, EnsurePresenceCommand{UserID: "u1", DisplayName: "Arman R.", Timestamp: at})
	require.NoError(t, err)

	ranked, err := f.aggregator.Ranked(ctx, stats.PeriodDay, res.Keys.Day)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "Arman R.", ranked[0].DisplayName)
}

func TestCommandValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.start.Handle(ctx, StartSessionCommand{DisplayName: "Arman"})
	assert.Error(t, err)

	_, err = f.start.Handle(ctx, StartSessionCommand{UserID: "u1"})
	assert.Error(t, err)

	_, err = f.pause.Handle(ctx, PauseSessionCommand{})
	assert.Error(t, err)

	_, err = f.end.Handle(ctx, EndSessionCommand{})
	assert.Error(t, err)
}
