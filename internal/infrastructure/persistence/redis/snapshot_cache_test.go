package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCacheFromClient(client), mr
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewSnapshotCache(cache, time.Minute)
	ctx := context.Background()

	entries := []stats.Entry{
		{UserID: "u2", DisplayName: "Bita", TotalSeconds: 200},
		{UserID: "u1", DisplayName: "Arman", TotalSeconds: 125},
	}

	require.NoError(t, sc.SetRanked(ctx, stats.PeriodDay, "2026-08-29", entries))

	got, ok, err := sc.GetRanked(ctx, stats.PeriodDay, "2026-08-29")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entries, got)
}

func TestSnapshotCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewSnapshotCache(cache, time.Minute)

	got, ok, err := sc.GetRanked(context.Background(), stats.PeriodWeek, "1405-W23")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSnapshotCacheEmptyRanking(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewSnapshotCache(cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, sc.SetRanked(ctx, stats.PeriodMonth, "1405-06", nil))

	got, ok, err := sc.GetRanked(ctx, stats.PeriodMonth, "1405-06")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	sc := NewSnapshotCache(cache, time.Minute)
	ctx := context.Background()

	keys := calendar.PeriodKeys{Day: "2026-08-29", Week: "1405-W23", Month: "1405-06"}
	entries := []stats.Entry{{UserID: "u1", TotalSeconds: 90}}

	require.NoError(t, sc.SetRanked(ctx, stats.PeriodDay, keys.Day, entries))
	require.NoError(t, sc.SetRanked(ctx, stats.PeriodWeek, keys.Week, entries))
	require.NoError(t, sc.SetRanked(ctx, stats.PeriodMonth, keys.Month, entries))

	require.NoError(t, sc.Invalidate(ctx, keys))

	for _, tc := range []struct {
		period stats.Period
		key    string
	}{
		{stats.PeriodDay, keys.Day},
		{stats.PeriodWeek, keys.Week},
		{stats.PeriodMonth, keys.Month},
	} {
		_, ok, err := sc.GetRanked(ctx, tc.period, tc.key)
		require.NoError(t, err)
		assert.False(t, ok, "bucket %s/%s should be invalidated", tc.period, tc.key)
	}
}

func TestSnapshotCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	sc := NewSnapshotCache(cache, time.Minute)
	ctx := context.Background()

	require.NoError(t, sc.SetRanked(ctx, stats.PeriodDay, "2026-08-29", []stats.Entry{{UserID: "u1"}}))

	mr.FastForward(2 * time.Minute)

	_, ok, err := sc.GetRanked(ctx, stats.PeriodDay, "2026-08-29")
	require.NoError(t, err)
	assert.False(t, ok)
}
