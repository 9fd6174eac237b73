package redis

import (
	"context"
	"errors"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache implements stats.SnapshotCache on top of the shared Cache.
// Cached rankings carry only committed totals; the live fold-in happens per
// read, so a briefly stale snapshot is safe. Commits invalidate the three
// affected buckets.
type SnapshotCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewSnapshotCache creates a SnapshotCache. A non-positive TTL falls back to
// TTLSnapshotCache.
func NewSnapshotCache(cache *Cache, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = TTLSnapshotCache
	}
	return &SnapshotCache{cache: cache, ttl: ttl}
}

// GetRanked returns the cached ranking for a bucket. A miss reports ok=false
// with no error.
func (s *SnapshotCache) GetRanked(ctx context.Context, period stats.Period, key string) ([]stats.Entry, bool, error) {
	var entries []stats.Entry
	err := s.cache.Get(ctx, SnapshotKey(string(period), key), &entries)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entries, true, nil
}

// SetRanked caches the ranking for a bucket. An empty ranking is cached too,
// so an empty board does not hammer the database.
func (s *SnapshotCache) SetRanked(ctx context.Context, period stats.Period, key string, entries []stats.Entry) error {
	if entries == nil {
		entries = []stats.Entry{}
	}
	return s.cache.Set(ctx, SnapshotKey(string(period), key), entries, s.ttl)
}

// Invalidate drops the cached rankings of all three buckets a commit touched.
func (s *SnapshotCache) Invalidate(ctx context.Context, keys calendar.PeriodKeys) error {
	return s.cache.Delete(ctx,
		SnapshotKey(string(stats.PeriodDay), keys.Day),
		SnapshotKey(string(stats.PeriodWeek), keys.Week),
		SnapshotKey(string(stats.PeriodMonth), keys.Month),
	)
}
