package query

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKED SNAPSHOT QUERY
// The live leaderboard: committed totals of a period bucket with in-flight
// session time folded in, including members who only have an active session.
// ══════════════════════════════════════════════════════════════════════════════

// RankedSnapshotQuery contains the parameters for a leaderboard read.
type RankedSnapshotQuery struct {
	// Period selects the bucket kind (day, week or month).
	Period stats.Period

	// Timestamp is the read instant (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the query.
func (q RankedSnapshotQuery) Validate() error {
	if !q.Period.Valid() {
		return fmt.Errorf("ranked_snapshot: %w: %q", shared.ErrUnknownPeriod, q.Period)
	}
	return nil
}

// RankedRow is one leaderboard line.
type RankedRow struct {
	// Rank is the 1-based position.
	Rank int

	// UserID is the member's identifier.
	UserID string

	// DisplayName is the name shown on the board.
	DisplayName string

	// TotalSeconds is committed plus folded live time.
	TotalSeconds int64

	// LiveSeconds is the folded in-flight part of TotalSeconds.
	LiveSeconds int64
}

// RankedSnapshotResult contains the result of a leaderboard read.
type RankedSnapshotResult struct {
	// Period is the bucket kind that was read.
	Period stats.Period

	// Key is the period key of the bucket.
	Key string

	// Rows are the leaderboard lines in rank order.
	Rows []RankedRow

	// GeneratedAt is the read instant the snapshot reflects.
	GeneratedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RankedSnapshotHandler handles the RankedSnapshotQuery. Strictly read-only:
// the opportunistic sweeper runs at the command boundary, never here.
type RankedSnapshotHandler struct {
	store    session.Store
	stats    stats.Aggregator
	resolver calendar.Resolver
	cache    stats.SnapshotCache
	log      *logger.Logger
}

// NewRankedSnapshotHandler creates a new RankedSnapshotHandler. cache may be
// nil when the snapshot cache is disabled.
func NewRankedSnapshotHandler(
	store session.Store,
	aggregator stats.Aggregator,
	resolver calendar.Resolver,
	cache stats.SnapshotCache,
	log *logger.Logger,
) *RankedSnapshotHandler {
	if log == nil {
		log = logger.Default()
	}

	return &RankedSnapshotHandler{
		store:    store,
		stats:    aggregator,
		resolver: resolver,
		cache:    cache,
		log:      log,
	}
}

// Handle executes the ranked snapshot query.
func (h *RankedSnapshotHandler) Handle(ctx context.Context, q RankedSnapshotQuery) (*RankedSnapshotResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	timestamp := q.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	keys, err := h.resolver.Resolve(timestamp)
	if err != nil {
		return nil, fmt.Errorf("ranked_snapshot: failed to resolve period keys: %w", err)
	}
	key := q.Period.KeyFor(keys)

	committed, err := h.committedRanking(ctx, q.Period, key)
	if err != nil {
		return nil, err
	}

	entries := make([]stats.Entry, len(committed))
	copy(entries, committed)

	live, err := h.liveSeconds(ctx, q.Period, key, timestamp)
	if err != nil {
		return nil, err
	}

	// Fold live time into committed entries; members without a committed row
	// still get a line.
	indexByUser := make(map[string]int, len(entries))
	for i, e := range entries {
		indexByUser[e.UserID] = i
	}
	for userID, fold := range live {
		if i, ok := indexByUser[userID]; ok {
			entries[i].TotalSeconds += fold.seconds
			continue
		}
		entries = append(entries, stats.Entry{
			UserID:       userID,
			DisplayName:  fold.displayName,
			TotalSeconds: fold.seconds,
		})
	}

	stats.Rank(entries)

	rows := make([]RankedRow, len(entries))
	for i, e := range entries {
		rows[i] = RankedRow{
			Rank:         i + 1,
			UserID:       e.UserID,
			DisplayName:  e.DisplayName,
			TotalSeconds: e.TotalSeconds,
		}
		if fold, ok := live[e.UserID]; ok {
			rows[i].LiveSeconds = fold.seconds
		}
	}

	return &RankedSnapshotResult{
		Period:      q.Period,
		Key:         key,
		Rows:        rows,
		GeneratedAt: timestamp,
	}, nil
}

// committedRanking reads the committed standings, through the cache when one
// is configured. Cache failures degrade to a direct read.
func (h *RankedSnapshotHandler) committedRanking(ctx context.Context, period stats.Period, key string) ([]stats.Entry, error) {
	if h.cache != nil {
		entries, ok, err := h.cache.GetRanked(ctx, period, key)
		if err != nil {
			h.log.Warn("snapshot cache read failed", logger.Err(err), logger.PeriodKey(key))
		} else if ok {
			return entries, nil
		}
	}

	entries, err := h.stats.Ranked(ctx, period, key)
	if err != nil {
		return nil, fmt.Errorf("ranked_snapshot: failed to read committed ranking: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.SetRanked(ctx, period, key, entries); err != nil {
			h.log.Warn("snapshot cache write failed", logger.Err(err), logger.PeriodKey(key))
		}
	}

	return entries, nil
}

type liveFold struct {
	displayName string
	seconds     int64
}

// liveSeconds collects the elapsed time of every active session whose start
// instant resolves into the queried bucket.
func (h *RankedSnapshotHandler) liveSeconds(ctx context.Context, period stats.Period, key string, now time.Time) (map[string]liveFold, error) {
	active, err := h.store.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("ranked_snapshot: failed to read active sessions: %w", err)
	}

	live := make(map[string]liveFold, len(active))
	for _, sess := range active {
		startKeys, err := h.resolver.Resolve(sess.StartedAt)
		if err != nil {
			return nil, fmt.Errorf("ranked_snapshot: failed to resolve session start: %w", err)
		}
		if period.KeyFor(startKeys) != key {
			continue
		}
		if elapsed := sess.Elapsed(now); elapsed > 0 {
			live[sess.UserID] = liveFold{displayName: sess.DisplayName, seconds: elapsed}
		}
	}

	return live, nil
}
