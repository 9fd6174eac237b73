// Package stats models the committed study-time aggregates behind the
// daily, weekly and monthly leaderboards.
package stats

import (
	"context"
	"sort"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
)

// Period identifies a leaderboard bucket kind.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Valid reports whether the period kind is one of day/week/month.
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return true
	}
	return false
}

// Periods lists all bucket kinds in commit order.
func Periods() []Period {
	return []Period{PeriodDay, PeriodWeek, PeriodMonth}
}

// KeyFor picks the key of this period kind out of resolved period keys.
func (p Period) KeyFor(keys calendar.PeriodKeys) string {
	switch p {
	case PeriodDay:
		return keys.Day
	case PeriodWeek:
		return keys.Week
	case PeriodMonth:
		return keys.Month
	}
	return ""
}

// Entry is one user's committed total within a single period bucket.
// Totals only ever grow: commits are additive and entries are never deleted,
// so a once-observed total can never shrink.
type Entry struct {
	UserID       string
	DisplayName  string
	TotalSeconds int64
	UpdatedAt    time.Time
}

// Rank sorts entries into leaderboard order: total seconds descending, then
// user ID ascending so ties are deterministic.
func Rank(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSeconds != entries[j].TotalSeconds {
			return entries[i].TotalSeconds > entries[j].TotalSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// Aggregator is the persistence contract for committed totals.
type Aggregator interface {
	// Ensure creates zero-valued rows for the user under all three keys and
	// refreshes the cached display name. Idempotent; never lowers a total.
	Ensure(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys) error

	// Commit adds seconds to the user's totals under all three keys as one
	// atomic unit: either every bucket sees the time or none does.
	// Negative seconds are rejected with ErrNegativeSeconds.
	Commit(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys, seconds int64) error

	// Total returns the committed total for one user in one bucket.
	// A missing row reads as zero.
	Total(ctx context.Context, userID string, period Period, key string) (int64, error)

	// Ranked returns all entries of a bucket in leaderboard order.
	Ranked(ctx context.Context, period Period, key string) ([]Entry, error)
}

// SnapshotCache is an optional read-through cache for ranked buckets.
// A miss is not an error; Invalidate is called after every commit so cached
// rankings stay only briefly behind the table of record.
type SnapshotCache interface {
	GetRanked(ctx context.Context, period Period, key string) ([]Entry, bool, error)
	SetRanked(ctx context.Context, period Period, key string, entries []Entry) error
	Invalidate(ctx context.Context, keys calendar.PeriodKeys) error
}
