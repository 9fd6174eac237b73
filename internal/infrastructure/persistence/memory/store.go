// Package memory provides in-memory implementations of the persistence
// contracts. They back the application-layer tests and single-process runs
// without PostgreSQL; semantics mirror the postgres package, including the
// idle-as-zero session representation and the missing-user errors.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studyhub/study-tracker-hub/internal/domain/calendar"
	"github.com/studyhub/study-tracker-hub/internal/domain/session"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	"github.com/studyhub/study-tracker-hub/internal/domain/stats"
	"github.com/studyhub/study-tracker-hub/internal/domain/user"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY SESSION + USER STORE
// ══════════════════════════════════════════════════════════════════════════════

type record struct {
	user    user.User
	session session.Session
}

// Store implements session.Store and user.Repository on a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	loc     *time.Location
}

// NewStore creates an empty store pinned to the operating timezone.
func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = timeutil.TehranTZ
	}
	return &Store{
		records: make(map[string]*record),
		loc:     loc,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// user.Repository
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts the user or refreshes the display name of an existing one.
func (s *Store) Upsert(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("%w: user is nil", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[u.ID]
	if !ok {
		rec = &record{
			user:    *u,
			session: session.Session{UserID: u.ID},
		}
		if rec.user.CreatedAt.IsZero() {
			rec.user.CreatedAt = time.Now().UTC()
		}
		s.records[u.ID] = rec
	}

	rec.user.DisplayName = u.DisplayName
	rec.user.UpdatedAt = time.Now().UTC()
	rec.session.DisplayName = u.DisplayName

	return nil
}

// GetByID retrieves a user by their ID.
func (s *Store) GetByID(ctx context.Context, userID string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}

	u := rec.user
	return &u, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// session.Store transitions
// ─────────────────────────────────────────────────────────────────────────────

// Start begins a session for an idle user.
func (s *Store) Start(ctx context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return shared.ErrUserNotFound
	}
	if rec.session.Active() {
		return shared.ErrAlreadyActive
	}

	rec.session = session.Session{
		UserID:      userID,
		DisplayName: rec.user.DisplayName,
		StartedAt:   now.UTC(),
	}

	return nil
}

// Pause stops the clock of a running session.
func (s *Store) Pause(ctx context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return shared.ErrUserNotFound
	}

	switch rec.session.State() {
	case session.StateIdle:
		return shared.ErrNoActiveSession
	case session.StatePaused:
		return shared.ErrAlreadyPaused
	}

	rec.session.PausedAt = now.UTC()
	return nil
}

// Resume restarts the clock, folding the finished pause into the total.
func (s *Store) Resume(ctx context.Context, userID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return shared.ErrUserNotFound
	}

	switch rec.session.State() {
	case session.StateIdle:
		return shared.ErrNoActiveSession
	case session.StateRunning:
		return shared.ErrNotPaused
	}

	paused := int64(now.UTC().Sub(rec.session.PausedAt).Seconds())
	if paused > 0 {
		rec.session.PausedSeconds += paused
	}
	rec.session.PausedAt = time.Time{}

	return nil
}

// End finishes the session and returns its effective elapsed seconds.
// Sessions under the floor are left untouched.
func (s *Store) End(ctx context.Context, userID string, now time.Time, minSeconds int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return 0, shared.ErrUserNotFound
	}
	if !rec.session.Active() {
		return 0, shared.ErrNoActiveSession
	}

	elapsed := rec.session.Elapsed(now)
	if elapsed < minSeconds {
		return 0, shared.ErrSessionTooShort
	}

	rec.session = session.Session{UserID: userID, DisplayName: rec.user.DisplayName}
	return elapsed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// session.Store reads and expiry
// ─────────────────────────────────────────────────────────────────────────────

// Get returns the session snapshot for a user.
func (s *Store) Get(ctx context.Context, userID string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}

	sess := rec.session
	return &sess, nil
}

// Active returns all in-progress sessions.
func (s *Store) Active(ctx context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []*session.Session
	for _, rec := range s.records {
		if rec.session.Active() {
			sess := rec.session
			sessions = append(sessions, &sess)
		}
	}

	return sessions, nil
}

// SweepExpired clears every active session that did not start on now's civil
// day. Expired time is discarded, never committed.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var swept int64
	local := now.In(s.loc)
	for _, rec := range s.records {
		if !rec.session.Active() {
			continue
		}
		started := rec.session.StartedAt.In(s.loc)
		if started.Year() == local.Year() && started.YearDay() == local.YearDay() {
			continue
		}
		rec.session = session.Session{UserID: rec.user.ID, DisplayName: rec.user.DisplayName}
		swept++
	}

	return swept, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY AGGREGATOR
// ══════════════════════════════════════════════════════════════════════════════

type bucketKey struct {
	period stats.Period
	key    string
	userID string
}

// Aggregator implements stats.Aggregator on a mutex-guarded map.
type Aggregator struct {
	mu     sync.RWMutex
	totals map[bucketKey]*stats.Entry
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{totals: make(map[bucketKey]*stats.Entry)}
}

// Ensure creates zero rows for the user under all three keys.
func (a *Aggregator) Ensure(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys) error {
	return a.add(userID, displayName, keys, 0)
}

// Commit adds seconds to the user's totals under all three keys.
func (a *Aggregator) Commit(ctx context.Context, userID, displayName string, keys calendar.PeriodKeys, seconds int64) error {
	if seconds < 0 {
		return fmt.Errorf("%w: %d", shared.ErrNegativeSeconds, seconds)
	}
	return a.add(userID, displayName, keys, seconds)
}

func (a *Aggregator) add(userID, displayName string, keys calendar.PeriodKeys, seconds int64) error {
	if keys.IsZero() {
		return shared.ErrZeroInstant
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, period := range stats.Periods() {
		bk := bucketKey{period: period, key: period.KeyFor(keys), userID: userID}
		entry, ok := a.totals[bk]
		if !ok {
			entry = &stats.Entry{UserID: userID}
			a.totals[bk] = entry
		}
		entry.DisplayName = displayName
		entry.TotalSeconds += seconds
		entry.UpdatedAt = time.Now().UTC()
	}

	return nil
}

// Total returns the committed total for one user in one bucket.
func (a *Aggregator) Total(ctx context.Context, userID string, period stats.Period, key string) (int64, error) {
	if !period.Valid() {
		return 0, fmt.Errorf("%w: %q", shared.ErrUnknownPeriod, period)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.totals[bucketKey{period: period, key: key, userID: userID}]
	if !ok {
		return 0, nil
	}
	return entry.TotalSeconds, nil
}

// Ranked returns all entries of a bucket in leaderboard order.
func (a *Aggregator) Ranked(ctx context.Context, period stats.Period, key string) ([]stats.Entry, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownPeriod, period)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var entries []stats.Entry
	for bk, entry := range a.totals {
		if bk.period == period && bk.key == key {
			entries = append(entries, *entry)
		}
	}

	stats.Rank(entries)
	return entries, nil
}
