// Package session models the per-user study session state machine.
// A user has at most one session, which is either running or paused; pausing
// accumulates paused time so the effective elapsed time excludes every pause.
package session

import (
	"time"
)

// State represents the session state of a user.
type State string

const (
	// StateIdle - no session in progress.
	StateIdle State = "idle"

	// StateRunning - session in progress, the clock is ticking.
	StateRunning State = "running"

	// StatePaused - session in progress but the clock is stopped.
	StatePaused State = "paused"
)

// MinSessionSeconds is the shortest session that may be committed.
// Ending earlier is rejected and the session stays active.
const MinSessionSeconds = 60

// Session is the active-session snapshot for a single user.
// An idle user has a zero StartedAt. A paused session has a non-zero PausedAt.
type Session struct {
	// UserID identifies the owner. At most one session per user.
	UserID string

	// DisplayName is the cached display name, carried along so live
	// snapshots can rank users that have no committed totals yet.
	DisplayName string

	// StartedAt is the instant the session started. Zero when idle.
	StartedAt time.Time

	// PausedAt is the instant of the current pause. Zero unless paused.
	PausedAt time.Time

	// PausedSeconds is the total completed pause time, excluding the
	// current pause if any.
	PausedSeconds int64
}

// State returns the current state of the session.
func (s *Session) State() State {
	switch {
	case s == nil || s.StartedAt.IsZero():
		return StateIdle
	case !s.PausedAt.IsZero():
		return StatePaused
	default:
		return StateRunning
	}
}

// Active reports whether a session is in progress (running or paused).
func (s *Session) Active() bool {
	return s.State() != StateIdle
}

// Elapsed returns the effective study seconds accumulated up to now.
// For a paused session the clock stopped at PausedAt, so later instants do
// not grow the total. The result is clamped to zero: a skewed clock must
// never produce negative time.
func (s *Session) Elapsed(now time.Time) int64 {
	if !s.Active() {
		return 0
	}

	until := now
	if !s.PausedAt.IsZero() {
		until = s.PausedAt
	}

	elapsed := int64(until.Sub(s.StartedAt).Seconds()) - s.PausedSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// LongEnough reports whether the session meets the minimum commit floor.
func (s *Session) LongEnough(now time.Time, minSeconds int64) bool {
	return s.Elapsed(now) >= minSeconds
}
