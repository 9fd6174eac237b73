package session

import (
	"context"
	"time"
)

// Store is the persistence contract for session transitions.
//
// Every transition must be linearizable per user: implementations perform the
// state check and the mutation in a single atomic step (a conditional update
// in SQL, a mutex in memory), never a read-modify-write across calls.
//
// Failed transitions return the shared sentinel errors: ErrAlreadyActive,
// ErrNoActiveSession, ErrAlreadyPaused, ErrNotPaused, ErrSessionTooShort.
type Store interface {
	// Start begins a session at now. The user must be idle.
	Start(ctx context.Context, userID string, now time.Time) error

	// Pause stops the clock at now. The session must be running.
	Pause(ctx context.Context, userID string, now time.Time) error

	// Resume restarts the clock at now, folding the finished pause into
	// PausedSeconds. The session must be paused.
	Resume(ctx context.Context, userID string, now time.Time) error

	// End finishes the session and returns its effective elapsed seconds.
	// A session shorter than minSeconds is left untouched and
	// ErrSessionTooShort is returned; the user can keep studying and end
	// again later against the original start instant.
	End(ctx context.Context, userID string, now time.Time, minSeconds int64) (int64, error)

	// Get returns the session snapshot for a user. An idle user yields a
	// session in StateIdle, not an error; an unknown user yields NotFound.
	Get(ctx context.Context, userID string) (*Session, error)

	// Active returns all in-progress sessions (running or paused).
	Active(ctx context.Context) ([]*Session, error)

	// SweepExpired clears every active session whose start instant falls on
	// a different civil day than now, committing nothing. Returns the number
	// of sessions cleared.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
