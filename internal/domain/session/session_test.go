package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionState(t *testing.T) {
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	var nilSession *Session
	assert.Equal(t, StateIdle, nilSession.State())

	s := &Session{UserID: "u1"}
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Active())

	s.StartedAt = start
	assert.Equal(t, StateRunning, s.State())
	assert.True(t, s.Active())

	s.PausedAt = start.Add(30 * time.Second)
	assert.Equal(t, StatePaused, s.State())
	assert.True(t, s.Active())
}

func TestElapsedExcludesPauses(t *testing.T) {
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	// Start, pause at +30s, resume at +90s, measure at +150s.
	// Effective time is 150 - 60 = 90 seconds.
	s := &Session{
		UserID:        "u1",
		StartedAt:     start,
		PausedSeconds: 60,
	}
	assert.Equal(t, int64(90), s.Elapsed(start.Add(150*time.Second)))
}

func TestElapsedFrozenWhilePaused(t *testing.T) {
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	s := &Session{
		UserID:    "u1",
		StartedAt: start,
		PausedAt:  start.Add(30 * time.Second),
	}

	// The clock stopped at PausedAt; later instants do not grow the total.
	assert.Equal(t, int64(30), s.Elapsed(start.Add(30*time.Second)))
	assert.Equal(t, int64(30), s.Elapsed(start.Add(10*time.Minute)))
}

func TestElapsedClampedToZero(t *testing.T) {
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	s := &Session{UserID: "u1", StartedAt: start}
	assert.Equal(t, int64(0), s.Elapsed(start.Add(-time.Minute)))

	idle := &Session{UserID: "u1"}
	assert.Equal(t, int64(0), idle.Elapsed(start))
}

func TestLongEnough(t *testing.T) {
	start := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	s := &Session{UserID: "u1", StartedAt: start}

	assert.False(t, s.LongEnough(start.Add(59*time.Second), MinSessionSeconds))
	assert.True(t, s.LongEnough(start.Add(60*time.Second), MinSessionSeconds))
}
