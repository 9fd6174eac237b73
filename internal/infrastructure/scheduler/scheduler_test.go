package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST JOBS
// ══════════════════════════════════════════════════════════════════════════════

type fakeJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job" }
func (j *fakeJob) Run(ctx context.Context) error {
	if j.run != nil {
		return j.run(ctx)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PANIC CONTAINMENT
// ══════════════════════════════════════════════════════════════════════════════

func TestRunNowContainsJobPanic(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	require.NoError(t, s.Register(&fakeJob{
		name: "broken",
		run:  func(ctx context.Context) error { panic("unexpected fault inside job") },
	}, NewIntervalSchedule(time.Minute)))

	result, err := s.RunNow(context.Background(), "broken")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	require.NoError(t, s.Register(&fakeJob{
		name: "broken",
		run:  func(ctx context.Context) error { panic("unexpected fault inside job") },
	}, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	// The loop ticks once per second; wait for at least one run.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		info, err := s.GetJobInfo("broken")
		require.NoError(t, err)
		if info.RunCount > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	info, err := s.GetJobInfo("broken")
	require.NoError(t, err)
	require.Greater(t, info.RunCount, int64(0), "job never ran")
	assert.Greater(t, info.FailCount, int64(0), "panic must be recorded as a failure")
	assert.True(t, s.IsRunning(), "scheduler must keep running after a job panic")
}

func TestRunNowReportsJobError(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	jobErr := errors.New("boom")
	require.NoError(t, s.Register(&fakeJob{
		name: "failing",
		run:  func(ctx context.Context) error { return jobErr },
	}, NewIntervalSchedule(time.Minute)))

	result, err := s.RunNow(context.Background(), "failing")

	require.ErrorIs(t, err, jobErr)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULES
// ══════════════════════════════════════════════════════════════════════════════

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(30 * time.Second)
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(30*time.Second), s.Next(now))
}

func TestDailyScheduleNext(t *testing.T) {
	s := NewDailySchedule(0, 1, time.UTC)

	before := time.Date(2026, 8, 29, 0, 0, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 0, 1, 0, 0, time.UTC), s.Next(before))

	after := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 0, 1, 0, 0, time.UTC), s.Next(after))
}
