package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/application/query"
	"github.com/studyhub/study-tracker-hub/internal/domain/report"
	"github.com/studyhub/study-tracker-hub/internal/domain/shared"
	infracal "github.com/studyhub/study-tracker-hub/internal/infrastructure/calendar"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type fakeAnchors struct {
	mu      sync.Mutex
	anchors map[string]*report.Anchor
}

func newFakeAnchors() *fakeAnchors {
	return &fakeAnchors{anchors: make(map[string]*report.Anchor)}
}

func (f *fakeAnchors) Get(ctx context.Context, dayKey string) (*report.Anchor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.anchors[dayKey]
	if !ok {
		return nil, shared.ErrAnchorNotFound
	}
	return a, nil
}

func (f *fakeAnchors) Save(ctx context.Context, a *report.Anchor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchors[a.DayKey] = a
	return nil
}

func (f *fakeAnchors) Delete(ctx context.Context, dayKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.anchors, dayKey)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	publishes int
	edits     int
	nextID    int64
	editErr   error
}

func (f *fakePublisher) Publish(ctx context.Context, chatID int64, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes++
	f.nextID++
	return f.nextID, nil
}

func (f *fakePublisher) Edit(ctx context.Context, chatID, messageID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	return f.editErr
}

type fakeLocker struct {
	held       bool
	acquireErr error
	released   bool
}

func (f *fakeLocker) AcquireLock(ctx context.Context, resource string) (bool, error) {
	return f.held, f.acquireErr
}

func (f *fakeLocker) ReleaseLock(ctx context.Context, resource string) error {
	f.released = true
	return nil
}

func newSnapshotHandler(t *testing.T) *query.RankedSnapshotHandler {
	t.Helper()

	store := memory.NewStore(timeutil.TehranTZ)
	aggregator := memory.NewAggregator()
	resolver := infracal.NewPersianResolver(timeutil.TehranTZ)

	return query.NewRankedSnapshotHandler(store, aggregator, resolver, nil, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH REPORT JOB
// ══════════════════════════════════════════════════════════════════════════════

func TestRefreshPublishesUnderLock(t *testing.T) {
	anchors := newFakeAnchors()
	publisher := &fakePublisher{}
	locker := &fakeLocker{held: true}

	job := NewRefreshReportJob(newSnapshotHandler(t), anchors, publisher, nil, locker, nil, RefreshReportConfig{ChatID: 42})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, publisher.publishes)
	assert.True(t, locker.released, "the lock must be released after the tick")
	assert.Len(t, anchors.anchors, 1, "the published message must be anchored")
}

func TestRefreshSkipsTickWhenLockHeldElsewhere(t *testing.T) {
	anchors := newFakeAnchors()
	publisher := &fakePublisher{}
	locker := &fakeLocker{held: false}

	job := NewRefreshReportJob(newSnapshotHandler(t), anchors, publisher, nil, locker, nil, RefreshReportConfig{ChatID: 42})

	require.NoError(t, job.Run(context.Background()))

	assert.Zero(t, publisher.publishes, "a losing instance must not touch the board")
	assert.Zero(t, publisher.edits)
	assert.False(t, locker.released, "a lock that was never taken must not be released")
}

func TestRefreshProceedsWhenLockBackendFails(t *testing.T) {
	anchors := newFakeAnchors()
	publisher := &fakePublisher{}
	locker := &fakeLocker{acquireErr: errors.New("redis down")}

	job := NewRefreshReportJob(newSnapshotHandler(t), anchors, publisher, nil, locker, nil, RefreshReportConfig{ChatID: 42})

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 1, publisher.publishes, "a broken lock backend must not silence the board")
}

func TestRefreshRepublishesWhenMessageGone(t *testing.T) {
	anchors := newFakeAnchors()
	publisher := &fakePublisher{editErr: report.ErrMessageGone}

	job := NewRefreshReportJob(newSnapshotHandler(t), anchors, publisher, nil, nil, nil, RefreshReportConfig{ChatID: 42})

	ctx := context.Background()
	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))

	assert.Equal(t, 1, publisher.edits, "the second tick must try the anchored message first")
	assert.Equal(t, 2, publisher.publishes, "a gone message must be republished")
}

func TestRefreshEditsAnchoredMessage(t *testing.T) {
	anchors := newFakeAnchors()
	publisher := &fakePublisher{}

	job := NewRefreshReportJob(newSnapshotHandler(t), anchors, publisher, nil, nil, nil, RefreshReportConfig{ChatID: 42, Timeout: time.Second})

	ctx := context.Background()
	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))

	assert.Equal(t, 1, publisher.publishes, "only the first tick publishes")
	assert.Equal(t, 1, publisher.edits, "later ticks edit in place")
}
