package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	held, err := cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	assert.True(t, held, "the first acquire must win")

	held, err = cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	assert.False(t, held, "a held lock must refuse a second acquire")

	require.NoError(t, cache.ReleaseLock(ctx, "refresh_report"))

	held, err = cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	assert.True(t, held, "a released lock must be acquirable again")
}

func TestAcquireLockExpiresAfterTTL(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	held, err := cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	require.True(t, held)

	mr.FastForward(TTLDistributedLock + time.Second)

	held, err = cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	assert.True(t, held, "a crashed holder's lock must expire")
}

func TestLocksAreIndependentPerResource(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	held, err := cache.AcquireLock(ctx, "refresh_report")
	require.NoError(t, err)
	require.True(t, held)

	held, err = cache.AcquireLock(ctx, "daily_report")
	require.NoError(t, err)
	assert.True(t, held, "locks must not collide across resources")
}
