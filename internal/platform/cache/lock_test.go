package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewLocker(rdb), mr
}

func TestLockerExclusive(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	first, ok, err := locker.TryAcquire(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryAcquire(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	_, ok, err = locker.TryAcquire(ctx, "lock:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different keys do not contend")

	released, err := first.Release(ctx)
	require.NoError(t, err)
	assert.True(t, released)

	_, ok, err = locker.TryAcquire(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockReleaseAfterTakeover(t *testing.T) {
	locker, mr := newTestLocker(t)
	ctx := context.Background()

	stale, ok, err := locker.TryAcquire(ctx, "lock:a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryAcquire(ctx, "lock:a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	released, err := stale.Release(ctx)
	require.NoError(t, err)
	assert.False(t, released, "stale holder must not delete the new owner's lock")
	assert.True(t, mr.Exists("lock:a"))
}
