package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	l := NewRedisLocker(cli, ttl)
	l.retries = 3
	l.wait = 5 * time.Millisecond
	return l, mr
}

func TestRedisLockerBusyUntilReleased(t *testing.T) {
	l, mr := newTestRedisLocker(t, 10*time.Second)
	ctx := context.Background()
	const key = "mpesa:callback:ws_CO_1"

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))
	require.Equal(t, 10*time.Second, mr.TTL(key))

	_, err = l.Lock(ctx, key)
	require.ErrorIs(t, err, ErrLockBusy)

	unlock()
	require.False(t, mr.Exists(key))

	unlock2, err := l.Lock(ctx, key)
	require.NoError(t, err)
	unlock2()
}

func TestRedisLockerUnlockKeepsOtherHoldersKey(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	ctx := context.Background()
	const key = "mpesa:callback:ws_CO_2"

	staleUnlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	// The first holder overran its TTL and someone else took the lock.
	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(key))
	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	owner, err := mr.Get(key)
	require.NoError(t, err)

	staleUnlock()
	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, owner, got)

	unlock()
	require.False(t, mr.Exists(key))
}

func TestRedisLockerHonoursContext(t *testing.T) {
	l, _ := newTestRedisLocker(t, 10*time.Second)
	l.retries = 1000
	const key = "mpesa:callback:ws_CO_3"

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockerFailsWhenRedisIsDown(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	mr.Close()
	_, err := l.Lock(context.Background(), "mpesa:callback:ws_CO_4")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrLockBusy)
}
