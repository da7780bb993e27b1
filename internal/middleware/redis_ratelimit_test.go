package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, limit int) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return NewRedisRateLimiter(cli, limit, time.Minute), mr
}

func TestRedisRateLimiterWindowRollover(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 2)
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "1.2.3.4"))
	require.True(t, l.Allow(ctx, "1.2.3.4"))
	require.False(t, l.Allow(ctx, "1.2.3.4"))
	require.True(t, l.Allow(ctx, "5.6.7.8"))
	require.Equal(t, time.Minute, mr.TTL("rate_limit:1.2.3.4"))

	mr.FastForward(time.Minute)
	require.False(t, mr.Exists("rate_limit:1.2.3.4"))
	require.True(t, l.Allow(ctx, "1.2.3.4"))
}

func TestRedisRateLimiterRepairsCounterWithoutTTL(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 2)
	ctx := context.Background()
	require.NoError(t, mr.Set("rate_limit:1.2.3.4", "7"))
	require.Zero(t, mr.TTL("rate_limit:1.2.3.4"))

	require.False(t, l.Allow(ctx, "1.2.3.4"))
	require.Equal(t, time.Minute, mr.TTL("rate_limit:1.2.3.4"))

	mr.FastForward(time.Minute)
	require.True(t, l.Allow(ctx, "1.2.3.4"))
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 1)
	mr.Close()
	require.True(t, l.Allow(context.Background(), "1.2.3.4"))
	require.True(t, l.Allow(context.Background(), "1.2.3.4"))
}
