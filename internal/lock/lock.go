package lock

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockBusy = errors.New("lock is held by another request")

// Locker serializes work on a key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// RedisLocker is a SETNX lock shared by every instance behind the load
// balancer.
type RedisLocker struct {
	cli     *redis.Client
	ttl     time.Duration
	retries int
	wait    time.Duration
}

func NewRedisLocker(cli *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{cli: cli, ttl: ttl, retries: 20, wait: 50 * time.Millisecond}
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for i := 0; i < l.retries; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Released on a fresh context so a cancelled request still unlocks.
				_, _ = luaUnlock.Run(context.Background(), l.cli, []string{key}, token).Result()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.wait):
		}
	}
	return nil, ErrLockBusy
}

const stripes = 64

// LocalLocker is an in-process striped mutex for single instance deployments.
type LocalLocker struct {
	mu [stripes]sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.mu[h.Sum32()%stripes]
	m.Lock()
	return m.Unlock, nil
}
