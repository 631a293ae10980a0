package redisx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/integration-engine/internal/platform/logger"
)

var ErrLockBusy = errors.New("lock busy")

// Locker serialises writers per key. The returned release func is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const (
	lockPrefix   = "integration:lock:"
	lockPollWait = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewLocker returns a Redis-backed locker, or an in-process one when rdb is nil.
func NewLocker(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if rdb == nil {
		return NewLocalLocker(ttl)
	}
	return &redisLocker{rdb: rdb, ttl: ttl, log: log.With("service", "RedisLocker")}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, fmt.Errorf("lock key required")
	}
	rkey := lockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.rdb.SetNX(ctx, rkey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					if err := releaseScript.Run(relCtx, l.rdb, []string{rkey}, token).Err(); err != nil {
						l.log.Warn("redis lock release failed", "key", key, "error", err)
					}
				})
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollWait):
		}
	}
}

type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocalLocker serialises writers within one process. wait bounds how long Acquire blocks.
func NewLocalLocker(wait time.Duration) Locker {
	return &localLocker{slots: map[string]chan struct{}{}, wait: wait}
}

func (l *localLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *localLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, fmt.Errorf("lock key required")
	}
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrLockBusy, key)
	}
}
