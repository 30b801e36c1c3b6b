package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"carrental-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only if it still holds our token, so an expired
// lock taken over by another instance is never released by mistake.
const unlockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a Locker shared by every instance using the same Redis.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
	token  func() string
}

// NewRedisLocker creates a locker whose keys expire after ttl. Lock gives up
// with ErrTimeout after wait.
func NewRedisLocker(client redis.Cmdable, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
		token:  uuid.NewString,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := l.token()
	deadline := time.Now().Add(l.wait)

	for {
		logger.ExternalServiceCall("redis", "SETNX", "key", key)
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		logger.ExternalServiceResult("redis", "SETNX", err, "key", key, "acquired", ok)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlocker(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%s: %w", key, ErrTimeout)
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) unlocker(key, token string) Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the request context is already cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.client.Eval(ctx, unlockScript, []string{key}, token).Err(); err != nil {
				logger.Warn("Failed to release lock, it will expire on its own", "key", key, "error", err)
			}
		})
	}
}
