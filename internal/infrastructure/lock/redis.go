package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"loan-servicing/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL   = 30 * time.Second
	retryBackoff = 50 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// RedisLocker is a lease-based lock shared by every instance using the same Redis. The lease expires
// after ttl so a crashed holder cannot block a loan forever.
type RedisLocker struct {
	client lockClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return newRedisLocker(client, ttl, logger)
}

func newRedisLocker(client lockClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: "lock:",
		logger: logger.With("component", "RedisLocker"),
	}
}

// Lock polls until the key is free or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrLockNotAcquired, key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrLockNotAcquired, key, ctx.Err())
		case <-timer.C:
		}
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		n, err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.ErrorContext(releaseCtx, "Failed to release lock", "key", redisKey, "error", err)
			return
		}
		if n == 0 {
			l.logger.WarnContext(releaseCtx, "Lock lease expired before release", "key", redisKey)
		}
	}, nil
}
