package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix = "mrp:bucket:"
	defaultRetryDelay = 20 * time.Millisecond
	maxRetryDelay     = 500 * time.Millisecond
	releaseTimeout    = 2 * time.Second
)

// releaseScript deletes the key only if it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process talking to the same Redis.
// A lock expires after ttl so a crashed holder cannot block a bucket forever.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		prefix: defaultLockPrefix,
		logger: logger.Named("redis_locker"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	delay := defaultRetryDelay

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if delay < maxRetryDelay {
			delay *= 2
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		deleted, err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("failed to release bucket lock", zap.String("key", key), zap.Error(err))
			return
		}
		if deleted == 0 {
			l.logger.Warn("bucket lock expired before release", zap.String("key", key), zap.Duration("ttl", l.ttl))
		}
	}, nil
}
