package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginKeyPrefix = "warenvoyage:login:"

// LoginLimiter counts login attempts per key in fixed windows.
type LoginLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLoginLimiter allows limit attempts per key in each window.
func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{client: client, limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it is within the
// limit. A nil limiter, or one with a non-positive limit, allows everything.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	redisKey := loginKeyPrefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}
