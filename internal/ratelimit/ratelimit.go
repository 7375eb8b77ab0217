package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/lilohq/lilo-bookings/internal/adapters/redis"
)

// Limiter is injected at the HTTP boundary so a deployment can swap the
// backing store without touching the middleware.
type Limiter interface {
	Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error)
}

// RedisLimiter counts requests per key in a fixed window. State lives in
// redis, so the limit holds across processes and survives restarts.
type RedisLimiter struct {
	redis *redisadapter.Cache
}

func NewRedisLimiter(redis *redisadapter.Cache) *RedisLimiter {
	return &RedisLimiter{redis: redis}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error) {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	return incr.Val() <= int64(rate), nil
}
