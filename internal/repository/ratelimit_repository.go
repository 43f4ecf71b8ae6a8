package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository maintains the per-identity rolling creation window.
type RateLimitRepository interface {
	// ReserveSlot prunes entries older than the window, counts the rest and
	// appends a new timestamp only when the count is below the limit. The
	// whole sequence runs server-side as one script, so two concurrent
	// requests from the same identity cannot both pass on a stale count.
	ReserveSlot(ctx context.Context, identity string, limit int, window time.Duration) (allowed bool, err error)
}

// reserveScript: KEYS[1] window key, ARGV = now_ms, window_ms, limit, member.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

type rateLimitRepository struct {
	redis *RedisDB
}

func NewRateLimitRepository(redis *RedisDB) RateLimitRepository {
	return &rateLimitRepository{redis: redis}
}

func (r *rateLimitRepository) ReserveSlot(ctx context.Context, identity string, limit int, window time.Duration) (bool, error) {
	key := "ratelimit:create:" + identity
	now := time.Now()

	res, err := reserveScript.Run(ctx, r.redis.Client,
		[]string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		// Nanosecond member keeps same-millisecond requests distinct.
		fmt.Sprintf("%d", now.UnixNano()),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to reserve rate limit slot: %w", err)
	}

	return res == 1, nil
}
