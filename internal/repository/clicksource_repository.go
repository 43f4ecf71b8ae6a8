package repository

import (
	"context"
	"fmt"
	"time"
)

// ClickSourceRepository answers "is this the first click on this link from
// this address" with an atomic add-and-report, so two concurrent clicks from
// one address cannot both be marked unique.
type ClickSourceRepository interface {
	MarkSeen(ctx context.Context, linkID int64, ipAddress string) (first bool, err error)
}

type clickSourceRepository struct {
	redis *RedisDB
}

func NewClickSourceRepository(redis *RedisDB) ClickSourceRepository {
	return &clickSourceRepository{redis: redis}
}

func (r *clickSourceRepository) MarkSeen(ctx context.Context, linkID int64, ipAddress string) (bool, error) {
	key := fmt.Sprintf("clicks:sources:%d", linkID)

	added, err := r.redis.Client.SAdd(ctx, key, ipAddress).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark click source: %w", err)
	}
	// Keep the set from growing unbounded for dead links. Expired entries
	// only widen the fast path; the tracker re-checks stored events before
	// trusting a first-seen answer.
	if err := r.redis.Client.Expire(ctx, key, 90*24*time.Hour).Err(); err != nil {
		return false, fmt.Errorf("failed to expire click source set: %w", err)
	}

	return added == 1, nil
}
