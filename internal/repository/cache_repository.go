package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dafedescribe/wey/internal/models"
	"github.com/dgraph-io/ristretto"
)

type CacheRepository interface {
	Get(ctx context.Context, code string) (*models.Link, error)
	Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

// cacheRepository layers an in-process ristretto cache in front of Redis so
// hot redirects skip the network round trip entirely.
type cacheRepository struct {
	redis *RedisDB
	local *ristretto.Cache
}

func NewCacheRepository(redis *RedisDB) (CacheRepository, error) {
	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	return &cacheRepository{redis: redis, local: local}, nil
}

func (r *cacheRepository) Get(ctx context.Context, code string) (*models.Link, error) {
	if v, ok := r.local.Get(code); ok {
		if link, ok := v.(*models.Link); ok {
			return link, nil
		}
	}

	data, err := r.redis.Client.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var link models.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}

	r.local.SetWithTTL(code, &link, 1, time.Minute)
	return &link, nil
}

func (r *cacheRepository) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	data, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	r.local.SetWithTTL(code, link, 1, time.Minute)
	return r.redis.Client.Set(ctx, r.key(code), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, code string) error {
	r.local.Del(code)
	return r.redis.Client.Del(ctx, r.key(code)).Err()
}

func (r *cacheRepository) key(code string) string {
	return "link:" + code
}
