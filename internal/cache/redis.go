package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shipbooking/config"
	"shipbooking/internal/domain"
)

type RedisCache struct {
	client     *redis.Client
	voyagesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, voyagesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		voyagesTTL: voyagesTTL,
	}
}

func (c *RedisCache) GetVoyages(ctx context.Context) ([]domain.Voyage, error) {
	data, err := c.client.Get(ctx, voyagesKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var voyages []domain.Voyage
	if err := json.Unmarshal(data, &voyages); err != nil {
		return nil, err
	}
	return voyages, nil
}

func (c *RedisCache) SetVoyages(ctx context.Context, voyages []domain.Voyage) error {
	payload, err := json.Marshal(voyages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, voyagesKey(), payload, c.voyagesTTL).Err()
}

// AcquireReferenceLock serializes cancel/confirm attempts on one
// booking reference across instances.
func (c *RedisCache) AcquireReferenceLock(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, referenceLockKey(reference), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseReferenceLock(ctx context.Context, reference string) error {
	return c.client.Del(ctx, referenceLockKey(reference)).Err()
}

func voyagesKey() string {
	return "cache:voyages"
}

func referenceLockKey(reference string) string {
	return fmt.Sprintf("lock:booking:%s", reference)
}
