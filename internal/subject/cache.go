package subject

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trivialabs/trivia-platform/internal/model"
)

const (
	defaultCacheTTL = 5 * time.Minute
	cacheKey        = "subjects:list"
)

// Cache provides Redis-backed caching for the subject list, which every
// client fetches on startup.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ListCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context) ([]model.Subject, error) {
	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var subjects []model.Subject
	if err := json.Unmarshal(data, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (c *Cache) Set(ctx context.Context, subjects []model.Subject) error {
	data, err := json.Marshal(subjects)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey, data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, cacheKey).Err()
}
