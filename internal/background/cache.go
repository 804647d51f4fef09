package background

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "background:image:"

// Cache remembers generated image URLs by prompt hash. A Cache with a nil
// client misses every lookup and stores nothing.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewCache(client redis.UniversalClient, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(req Request) string {
	return fmt.Sprintf("%s%s:%s:%s", cacheKeyPrefix, HashPrompt(req.Prompt), req.AspectRatio, req.OutputFormat)
}

func (c *Cache) Get(ctx context.Context, req Request) (string, bool, error) {
	if c == nil || c.client == nil {
		return "", false, nil
	}

	url, err := c.client.Get(ctx, cacheKey(req)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached image: %w", err)
	}
	return url, true, nil
}

func (c *Cache) Set(ctx context.Context, req Request, url string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Set(ctx, cacheKey(req), url, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache image: %w", err)
	}
	logrus.WithField("ttl", c.ttl).Debug("cached generated image")
	return nil
}
