package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Keys match the API's status cache.
const (
	statusKeyPrefix = "task:status:"
	statusTTL       = 24 * time.Hour
)

type StatusCache struct {
	client *redis.Client
}

func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

func (c *StatusCache) Set(ctx context.Context, taskID string, status string) error {
	return c.client.Set(ctx, statusKeyPrefix+taskID, status, statusTTL).Err()
}
