package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"imageConverter/api/database"
	"imageConverter/api/models"
)

// StatusKeyPrefix is shared with the worker, which writes the same keys.
const (
	StatusKeyPrefix = "task:status:"
	statusTTL       = 10 * time.Minute
)

var ErrMiss = errors.New("status not cached")

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

// Get returns ErrMiss when nothing is cached for taskID. The worker stores
// bare status strings, so values that are not JSON are taken verbatim.
func (sc *StatusCache) Get(ctx context.Context, taskID string) (models.TaskStatus, error) {
	data, err := sc.cache.Get(ctx, key(taskID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMiss
		}
		return "", err
	}

	var status models.TaskStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		status = models.TaskStatus(data)
	}

	return status, nil
}

func (sc *StatusCache) Set(ctx context.Context, taskID string, status models.TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key(taskID), data, statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, taskID string) error {
	return sc.cache.Del(ctx, key(taskID))
}

func key(taskID string) string {
	return fmt.Sprintf("%s%s", StatusKeyPrefix, taskID)
}
