// internal/store/statuscache.go
package store

import (
	"context"
	"fmt"
	"time"

	"brightsigns-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const defaultStatusTTL = 24 * time.Hour

// StatusCache mirrors estimate status transitions into Redis so pollers can
// read progress without hitting Postgres.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(estimateUUID string) string {
	return fmt.Sprintf("quote:estimate:%s:status", estimateUUID)
}

// RecordStatus writes the latest status with a TTL refresh.
func (c *StatusCache) RecordStatus(ctx context.Context, estimateUUID string, status models.EstimateStatus) error {
	return c.client.Set(ctx, statusKey(estimateUUID), string(status), c.ttl).Err()
}

// GetStatus reads the cached status. A cache miss returns ok=false, not an
// error; callers fall back to the database.
func (c *StatusCache) GetStatus(ctx context.Context, estimateUUID string) (models.EstimateStatus, bool, error) {
	val, err := c.client.Get(ctx, statusKey(estimateUUID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.EstimateStatus(val), true, nil
}
