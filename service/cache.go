package service

import (
	"context"
	"encoding/json"
	"go-trip-api/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient is the subset of the Redis client used for cache-aside reads.
type ICacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// getCached decodes key into dst. A miss, a Redis failure and a corrupt entry
// all report false so the caller falls back to the database.
func getCached(ctx context.Context, cache ICacheClient, key string, dst interface{}) bool {
	if cache == nil {
		return false
	}
	raw, err := cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).WithField("key", key).Warn("Cache read failed")
		}
		return false
	}
	return json.Unmarshal([]byte(raw), dst) == nil
}

func setCached(ctx context.Context, cache ICacheClient, key string, value interface{}, ttl time.Duration) {
	if cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := cache.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}

func invalidate(ctx context.Context, cache ICacheClient, keys ...string) {
	if cache == nil {
		return
	}
	if err := cache.Del(ctx, keys...).Err(); err != nil {
		logger.Log.WithError(err).WithField("keys", keys).Warn("Cache invalidation failed")
	}
}
