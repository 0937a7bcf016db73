package db

import (
	"context"
	"fmt"
	"go-trip-api/config"
	"go-trip-api/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for the shared rate-limit counters and the
// read cache, or nil when Redis is disabled.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		logger.Log.Info("Redis disabled, using in-memory rate limiting and no cache")
		return nil, nil
	}

	redisAddr := fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		logger.Log.WithError(err).Error("Failed to ping Redis")
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Log.WithField("address", redisAddr).Info("Redis connection established successfully")
	return rdb, nil
}
