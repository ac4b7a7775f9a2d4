package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

// RedisStore backs the idempotency cache with Redis, so replayed requests
// hit regardless of which instance served the original one.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed store from the cache config.
func NewRedisStore(cfg *config.CacheConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil && logger != nil {
		logger.Warn("redis not reachable at startup, cache lookups will fail open",
			zap.String("addr", cfg.GetRedisAddr()),
			zap.Error(err),
		)
	}

	return &RedisStore{client: client, logger: logger}
}

func (rs *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := rs.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (rs *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return rs.client.Set(ctx, key, value, ttl).Err()
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
