// Package cache provides the idempotency response cache. Enriched results
// are stored under their idempotency key with a TTL, so a replayed request
// for the same meeting event can be answered without another generation
// call. Results stamped with the placeholder key are never cached.
package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lftm-team/meeting-enrichment/pkg/config"
)

// Store is a key-value store with per-entry expiration.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// New builds the store selected by the config: "redis" or the in-process
// fallback. Unknown backends fall back to memory.
func New(cfg *config.CacheConfig, logger *zap.Logger) Store {
	if cfg != nil && cfg.Backend == "redis" {
		return NewRedisStore(cfg, logger)
	}
	return NewMemoryStore()
}
