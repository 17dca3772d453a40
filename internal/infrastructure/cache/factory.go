package cache

import (
	"go.uber.org/zap"

	"github.com/nutrifit/backend/internal/infrastructure/config"
)

// Factory assembles the indexed cache from configuration
type Factory struct {
	redisConfig config.RedisConfig
	cacheConfig config.CacheConfig
	logger      *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithFactoryLogger sets the logger for the factory and the caches it builds
func WithFactoryLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a new cache factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig: redisCfg,
		cacheConfig: cacheCfg,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Create builds the indexed cache. With Redis disabled or unreachable the
// cache degrades to fallback-only operation; that is logged and non-fatal,
// so a missing backend never blocks startup.
func (f *Factory) Create() (*IndexedCache, *FallbackStore, error) {
	fallback := NewFallbackStore(WithCleanupInterval(f.cacheConfig.CleanupInterval))

	var backend *RedisBackend
	if f.redisConfig.Enabled {
		b, err := NewRedisBackend(f.redisConfig)
		if err != nil {
			f.logger.Warn("Redis unavailable, cache degrades to in-process fallback only. "+
				"Cached artifacts will not be shared across process instances.",
				zap.Error(err),
			)
		} else {
			backend = b
			f.logger.Info("using Redis cache backend",
				zap.String("addr", f.redisConfig.Addr()))
		}
	} else {
		f.logger.Info("Redis disabled, cache runs on in-process fallback only")
	}

	entries := NewEntryStore(backend, fallback, WithEntryStoreLogger(f.logger))
	index := NewNamespaceIndex(backend, fallback, f.logger)
	cache := NewIndexedCache(entries, index, WithIndexedCacheLogger(f.logger))

	return cache, fallback, nil
}
