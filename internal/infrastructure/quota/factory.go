package quota

import (
	"fmt"

	"go.uber.org/zap"

	domain "github.com/nutrifit/backend/internal/domain/quota"
	"github.com/nutrifit/backend/internal/infrastructure/config"
)

// CounterStoreFactory creates counter stores based on configuration
type CounterStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CounterStoreFactoryOption is a functional option for configuring the factory
type CounterStoreFactoryOption func(*CounterStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CounterStoreFactoryOption {
	return func(f *CounterStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory store
// when Redis is disabled or unavailable. Default is true.
func WithInMemoryFallback(allow bool) CounterStoreFactoryOption {
	return func(f *CounterStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCounterStoreFactory creates a new factory
func NewCounterStoreFactory(cfg config.RedisConfig, opts ...CounterStoreFactoryOption) *CounterStoreFactory {
	f := &CounterStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStore creates a counter store. With Redis enabled it tries Redis
// first and falls back to in-memory when allowed; with Redis disabled the
// in-memory store is used directly. Per-instance counters mean quota views
// diverge across a multi-instance deployment, a known single-instance-only
// limitation of the fallback.
func (f *CounterStoreFactory) CreateStore() (domain.CounterStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory quota counters")
		return NewInMemoryCounterStore(), nil
	}

	store, err := NewRedisCounterStore(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis quota counter store",
			zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for quota counters but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory quota counters. "+
		"Quota views will not be shared across process instances.",
		zap.Error(err),
	)
	return NewInMemoryCounterStore(), nil
}
