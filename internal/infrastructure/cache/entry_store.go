package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EntryStore is the dual-backend key/value layer. The distributed backend
// is optional; the in-process fallback always receives every write, which
// keeps single-instance deployments correct with no Redis at all and gives
// every region one TTL semantic regardless of backend capability. A backend
// I/O failure degrades a read to the fallback, never to an error.
type EntryStore struct {
	backend  *RedisBackend // nil when no distributed backend is configured
	fallback *FallbackStore
	logger   *zap.Logger

	// Stats for monitoring
	backendHits  int64
	fallbackHits int64
	misses       int64
}

// EntryStoreOption is a functional option for configuring the store
type EntryStoreOption func(*EntryStore)

// WithEntryStoreLogger sets the logger for the store
func WithEntryStoreLogger(logger *zap.Logger) EntryStoreOption {
	return func(s *EntryStore) {
		s.logger = logger
	}
}

// NewEntryStore creates a dual-backend entry store. Pass a nil backend for
// fallback-only operation.
func NewEntryStore(backend *RedisBackend, fallback *FallbackStore, opts ...EntryStoreOption) *EntryStore {
	store := &EntryStore{
		backend:  backend,
		fallback: fallback,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Get returns the raw value for key, trying the distributed backend first
// and the fallback on miss, error, or absence of a backend.
func (s *EntryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if s.backend != nil {
		data, found, err := s.backend.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache backend read failed, trying fallback",
				zap.String("key", key), zap.Error(err))
		} else if found {
			atomic.AddInt64(&s.backendHits, 1)
			return data, true
		}
	}

	if data, found := s.fallback.Get(key); found {
		atomic.AddInt64(&s.fallbackHits, 1)
		return data, true
	}

	atomic.AddInt64(&s.misses, 1)
	return nil, false
}

// Put writes the raw value to the distributed backend when configured and
// always to the fallback
func (s *EntryStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if s.backend != nil {
		if err := s.backend.Set(ctx, key, value, ttl); err != nil {
			s.logger.Warn("cache backend write failed, fallback only",
				zap.String("key", key), zap.Error(err))
		}
	}
	s.fallback.Set(key, value, ttl)
}

// Evict removes the given keys from both backends
func (s *EntryStore) Evict(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if s.backend != nil {
		if err := s.backend.Del(ctx, keys...); err != nil {
			s.logger.Warn("cache backend delete failed",
				zap.Strings("keys", keys), zap.Error(err))
		}
	}
	s.fallback.Del(keys...)
}

// HasBackend reports whether a distributed backend is configured
func (s *EntryStore) HasBackend() bool {
	return s.backend != nil
}

// Stats is a snapshot of hit/miss counters
type Stats struct {
	BackendHits  int64 `json:"backend_hits"`
	FallbackHits int64 `json:"fallback_hits"`
	Misses       int64 `json:"misses"`
}

// GetStats returns a snapshot of the store's counters
func (s *EntryStore) GetStats() Stats {
	return Stats{
		BackendHits:  atomic.LoadInt64(&s.backendHits),
		FallbackHits: atomic.LoadInt64(&s.fallbackHits),
		Misses:       atomic.LoadInt64(&s.misses),
	}
}
