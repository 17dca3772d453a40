package cache

import (
	"context"
	"time"
)

// TypedStore binds the indexed cache to one artifact kind: a fixed region,
// a value type, and a default TTL. Callers deal in semantic owner/variant
// keys and typed values; key layout and serialization stay in here.
type TypedStore[T any] struct {
	cache      *IndexedCache
	region     string
	defaultTTL time.Duration
}

// NewTypedStore creates a typed binding for one cache region
func NewTypedStore[T any](cache *IndexedCache, region string, defaultTTL time.Duration) *TypedStore[T] {
	return &TypedStore[T]{
		cache:      cache,
		region:     region,
		defaultTTL: defaultTTL,
	}
}

// Region returns the cache region this store is bound to
func (s *TypedStore[T]) Region() string {
	return s.region
}

// Get returns the cached value for (owner, variant), or nil on a miss
func (s *TypedStore[T]) Get(ctx context.Context, owner, variant string) *T {
	var value T
	if !s.cache.Get(ctx, s.region, owner+":"+variant, &value) {
		return nil
	}
	return &value
}

// Put stores the value under (owner, variant) with the default TTL and
// registers it in the owner's namespace
func (s *TypedStore[T]) Put(ctx context.Context, owner, variant string, value T) error {
	return s.cache.Put(ctx, s.region, owner, owner+":"+variant, value, s.defaultTTL)
}

// PutTTL stores the value with an explicit TTL
func (s *TypedStore[T]) PutTTL(ctx context.Context, owner, variant string, value T, ttl time.Duration) error {
	return s.cache.Put(ctx, s.region, owner, owner+":"+variant, value, ttl)
}

// Refresh re-writes the value to extend its life without index churn
func (s *TypedStore[T]) Refresh(ctx context.Context, owner, variant string, value T) error {
	return s.cache.Refresh(ctx, s.region, owner+":"+variant, value, s.defaultTTL)
}

// Invalidate evicts every variant cached for the owner
func (s *TypedStore[T]) Invalidate(ctx context.Context, owner string) {
	s.cache.InvalidateNamespace(ctx, s.region, owner)
}

// InvalidateVariant evicts one variant for the owner
func (s *TypedStore[T]) InvalidateVariant(ctx context.Context, owner, variant string) {
	s.cache.InvalidateEntry(ctx, s.region, owner, owner+":"+variant)
}
