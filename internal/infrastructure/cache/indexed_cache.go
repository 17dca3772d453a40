package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// IndexedCache is the region-scoped facade over the entry store and the
// namespace index. Values are JSON at this boundary; an entry that no
// longer unmarshals into the requested type is evicted and reported as a
// miss rather than surfaced as an error. All backend I/O failures are
// absorbed here: the cache accelerates, it is never a source of truth.
type IndexedCache struct {
	entries *EntryStore
	index   *NamespaceIndex
	logger  *zap.Logger
}

// IndexedCacheOption is a functional option for configuring the cache
type IndexedCacheOption func(*IndexedCache)

// WithIndexedCacheLogger sets the logger for the cache
func WithIndexedCacheLogger(logger *zap.Logger) IndexedCacheOption {
	return func(c *IndexedCache) {
		c.logger = logger
	}
}

// NewIndexedCache composes the entry store and namespace index
func NewIndexedCache(entries *EntryStore, index *NamespaceIndex, opts ...IndexedCacheOption) *IndexedCache {
	c := &IndexedCache{
		entries: entries,
		index:   index,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// entryKey builds the storage key for one cache entry
func entryKey(region, key string) string {
	return "cache:" + region + ":" + key
}

// namespaceKey builds the storage key for one owner's index set
func namespaceKey(region, indexKey string) string {
	return "cacheidx:" + region + ":" + indexKey
}

// Get unmarshals the cached value for (region, key) into dest and reports
// whether a live entry was found
func (c *IndexedCache) Get(ctx context.Context, region, key string, dest any) bool {
	storageKey := entryKey(region, key)

	data, found := c.entries.Get(ctx, storageKey)
	if !found {
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Poisoned entry: the stored shape no longer matches the requested
		// type. Evict it and report a miss so the caller recomputes.
		c.logger.Warn("evicting undecodable cache entry",
			zap.String("region", region), zap.String("key", key), zap.Error(err))
		c.entries.Evict(ctx, storageKey)
		return false
	}
	return true
}

// Put stores value under (region, key) with the given TTL and, when
// indexKey is non-empty, registers the key under the owner's namespace for
// later bulk invalidation
func (c *IndexedCache) Put(ctx context.Context, region, indexKey, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	storageKey := entryKey(region, key)
	c.entries.Put(ctx, storageKey, data, ttl)

	if indexKey != "" {
		c.index.Register(ctx, namespaceKey(region, indexKey), storageKey)
	}
	return nil
}

// Refresh re-writes an existing entry to extend its life. Semantically a
// re-write that signals no new computation happened: the namespace
// registration is already in place, so no index churn.
func (c *IndexedCache) Refresh(ctx context.Context, region, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries.Put(ctx, entryKey(region, key), data, ttl)
	return nil
}

// InvalidateNamespace evicts every key ever registered under the owner's
// index, then drops the index itself. A fresh Put under the same owner
// afterwards starts an empty namespace.
func (c *IndexedCache) InvalidateNamespace(ctx context.Context, region, indexKey string) {
	nsKey := namespaceKey(region, indexKey)

	members := c.index.Members(ctx, nsKey)
	if len(members) > 0 {
		c.entries.Evict(ctx, members...)
	}
	c.index.Drop(ctx, nsKey)

	c.logger.Debug("invalidated cache namespace",
		zap.String("region", region),
		zap.String("index", indexKey),
		zap.Int("members", len(members)))
}

// InvalidateEntry evicts one key and removes it from the owner's index
func (c *IndexedCache) InvalidateEntry(ctx context.Context, region, indexKey, key string) {
	storageKey := entryKey(region, key)

	c.entries.Evict(ctx, storageKey)
	if indexKey != "" {
		c.index.Remove(ctx, namespaceKey(region, indexKey), storageKey)
	}
}

// HasBackend reports whether a distributed backend is configured
func (c *IndexedCache) HasBackend() bool {
	return c.entries.HasBackend()
}

// GetStats returns the entry store's hit/miss counters
func (c *IndexedCache) GetStats() Stats {
	return c.entries.GetStats()
}
