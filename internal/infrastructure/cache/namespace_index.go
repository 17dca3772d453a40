package cache

import (
	"context"

	"go.uber.org/zap"
)

// NamespaceIndex tracks, per owner, the set of live cache keys written
// under that owner. Bulk invalidation walks the set and issues direct
// deletes, which stays O(|members|) instead of pattern-scanning the
// keyspace. Like the entry layer it dual-writes: the Redis set when a
// backend is configured, and the in-process sets always.
type NamespaceIndex struct {
	backend  *RedisBackend // nil when no distributed backend is configured
	fallback *FallbackStore
	logger   *zap.Logger
}

// NewNamespaceIndex creates an index over the given backends. Pass a nil
// backend for fallback-only operation.
func NewNamespaceIndex(backend *RedisBackend, fallback *FallbackStore, logger *zap.Logger) *NamespaceIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NamespaceIndex{
		backend:  backend,
		fallback: fallback,
		logger:   logger,
	}
}

// Register records memberKey as live under indexKey in both backends
func (i *NamespaceIndex) Register(ctx context.Context, indexKey, memberKey string) {
	if i.backend != nil {
		if err := i.backend.SAdd(ctx, indexKey, memberKey); err != nil {
			i.logger.Warn("index backend registration failed",
				zap.String("index", indexKey), zap.String("member", memberKey), zap.Error(err))
		}
	}
	i.fallback.SAdd(indexKey, memberKey)
}

// Members returns the union of members known to either backend. Union
// rather than first-wins: after a backend outage the fallback may know
// members the backend missed, and invalidation must reach all of them.
func (i *NamespaceIndex) Members(ctx context.Context, indexKey string) []string {
	seen := make(map[string]struct{})

	if i.backend != nil {
		members, err := i.backend.SMembers(ctx, indexKey)
		if err != nil {
			i.logger.Warn("index backend enumeration failed, fallback members only",
				zap.String("index", indexKey), zap.Error(err))
		} else {
			for _, m := range members {
				seen[m] = struct{}{}
			}
		}
	}

	for _, m := range i.fallback.SMembers(indexKey) {
		seen[m] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	return out
}

// Remove deletes one member from the index in both backends. Empty fallback
// sets are pruned; the Redis set disappears on its own once its last member
// is removed.
func (i *NamespaceIndex) Remove(ctx context.Context, indexKey, memberKey string) {
	if i.backend != nil {
		if err := i.backend.SRem(ctx, indexKey, memberKey); err != nil {
			i.logger.Warn("index backend member removal failed",
				zap.String("index", indexKey), zap.String("member", memberKey), zap.Error(err))
		}
	}
	i.fallback.SRem(indexKey, memberKey)
}

// Drop removes the whole index from both backends
func (i *NamespaceIndex) Drop(ctx context.Context, indexKey string) {
	if i.backend != nil {
		if err := i.backend.Del(ctx, indexKey); err != nil {
			i.logger.Warn("index backend drop failed",
				zap.String("index", indexKey), zap.Error(err))
		}
	}
	i.fallback.SDel(indexKey)
}
