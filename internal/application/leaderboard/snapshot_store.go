package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

// Region is the cache region leaderboard snapshots live in
const Region = "leaderboard"

// Row is one ranked participant in a snapshot
type Row struct {
	Rank   int       `json:"rank"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Points int64     `json:"points"`
}

// Snapshot is a rendered leaderboard for one group and scope. Computing it
// means ranking the whole group, which is why it is cached.
type Snapshot struct {
	GroupID     string    `json:"group_id"`
	Scope       string    `json:"scope"` // e.g. "weekly", "monthly", "all_time"
	Rows        []Row     `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SnapshotStore caches leaderboard snapshots per group, keyed by scope
type SnapshotStore struct {
	store *cache.TypedStore[Snapshot]
}

// NewSnapshotStore creates a snapshot store with the given default TTL
func NewSnapshotStore(indexed *cache.IndexedCache, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		store: cache.NewTypedStore[Snapshot](indexed, Region, ttl),
	}
}

// Get returns the cached snapshot for (group, scope), or nil
func (s *SnapshotStore) Get(ctx context.Context, groupID, scope string) *Snapshot {
	return s.store.Get(ctx, groupID, scope)
}

// Put caches a freshly computed snapshot
func (s *SnapshotStore) Put(ctx context.Context, snapshot Snapshot) error {
	return s.store.Put(ctx, snapshot.GroupID, snapshot.Scope, snapshot)
}

// Invalidate drops every cached scope for the group. Called when a score
// lands: every rendered view of the group is stale at once.
func (s *SnapshotStore) Invalidate(ctx context.Context, groupID string) {
	s.store.Invalidate(ctx, groupID)
}

// InvalidateScope drops one cached scope for the group
func (s *SnapshotStore) InvalidateScope(ctx context.Context, groupID, scope string) {
	s.store.InvalidateVariant(ctx, groupID, scope)
}
