package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

type rankedSnapshot struct {
	GroupID string `json:"group_id"`
	Points  int64  `json:"points"`
}

func newRedisIndexedCache(t *testing.T) (*cache.IndexedCache, *cache.FallbackStore, *TestRedis) {
	t.Helper()
	tr := NewTestRedis(t)

	backend := cache.NewRedisBackendWithClient(tr.Client)
	fallback := cache.NewFallbackStore()
	t.Cleanup(func() { _ = fallback.Close() })

	indexed := cache.NewIndexedCache(
		cache.NewEntryStore(backend, fallback),
		cache.NewNamespaceIndex(backend, fallback, zap.NewNop()),
	)
	return indexed, fallback, tr
}

func TestRedisCache_PutWritesBothBackends(t *testing.T) {
	indexed, fallback, tr := newRedisIndexedCache(t)
	ctx := context.Background()

	want := rankedSnapshot{GroupID: "g1", Points: 42}
	require.NoError(t, indexed.Put(ctx, "leaderboard", "g1", "g1:weekly", want, time.Minute))

	// entry visible through the facade
	var got rankedSnapshot
	require.True(t, indexed.Get(ctx, "leaderboard", "g1:weekly", &got))
	assert.Equal(t, want, got)

	// and physically present in Redis under the region-prefixed key
	exists, err := tr.Client.Exists(ctx, "cache:leaderboard:g1:weekly").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	// dual write keeps the in-process fallback warm too
	_, ok := fallback.Get("cache:leaderboard:g1:weekly")
	assert.True(t, ok)
}

func TestRedisCache_SurvivesBackendLoss(t *testing.T) {
	indexed, _, tr := newRedisIndexedCache(t)
	ctx := context.Background()

	want := rankedSnapshot{GroupID: "g1", Points: 42}
	require.NoError(t, indexed.Put(ctx, "leaderboard", "g1", "g1:weekly", want, time.Minute))

	// drop the Redis copy; the fallback copy must still serve reads
	require.NoError(t, tr.Client.FlushAll(ctx).Err())

	var got rankedSnapshot
	require.True(t, indexed.Get(ctx, "leaderboard", "g1:weekly", &got))
	assert.Equal(t, want, got)
}

func TestRedisCache_NamespaceInvalidationAcrossBackends(t *testing.T) {
	indexed, _, tr := newRedisIndexedCache(t)
	ctx := context.Background()

	keys := []string{"g1:weekly", "g1:monthly", "g1:all_time"}
	for _, k := range keys {
		require.NoError(t, indexed.Put(ctx, "leaderboard", "g1", k, rankedSnapshot{GroupID: "g1"}, time.Minute))
	}
	require.NoError(t, indexed.Put(ctx, "leaderboard", "g2", "g2:weekly", rankedSnapshot{GroupID: "g2"}, time.Minute))

	indexed.InvalidateNamespace(ctx, "leaderboard", "g1")

	var got rankedSnapshot
	for _, k := range keys {
		assert.False(t, indexed.Get(ctx, "leaderboard", k, &got), "key %s should be gone", k)
	}
	assert.True(t, indexed.Get(ctx, "leaderboard", "g2:weekly", &got))

	// index set drained in Redis as well
	card, err := tr.Client.SCard(ctx, "cacheidx:leaderboard:g1").Result()
	require.NoError(t, err)
	assert.Zero(t, card)
}

func TestRedisCache_EntriesExpireButIndexSetsDoNot(t *testing.T) {
	indexed, _, tr := newRedisIndexedCache(t)
	ctx := context.Background()

	require.NoError(t, indexed.Put(ctx, "library", "u1", "u1:p1", rankedSnapshot{}, time.Minute))

	entryTTL, err := tr.Client.TTL(ctx, "cache:library:u1:p1").Result()
	require.NoError(t, err)
	assert.Greater(t, entryTTL, time.Duration(0))

	// index sets carry no TTL; stale members are pruned on invalidation
	idxTTL, err := tr.Client.TTL(ctx, "cacheidx:library:u1").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), idxTTL)
}
