package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageView struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func newTypedStore(t *testing.T) *TypedStore[pageView] {
	t.Helper()
	return NewTypedStore[pageView](newFallbackOnlyCache(t), "library", 10*time.Minute)
}

func TestTypedStore_PutGet(t *testing.T) {
	store := newTypedStore(t)
	ctx := context.Background()

	assert.Nil(t, store.Get(ctx, "u1", "p1:s20"))

	want := pageView{Items: []string{"oatmeal", "granola"}, Total: 2}
	require.NoError(t, store.Put(ctx, "u1", "p1:s20", want))

	got := store.Get(ctx, "u1", "p1:s20")
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestTypedStore_OwnersAreIsolated(t *testing.T) {
	store := newTypedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "p1", pageView{Total: 1}))
	assert.Nil(t, store.Get(ctx, "u2", "p1"))
}

func TestTypedStore_InvalidateOwner(t *testing.T) {
	store := newTypedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "p1", pageView{Total: 1}))
	require.NoError(t, store.Put(ctx, "u1", "p2", pageView{Total: 2}))
	require.NoError(t, store.Put(ctx, "u2", "p1", pageView{Total: 3}))

	store.Invalidate(ctx, "u1")

	assert.Nil(t, store.Get(ctx, "u1", "p1"))
	assert.Nil(t, store.Get(ctx, "u1", "p2"))
	assert.NotNil(t, store.Get(ctx, "u2", "p1"))
}

func TestTypedStore_InvalidateVariant(t *testing.T) {
	store := newTypedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", "p1", pageView{Total: 1}))
	require.NoError(t, store.Put(ctx, "u1", "p2", pageView{Total: 2}))

	store.InvalidateVariant(ctx, "u1", "p1")

	assert.Nil(t, store.Get(ctx, "u1", "p1"))
	assert.NotNil(t, store.Get(ctx, "u1", "p2"))
}

func TestTypedStore_Refresh(t *testing.T) {
	store := newTypedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Refresh(ctx, "u1", "p1", pageView{Total: 1}))

	got := store.Get(ctx, "u1", "p1")
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Total)
}
