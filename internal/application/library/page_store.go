package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

// Region is the cache region rendered library pages live in
const Region = "library"

// SortDirection orders a sort field ascending or descending
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField is one field of a page's sort order
type SortField struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// Item is one recipe in a rendered page
type Item struct {
	RecipeID    uuid.UUID `json:"recipe_id"`
	Title       string    `json:"title"`
	Calories    int       `json:"calories"`
	FavoritedAt time.Time `json:"favorited_at"`
}

// Page is a rendered slice of a user's recipe library
type Page struct {
	UserID      uuid.UUID `json:"user_id"`
	Page        int       `json:"page"`
	Size        int       `json:"size"`
	TotalItems  int       `json:"total_items"`
	Items       []Item    `json:"items"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CanonicalSort serializes a sort order into a stable string. Fields are
// sorted by name before joining, so the same set of sort fields always
// produces the same cache key no matter what order the request listed
// them in.
func CanonicalSort(fields []SortField) string {
	if len(fields) == 0 {
		return "default"
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Field + ":" + string(f.Direction)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// PageKey builds the variant key for one (page, size, sort) combination
func PageKey(page, size int, fields []SortField) string {
	return fmt.Sprintf("p%d:s%d:%s", page, size, CanonicalSort(fields))
}

// PageStore caches rendered library pages per user. Pagination and sorting
// produce an open-ended set of variants per user, which is exactly what
// the owner index exists for: favoriting or removing a recipe invalidates
// all of them in one call.
type PageStore struct {
	store *cache.TypedStore[Page]
}

// NewPageStore creates a page store with the given default TTL
func NewPageStore(indexed *cache.IndexedCache, ttl time.Duration) *PageStore {
	return &PageStore{
		store: cache.NewTypedStore[Page](indexed, Region, ttl),
	}
}

// Get returns the cached page for the user and view parameters, or nil
func (s *PageStore) Get(ctx context.Context, userID uuid.UUID, page, size int, fields []SortField) *Page {
	return s.store.Get(ctx, userID.String(), PageKey(page, size, fields))
}

// Put caches a freshly rendered page under the user's namespace
func (s *PageStore) Put(ctx context.Context, p Page, fields []SortField) error {
	return s.store.Put(ctx, p.UserID.String(), PageKey(p.Page, p.Size, fields), p)
}

// Invalidate drops every cached page for the user, regardless of which
// page/size/sort combinations have been rendered
func (s *PageStore) Invalidate(ctx context.Context, userID uuid.UUID) {
	s.store.Invalidate(ctx, userID.String())
}
