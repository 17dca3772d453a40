package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	libraryapp "github.com/nutrifit/backend/internal/application/library"
	"github.com/nutrifit/backend/internal/infrastructure/cache"
	"github.com/nutrifit/backend/internal/interfaces/http/middleware"
	"github.com/nutrifit/backend/internal/interfaces/http/router"
)

func newLibraryTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fallback := cache.NewFallbackStore()
	t.Cleanup(func() { _ = fallback.Close() })
	indexed := cache.NewIndexedCache(
		cache.NewEntryStore(nil, fallback),
		cache.NewNamespaceIndex(nil, fallback, zap.NewNop()),
	)
	store := libraryapp.NewPageStore(indexed, 10*time.Minute)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Identity(middleware.IdentityConfig{AllowDevHeader: true}))
	router.NewRouter(engine).
		Register(NewLibraryHandler(store, nil)).
		Setup()
	return engine
}

func libraryRequest(engine *gin.Engine, method, path string, userID uuid.UUID, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		raw  string
		want []libraryapp.SortField
	}{
		{"", nil},
		{"name:asc", []libraryapp.SortField{{Field: "name", Direction: libraryapp.SortAsc}}},
		{"name", []libraryapp.SortField{{Field: "name", Direction: libraryapp.SortAsc}}},
		{"calories:desc,name:asc", []libraryapp.SortField{
			{Field: "calories", Direction: libraryapp.SortDesc},
			{Field: "name", Direction: libraryapp.SortAsc},
		}},
		// unknown directions fall back to ascending
		{"name:sideways", []libraryapp.SortField{{Field: "name", Direction: libraryapp.SortAsc}}},
		{",,", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseSort(tt.raw), "raw=%q", tt.raw)
	}
}

func TestLibraryHandler_PutGetRoundTrip(t *testing.T) {
	engine := newLibraryTestRouter(t)
	userID := uuid.New()

	page := gin.H{"page": 1, "size": 20, "total_items": 1, "items": []gin.H{
		{"recipe_id": uuid.NewString(), "title": "Lentil Soup", "calories": 320},
	}}
	w := libraryRequest(engine, http.MethodPut, "/api/v1/library/pages?sort=calories:desc", userID, page)
	require.Equal(t, http.StatusOK, w.Code)

	w = libraryRequest(engine, http.MethodGet, "/api/v1/library/pages?page=1&size=20&sort=calories:desc", userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Lentil Soup")

	// another user never sees it
	w = libraryRequest(engine, http.MethodGet, "/api/v1/library/pages?page=1&size=20&sort=calories:desc", uuid.New(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLibraryHandler_InvalidateDropsAllViews(t *testing.T) {
	engine := newLibraryTestRouter(t)
	userID := uuid.New()

	for _, q := range []string{"?sort=calories:desc", "?sort=name:asc", ""} {
		w := libraryRequest(engine, http.MethodPut, "/api/v1/library/pages"+q, userID, gin.H{"page": 1, "size": 20})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := libraryRequest(engine, http.MethodDelete, "/api/v1/library/pages", userID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	for _, q := range []string{"?sort=calories:desc", "?sort=name:asc", ""} {
		w := libraryRequest(engine, http.MethodGet, "/api/v1/library/pages"+q, userID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}
