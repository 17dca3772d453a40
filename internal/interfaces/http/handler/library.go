package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	libraryapp "github.com/nutrifit/backend/internal/application/library"
)

// LibraryHandler exposes the rendered recipe-library page cache for the
// authenticated user
type LibraryHandler struct {
	BaseHandler
	store  *libraryapp.PageStore
	logger *zap.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(store *libraryapp.PageStore, logger *zap.Logger) *LibraryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibraryHandler{store: store, logger: logger}
}

// RegisterRoutes registers library routes on the API group
func (h *LibraryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/library/pages")
	{
		group.GET("", h.Get)
		group.PUT("", h.Put)
		group.DELETE("", h.Invalidate)
	}
}

// parseSort parses "field:dir,field:dir" query syntax. An omitted or bare
// direction defaults to ascending.
func parseSort(raw string) []libraryapp.SortField {
	if raw == "" {
		return nil
	}
	var fields []libraryapp.SortField
	for _, part := range strings.Split(raw, ",") {
		name, dir, _ := strings.Cut(part, ":")
		if name == "" {
			continue
		}
		direction := libraryapp.SortAsc
		if dir == string(libraryapp.SortDesc) {
			direction = libraryapp.SortDesc
		}
		fields = append(fields, libraryapp.SortField{Field: name, Direction: direction})
	}
	return fields
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}

// Get returns the cached page matching the view parameters, or 404 when
// the renderer has not stored one yet
// GET /api/v1/library/pages?page=&size=&sort=
func (h *LibraryHandler) Get(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	page, size := pageParams(c)
	cached := h.store.Get(c.Request.Context(), userID, page, size, parseSort(c.Query("sort")))
	if cached == nil {
		h.NotFound(c, "No rendered page cached for this view")
		return
	}
	h.Success(c, cached)
}

// Put stores a freshly rendered page for the caller
// PUT /api/v1/library/pages?sort=
func (h *LibraryHandler) Put(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var page libraryapp.Page
	if err := c.ShouldBindJSON(&page); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	page.UserID = userID

	if err := h.store.Put(c.Request.Context(), page, parseSort(c.Query("sort"))); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}

// Invalidate drops every cached page for the caller, typically after a
// favorite or removal changed the library
// DELETE /api/v1/library/pages
func (h *LibraryHandler) Invalidate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	h.store.Invalidate(c.Request.Context(), userID)
	h.logger.Debug("library pages invalidated", zap.String("user_id", userID.String()))
	h.NoContent(c)
}
