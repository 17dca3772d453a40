package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
	"github.com/nutrifit/backend/internal/interfaces/http/dto"
)

// CacheHandler exposes cache administration endpoints
type CacheHandler struct {
	BaseHandler
	cache  *cache.IndexedCache
	logger *zap.Logger
}

// NewCacheHandler creates a new cache admin handler
func NewCacheHandler(indexed *cache.IndexedCache, logger *zap.Logger) *CacheHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheHandler{cache: indexed, logger: logger}
}

// RegisterRoutes registers cache admin routes on the API group
func (h *CacheHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/cache")
	{
		group.POST("/invalidate", h.Invalidate)
		group.GET("/stats", h.Stats)
	}
}

// Invalidate drops every cached entry registered under an owner within a
// region
// POST /api/v1/cache/invalidate
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req dto.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	h.cache.InvalidateNamespace(c.Request.Context(), req.Region, req.Owner)
	h.logger.Info("cache namespace invalidated",
		zap.String("region", req.Region),
		zap.String("owner", req.Owner))
	h.NoContent(c)
}

// Stats returns hit/miss counters for the entry store
// GET /api/v1/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	h.Success(c, h.cache.GetStats())
}
