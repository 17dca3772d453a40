package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nutrifit/backend/internal/infrastructure/cache"
)

// SystemHandler exposes liveness and readiness endpoints
type SystemHandler struct {
	BaseHandler
	version   string
	cache     *cache.IndexedCache
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(version string, indexed *cache.IndexedCache) *SystemHandler {
	return &SystemHandler{
		version:   version,
		cache:     indexed,
		startedAt: time.Now(),
	}
}

// RegisterRoot registers unversioned system routes directly on the engine
func (h *SystemHandler) RegisterRoot(engine *gin.Engine) {
	engine.GET("/health", h.Health)
}

// Health reports liveness and whether the distributed cache backend is up
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"cache_backend":  h.cache.HasBackend(),
	})
}
