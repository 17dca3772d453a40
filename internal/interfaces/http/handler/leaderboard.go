package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	leaderboardapp "github.com/nutrifit/backend/internal/application/leaderboard"
)

// LeaderboardHandler exposes the leaderboard snapshot cache. Ranking
// workers store rendered snapshots here; score events invalidate every
// rendered scope of a group at once.
type LeaderboardHandler struct {
	BaseHandler
	store  *leaderboardapp.SnapshotStore
	logger *zap.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(store *leaderboardapp.SnapshotStore, logger *zap.Logger) *LeaderboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardHandler{store: store, logger: logger}
}

// RegisterRoutes registers leaderboard routes on the API group
func (h *LeaderboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/leaderboards")
	{
		group.GET("/:group/:scope", h.Get)
		group.PUT("/:group/:scope", h.Put)
		group.DELETE("/:group", h.Invalidate)
	}
}

// Get returns the cached snapshot for a group and scope
// GET /api/v1/leaderboards/:group/:scope
func (h *LeaderboardHandler) Get(c *gin.Context) {
	snapshot := h.store.Get(c.Request.Context(), c.Param("group"), c.Param("scope"))
	if snapshot == nil {
		h.NotFound(c, "No snapshot cached for this group and scope")
		return
	}
	h.Success(c, snapshot)
}

// Put stores a freshly ranked snapshot
// PUT /api/v1/leaderboards/:group/:scope
func (h *LeaderboardHandler) Put(c *gin.Context) {
	var snapshot leaderboardapp.Snapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	snapshot.GroupID = c.Param("group")
	snapshot.Scope = c.Param("scope")
	if snapshot.GeneratedAt.IsZero() {
		snapshot.GeneratedAt = time.Now()
	}

	if err := h.store.Put(c.Request.Context(), snapshot); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snapshot)
}

// Invalidate drops every cached scope for a group, typically after a
// score event
// DELETE /api/v1/leaderboards/:group
func (h *LeaderboardHandler) Invalidate(c *gin.Context) {
	group := c.Param("group")
	h.store.Invalidate(c.Request.Context(), group)
	h.logger.Debug("leaderboard snapshots invalidated", zap.String("group", group))
	h.NoContent(c)
}
