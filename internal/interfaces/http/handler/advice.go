package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	adviceapp "github.com/nutrifit/backend/internal/application/advice"
)

// AdviceHandler exposes signature-guarded weekly advice
type AdviceHandler struct {
	BaseHandler
	guard  *adviceapp.Guard
	gate   gin.HandlerFunc
	logger *zap.Logger
}

// NewAdviceHandler creates a new advice handler. The gate middleware runs
// before generation so only cache misses consume the advice allowance.
func NewAdviceHandler(guard *adviceapp.Guard, gate gin.HandlerFunc, logger *zap.Logger) *AdviceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdviceHandler{guard: guard, gate: gate, logger: logger}
}

// RegisterRoutes registers advice routes on the API group
func (h *AdviceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/advice")
	{
		group.POST("", h.Resolve)
		group.DELETE("", h.Invalidate)
	}
}

// adviceRequest carries the weekly metric averages advice is derived from
type adviceRequest struct {
	Metrics map[string]decimal.Decimal `json:"metrics" binding:"required"`
}

type adviceResponse struct {
	Week      string    `json:"week"`
	Advice    string    `json:"advice"`
	FromCache bool      `json:"from_cache"`
	CreatedAt time.Time `json:"created_at"`
}

// Resolve returns this week's advice for the caller, regenerating it only
// when the metric fingerprint has changed since the cached version
// POST /api/v1/advice
func (h *AdviceHandler) Resolve(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inputs := make([]adviceapp.SignatureInput, 0, len(req.Metrics))
	for name, value := range req.Metrics {
		inputs = append(inputs, adviceapp.SignatureInput{Name: name, Value: value})
	}

	week := adviceapp.WeekKey(time.Now())
	ctx := c.Request.Context()

	// Cheap path first: a matching fingerprint costs no quota
	if cached := h.guard.Lookup(ctx, userID, week); cached != nil && cached.Signature == adviceapp.Signature(inputs) {
		advice, fromCache, err := h.guard.Resolve(ctx, userID, week, inputs, adviceapp.RuleBasedGenerator(inputs))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, adviceResponse{Week: week, Advice: advice, FromCache: fromCache, CreatedAt: cached.GeneratedAt})
		return
	}

	// Stale or missing: consume quota, then generate
	if h.gate != nil {
		h.gate(c)
		if c.IsAborted() {
			return
		}
	}

	advice, fromCache, err := h.guard.Resolve(ctx, userID, week, inputs, adviceapp.RuleBasedGenerator(inputs))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, adviceResponse{Week: week, Advice: advice, FromCache: fromCache, CreatedAt: time.Now()})
}

// Invalidate drops every cached advice period for the caller, forcing the
// next request to regenerate even with an unchanged fingerprint
// DELETE /api/v1/advice
func (h *AdviceHandler) Invalidate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	h.guard.Invalidate(c.Request.Context(), userID)
	h.logger.Info("advice cache invalidated", zap.String("user_id", userID.String()))
	h.NoContent(c)
}
