package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appquota "github.com/nutrifit/backend/internal/application/quota"
	"github.com/nutrifit/backend/internal/interfaces/http/dto"
)

// QuotaHandler exposes the quota tracker over HTTP
type QuotaHandler struct {
	BaseHandler
	service *appquota.Service
	logger  *zap.Logger
}

// NewQuotaHandler creates a new quota handler
func NewQuotaHandler(service *appquota.Service, logger *zap.Logger) *QuotaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaHandler{service: service, logger: logger}
}

// RegisterRoutes registers quota routes on the API group
func (h *QuotaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotas := rg.Group("/quotas")
	{
		quotas.GET("", h.ListUsages)
		quotas.GET("/:type", h.GetUsage)
		quotas.POST("/:type/consume", h.Consume)
		quotas.DELETE("/:type", h.Reset)
	}
}

// ListUsages returns the usage snapshot for every registered quota type
// GET /api/v1/quotas
func (h *QuotaHandler) ListUsages(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	usages, err := h.service.CheckAll(c.Request.Context(), userID, getTimezone(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := make([]dto.QuotaUsageResponse, len(usages))
	for i, u := range usages {
		resp[i] = dto.NewQuotaUsageResponse(u)
	}
	h.Success(c, resp)
}

// GetUsage returns the usage snapshot for one quota type
// GET /api/v1/quotas/:type
func (h *QuotaHandler) GetUsage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	usage, err := h.service.Check(c.Request.Context(), userID, c.Param("type"), getTimezone(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewQuotaUsageResponse(usage))
}

// Consume records usage against a quota type and returns the updated
// snapshot, or a 429 envelope when the allowance is exhausted
// POST /api/v1/quotas/:type/consume
func (h *QuotaHandler) Consume(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	req := dto.ConsumeQuotaRequest{Amount: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	usage, err := h.service.Consume(c.Request.Context(), userID, c.Param("type"), req.Amount, getTimezone(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Debug("quota consumed",
		zap.String("user_id", userID.String()),
		zap.String("type", c.Param("type")),
		zap.Int64("used", usage.Used))
	h.Success(c, dto.NewQuotaUsageResponse(usage))
}

// Reset clears the current-period counter for one quota type
// DELETE /api/v1/quotas/:type
func (h *QuotaHandler) Reset(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	if err := h.service.Reset(c.Request.Context(), userID, c.Param("type"), getTimezone(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
