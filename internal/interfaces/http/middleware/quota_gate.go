package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appquota "github.com/nutrifit/backend/internal/application/quota"
	domain "github.com/nutrifit/backend/internal/domain/quota"
	"github.com/nutrifit/backend/internal/interfaces/http/dto"
)

// TimezoneHeader carries the client's IANA timezone, used to anchor quota
// periods to the user's local day or week
const TimezoneHeader = "X-Timezone"

// QuotaGate consumes one unit of the given quota type before the handler
// runs. When the allowance is exhausted the request is rejected with 429
// and the handler never executes. Requires the Identity middleware.
func QuotaGate(service *appquota.Service, typeKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			requestID := c.GetString(RequestIDHeader)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", requestID,
			))
			return
		}

		_, err := service.Consume(c.Request.Context(), userID, typeKey, 1, c.GetHeader(TimezoneHeader))
		if err != nil {
			requestID := c.GetString(RequestIDHeader)

			var exceeded *domain.QuotaExceededError
			if errors.As(err, &exceeded) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithDetails(
					dto.ErrCodeQuotaExceeded,
					"Usage allowance for this feature is exhausted",
					requestID,
					dto.NewQuotaExceededDetails(exceeded.Usage),
				))
				return
			}

			var unavailable *domain.BackendUnavailableError
			if errors.As(err, &unavailable) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeBackendUnavailable, "Quota tracking is temporarily unavailable", requestID,
				))
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal, "Failed to check usage allowance", requestID,
			))
			return
		}

		c.Next()
	}
}
