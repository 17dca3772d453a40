package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nutrifit/backend/internal/interfaces/http/dto"
)

const (
	// UserIDKey is the gin context key holding the authenticated user ID
	UserIDKey = "auth_user_id"

	// DevUserIDHeader lets development clients pass an identity without a
	// token. Honored only when AllowDevHeader is set.
	DevUserIDHeader = "X-User-ID"
)

// IdentityClaims are the JWT claims the backend issues
type IdentityClaims struct {
	jwt.RegisteredClaims
}

// IdentityConfig configures the identity middleware
type IdentityConfig struct {
	Secret         string
	Issuer         string
	AllowDevHeader bool
}

// Identity parses the Bearer token and puts the user ID into the gin
// context. Requests without a valid identity are rejected with 401.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolveIdentity(c, cfg)
		if err != nil {
			requestID := c.GetString(RequestIDHeader)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, err.Error(), requestID,
			))
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

func resolveIdentity(c *gin.Context, cfg IdentityConfig) (uuid.UUID, error) {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		if cfg.AllowDevHeader {
			if dev := c.GetHeader(DevUserIDHeader); dev != "" {
				id, err := uuid.Parse(dev)
				if err != nil {
					return uuid.Nil, errors.New("invalid user ID header")
				}
				return id, nil
			}
		}
		return uuid.Nil, errors.New("missing authorization header")
	}

	tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return uuid.Nil, errors.New("authorization header must use Bearer scheme")
	}

	claims := &IdentityClaims{}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return uuid.Nil, errors.New("invalid or expired token")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.New("token subject is not a user ID")
	}
	return id, nil
}

// GetUserID retrieves the authenticated user ID from gin.Context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
