package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/domain/auth"
	"github.com/fieldcare/fieldcare-backend/internal/http/response"
	"github.com/fieldcare/fieldcare-backend/internal/platform/ctxutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
	"github.com/fieldcare/fieldcare-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), authService: authService}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}
		c.Request = c.Request.WithContext(ctx)
		if _, ok := ctxutil.IdentityFrom(ctx); !ok {
			response.AbortError(c, http.StatusForbidden, "forbidden", "forbidden")
			return
		}
		c.Next()
	}
}

// RequireCapability rejects callers that hold none of caps.
func RequireCapability(caps ...auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := ctxutil.IdentityFrom(c.Request.Context())
		if ok {
			for _, cp := range caps {
				if id.Has(cp) {
					c.Next()
					return
				}
			}
		}
		response.AbortError(c, http.StatusForbidden, "forbidden", "profile required: "+joinCaps(caps))
	}
}

func joinCaps(caps []auth.Capability) string {
	parts := make([]string, 0, len(caps))
	for _, cp := range caps {
		parts = append(parts, string(cp))
	}
	return strings.Join(parts, " or ")
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
