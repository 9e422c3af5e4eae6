package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/http/response"
	"github.com/charpstar/pipeline-backend/internal/platform/ctxutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
	"github.com/charpstar/pipeline-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	roles       services.RoleResolver
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, roles services.RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), authService: authService, roles: roles}
}

// RequireAuth accepts a bearer token and attaches the actor to the request
// context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.Abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		c.Request = c.Request.WithContext(ctx)
		if ctxutil.ActorID(ctx) == uuid.Nil {
			response.Abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			return
		}
		c.Next()
	}
}

// RequireRole loads the actor's profile role and rejects anything outside
// allowed. Must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(allowed ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := am.roles.ActorRole(c.Request.Context(), ctxutil.ActorID(c.Request.Context()))
		if err != nil {
			response.RespondError(c, err)
			c.Abort()
			return
		}
		for _, r := range allowed {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "forbidden", "Forbidden")
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
