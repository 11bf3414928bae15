package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/izerwaren/b2bportal/internal/domain"
	"github.com/izerwaren/b2bportal/internal/repository"
	"github.com/izerwaren/b2bportal/pkg/errors"
)

const principalKey = "principal"

// AuthMiddleware resolves the Bearer API key to an active principal
func AuthMiddleware(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := bearerToken(c.GetHeader("Authorization"))
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		principal, err := repos.Principal.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if _, ok := err.(*errors.ErrUnauthorized); ok || errors.IsNotFound(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
				return
			}
			logger.Error("Failed to authenticate request", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !principal.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key is disabled"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireRole rejects principals whose role is not listed
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipalFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "this endpoint is not available to " + string(principal.Role) + " keys"})
	}
}

// GetPrincipalFromContext returns the principal set by AuthMiddleware
func GetPrincipalFromContext(c *gin.Context) (*domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	principal, ok := v.(*domain.Principal)
	return principal, ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
