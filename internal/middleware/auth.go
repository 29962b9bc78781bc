package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vidscreen/internal/config"
	"vidscreen/internal/security"
)

const identityKey = "identity"

// Auth performs the capability check: it exchanges a bearer token for an
// Identity on the request context. No account lookup happens here.
func Auth(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		c.Set(identityKey, claims.Identity())

		c.Next()
	}
}
