package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/statline/statline-engine/internal/core/services"
)

// ContextUserIDKey is where the middleware stores the authenticated user's
// ID for downstream handlers.
const ContextUserIDKey = "userID"

const bearerPrefix = "Bearer "

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// AuthMiddleware rejects requests without a valid bearer token and stashes
// the token's subject under ContextUserIDKey.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, "authorization header required")
			return
		}

		tokenString, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || strings.TrimSpace(tokenString) == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		userID, err := tokenService.ValidateToken(strings.TrimSpace(tokenString))
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// GetUserID reads the authenticated user's ID set by AuthMiddleware.
func GetUserID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", false
	}
	idStr, ok := id.(string)
	return idStr, ok
}
