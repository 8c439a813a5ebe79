package middleware

import (
	"net/http"
	"strings"

	"tasktrack/backend/internal/identity"

	"github.com/gin-gonic/gin"
)

const (
	// ContextUserID holds the caller's uuid.UUID in the gin context.
	ContextUserID = "user_id"
	// ContextClaims holds the full *identity.Claims in the gin context.
	ContextClaims = "claims"
)

// AuthRequired verifies the bearer token and stores the caller identity in
// the request context. Responses follow the envelope used by the handlers.
func AuthRequired(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Access token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := verifier.VerifyToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}
