package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TokenHeader carries the shared API secret.
const TokenHeader = "X-Triage-Token"

// Auth rejects requests that do not present the expected token.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(TokenHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
			return
		}
		c.Next()
	}
}
