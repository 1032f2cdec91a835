package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"semantiq/internal/utils"
)

// RequireSession verifies the bearer token minted when an edit session was
// opened and checks it matches the session named in the route.
func RequireSession(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing Authorization header"})
		return
	}

	// Expected format: "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid Authorization format"})
		return
	}

	sessionID, err := utils.VerifySessionToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}

	if param := c.Param("sessionId"); param != "" && param != sessionID.String() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Token does not match session"})
		return
	}

	c.Set("sessionId", sessionID)

	c.Next()
}
