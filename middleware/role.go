package middleware

import (
	"net/http"

	"medvisit/services/profile"

	"github.com/gin-gonic/gin"
)

// RequirePractitioner guards the schedule-management endpoints; only the
// practitioner role may manage windows, blackouts and settings.
func RequirePractitioner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxActorRole) != profile.RolePractitioner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "practitioner role required"})
			return
		}
		c.Next()
	}
}
