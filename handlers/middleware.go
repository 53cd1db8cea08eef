package handlers

import (
	"net/http"
	"strconv"

	"raffled/service"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// RequireActor parses the authenticated caller from the X-User-ID and
// X-User-Role headers set by the upstream auth proxy. Requests without a
// valid user ID are rejected.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader("X-User-ID")
		if rawID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
			return
		}

		c.Set(actorKey, service.Actor{
			UserID: userID,
			Role:   c.GetHeader("X-User-Role"),
		})
		c.Next()
	}
}

func getActor(c *gin.Context) service.Actor {
	return c.MustGet(actorKey).(service.Actor)
}
