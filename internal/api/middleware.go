package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// RequireUser rejects requests without an X-User-ID header. Identity is
// asserted by the upstream gateway; this service only scopes data by it.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-User-ID")
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing X-User-ID header",
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func logFeedback(userID string, req feedbackRequest) {
	slog.Info("recommendation feedback",
		"user_id", userID,
		"recommendation_id", req.RecommendationID,
		"action", req.Action,
		"target_type", req.TargetType,
		"target_id", req.TargetID,
	)
}
