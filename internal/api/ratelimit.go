package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware applies a global token bucket. Burst above rps absorbs
// the page-load pattern of the web client, which fires several report
// requests at once.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	if burst < rps {
		burst = rps
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
