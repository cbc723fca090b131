package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/cache"
)

// RateLimitMiddleware limits requests per authenticated subject, or per client IP without auth.
func RateLimitMiddleware(limiter *cache.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(SubjectKey)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		if !limiter.Allow(c.Request.Context(), subject) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}
