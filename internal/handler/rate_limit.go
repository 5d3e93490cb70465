package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/guild-rejoin/internal/dto"
	"github.com/prperemyshlev/guild-rejoin/internal/service"
	"go.uber.org/zap"
)

// RateLimitMiddleware creates a rate limiting middleware
func RateLimitMiddleware(rateLimiter *service.RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		err := rateLimiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			var limited *service.RateLimitError
			if errors.As(err, &limited) {
				c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))

				c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
					Error:   "Too Many Requests",
					Message: limited.Error(),
				})
				c.Abort()
				return
			}

			// Fail open when Redis is unavailable
			logger.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining, _ := rateLimiter.GetRemainingRequests(c.Request.Context(), key, limit, window)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		c.Next()
	}
}

// IPBasedKey extracts rate limit key from client IP
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// RouteAndIPKey scopes the rate limit to the route as well as the client
func RouteAndIPKey(c *gin.Context) string {
	return c.FullPath() + ":" + c.ClientIP()
}
