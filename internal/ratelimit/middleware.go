package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// IPRateLimitMiddleware enforces the per-minute IP request limit.
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		result, err := rl.AllowIP(ctx, ip)
		if err != nil {
			// A limiter failure must not take the API down with it.
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}

			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for IP",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ImportRateLimitMiddleware enforces the per-hour CSV import limit per
// agency. It runs after auth, which puts agency_id on the context.
func (rl *RateLimiter) ImportRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		agencyID, exists := c.Get("agency_id")
		if !exists {
			c.Next()
			return
		}

		agencyIDStr, ok := agencyID.(string)
		if !ok {
			slog.Warn("Invalid agency ID type in context")
			c.Next()
			return
		}

		result, err := rl.AllowImport(c.Request.Context(), agencyIDStr)
		if err != nil {
			slog.Error("Import rate limit check failed", "agency_id", agencyIDStr, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Import-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Import-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitImportBlock()
			}

			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "import limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the limit of %d imports per hour", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
