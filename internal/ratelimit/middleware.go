package ratelimit

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ZanzyTHEbar/campus-pulse/internal/errors"
	"github.com/gin-gonic/gin"
)

func setHeaders(c *gin.Context, prefix string, result *Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(result.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(result.Remaining))
	c.Header(prefix+"-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func retryAfterSeconds(result *Result) string {
	secs := int(result.RetryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// IPRateLimitMiddleware applies the global per-IP budget
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit", result)
		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint("ip")
			}
			retry := retryAfterSeconds(result)
			c.Header("Retry-After", retry)
			errors.Respond(c, errors.NewRateLimitError(retry))
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware limits one route per authenticated user, or per IP
// when no user is on the context. Place it after the auth middleware.
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if uid := c.GetInt64("user_id"); uid > 0 {
			subject = fmt.Sprintf("user:%d", uid)
		}
		key := fmt.Sprintf("ratelimit:endpoint:%s:%s", endpoint, subject)

		result, err := rl.Allow(c.Request.Context(), key, PerMinute(limit))
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "subject", subject, "error", err)
			c.Next()
			return
		}

		setHeaders(c, "X-RateLimit-Endpoint", result)
		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpoint(endpoint)
			}
			retry := retryAfterSeconds(result)
			c.Header("Retry-After", retry)
			errors.Respond(c, errors.NewRateLimitError(retry))
			return
		}

		c.Next()
	}
}
