package middleware

import (
	"net/http"
	"strconv"
	"time"

	"portfolio-backend/internal/delivery/http/response"
	"portfolio-backend/internal/domain"
	"portfolio-backend/pkg/logger"
	"portfolio-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds configuration for the API-wide limiter
type RateLimitConfig struct {
	Limiter domain.RateLimiter
	// Custom key extractor (default: ClientKey)
	KeyFunc     func(*gin.Context) string
	SecurityLog *security.SecurityLogger
}

// SetRateLimitHeaders writes the X-RateLimit-* headers for decision.
func SetRateLimitHeaders(c *gin.Context, d domain.RateDecision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	c.Header("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
}

// SetRetryAfter writes Retry-After in whole seconds, at least 1.
func SetRetryAfter(c *gin.Context, resetAt time.Time) {
	retryAfter := int(time.Until(resetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
}

// RateLimitMiddleware rejects callers over the configured quota with 429
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientKey
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		decision, err := config.Limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail open: the contact flow keeps its own limiter
			logger.Log.Warn("global rate limiter failed", "error", err)
			c.Next()
			return
		}

		SetRateLimitHeaders(c, decision)

		if !decision.Allowed {
			SetRetryAfter(c, decision.ResetAt)
			config.SecurityLog.Log(c.Request.Context(), security.SecurityEvent{
				Event:     security.EventGlobalLimitExceeded,
				IP:        key,
				UserAgent: c.GetHeader("User-Agent"),
				RequestID: c.GetString("RequestID"),
				Details:   map[string]interface{}{"endpoint": c.FullPath()},
			})
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
