package middleware

import (
	"strings"

	"portfolio-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware adds CORS headers for the site's frontend origins.
// localhost origins are accepted only outside production.
// Requests from other origins get no CORS headers and the browser blocks them;
// their preflights are answered 403 and logged.
func CORSMiddleware(allowedOrigins []string, isProduction bool, securityLog *security.SecurityLogger) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		isAllowed := origin == "" || allowed[origin]
		if !isAllowed && !isProduction && isLocalOrigin(origin) {
			isAllowed = true
		}

		if isAllowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Origin, X-Request-ID, X-Requested-With")
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, Retry-After, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
			c.Header("Access-Control-Max-Age", "86400") // 24 hours
		}

		// Vary header to ensure caches differentiate by Origin
		c.Header("Vary", "Origin")

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			if isAllowed {
				c.AbortWithStatus(204)
			} else {
				securityLog.Log(c.Request.Context(), security.SecurityEvent{
					Event:     security.EventOriginRejected,
					IP:        ClientKey(c),
					UserAgent: c.GetHeader("User-Agent"),
					Details:   map[string]interface{}{"origin": origin, "path": c.Request.URL.Path},
				})
				c.AbortWithStatus(403)
			}
			return
		}

		c.Next()
	}
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}
