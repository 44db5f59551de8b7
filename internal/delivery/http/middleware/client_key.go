package middleware

import (
	"net"
	"strings"

	"portfolio-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

// UnknownClient is the bucket shared by every request without a usable address.
const UnknownClient = "unknown"

// ClientKey identifies the caller for rate limiting: the first X-Forwarded-For
// entry, then X-Real-IP, then the connection's remote address. A key already
// resolved by RequestID is reused.
func ClientKey(c *gin.Context) string {
	if cached := c.GetString(string(domain.KeyClientKey)); cached != "" {
		return cached
	}
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	if c.Request != nil && c.Request.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		if host = strings.TrimSpace(host); host != "" {
			return host
		}
	}
	return UnknownClient
}
