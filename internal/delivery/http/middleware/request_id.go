package middleware

import (
	"context"
	"regexp"

	"portfolio-backend/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// RequestID tags each request with an id, reusing a well-formed incoming one,
// and resolves the client key once. Both are stored in the gin context and in
// the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		client := ClientKey(c)

		c.Set(string(domain.KeyRequestID), id)
		c.Set(string(domain.KeyClientKey), client)
		c.Header(RequestIDHeader, id)

		ctx := context.WithValue(c.Request.Context(), domain.KeyRequestID, id)
		ctx = context.WithValue(ctx, domain.KeyClientKey, client)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
