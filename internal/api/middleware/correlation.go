package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationIDHeader carries the request id in both directions
const CorrelationIDHeader = "X-Correlation-ID"

// maxCorrelationIDLen bounds ids accepted from clients; longer ones are replaced.
const maxCorrelationIDLen = 128

const correlationIDKey = "correlation_id"

type correlationCtxKey struct{}

// CorrelationID reuses the caller's X-Correlation-ID or mints a UUID, echoes
// it on the response and stores it on both the gin and request contexts.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" || len(id) > maxCorrelationIDLen {
			id = uuid.NewString()
		}

		c.Header(CorrelationIDHeader, id)
		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))
		c.Next()
	}
}

func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}

// CorrelationIDFromContext returns the id stored on a request context
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}
