package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// abortWithError writes the handler package's error envelope. Middleware runs
// before any handler, so it cannot import those helpers.
func abortWithError(c *gin.Context, status int, code string, category shared.ErrorCategory, message string) {
	body := gin.H{
		"error": gin.H{
			"code":     code,
			"category": category,
			"message":  message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		body["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, body)
}
