package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/retail-banking-ledger/internal/domain/shared"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}

			logger.Error("Panic recovered",
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.FullPath(),
				"correlation_id", GetCorrelationID(c),
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			abortWithError(c, http.StatusInternalServerError, string(shared.KindInternal),
				shared.CategoryInfrastructure, "An internal server error occurred")
		}()

		c.Next()
	}
}
