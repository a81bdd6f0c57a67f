package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records HTTP request metrics
type RequestObserver interface {
	RequestStarted()
	RequestFinished(method, route string, status int, duration time.Duration)
}

// Metrics labels requests by their route template so ids do not blow up cardinality.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		observer.RequestStarted()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observer.RequestFinished(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
