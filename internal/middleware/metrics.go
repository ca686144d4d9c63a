package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestObserver records request outcomes.
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// Metrics returns middleware that reports every request to observer. Unmatched
// routes are folded into one label so arbitrary paths cannot grow the series set.
func Metrics(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
