package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduvoyage/admin-gateway/internal/metrics"
)

// Metrics returns middleware that captures request metrics using the provided collector.
func Metrics(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		if collector == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		collector.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
