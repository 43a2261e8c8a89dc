// File: internal/middleware/metrics.go
package middleware

import (
	"time"

	"ordena_backend/internal/platform/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency by route template, so
// /products/:id is one series rather than one per product.
func Metrics(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
