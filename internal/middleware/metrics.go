package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutorcrm-api/internal/service"
)

// Metrics records request latency and counts against the route template, so
// /teachers/:id/availability/slots is one series regardless of the teacher. Unmatched
// routes are grouped under "unmatched" to keep label cardinality bounded.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
