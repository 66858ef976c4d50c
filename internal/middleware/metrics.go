package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/vetclinic-api/internal/metrics"
)

// Metrics records request counts and latency by route template, so path
// parameters do not explode the label space.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
