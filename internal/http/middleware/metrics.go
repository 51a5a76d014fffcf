package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/observability"
)

// unmeteredRoutes are probe endpoints kept out of the API series.
var unmeteredRoutes = map[string]bool{
	"/healthcheck": true,
	"/metrics":     true,
}

// Metrics records request counts and latency per matched route.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if unmeteredRoutes[c.FullPath()] {
			c.Next()
			return
		}
		start := time.Now()
		m.IncInflight()
		defer m.DecInflight()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPIRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
