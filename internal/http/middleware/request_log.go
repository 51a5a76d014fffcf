package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldcare/fieldcare-backend/internal/platform/ctxutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

// RequestLogger writes one line per request. Probe routes log at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
		}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil && rd.UserID != 0 {
			fields = append(fields, "user_id", rd.UserID)
			if rd.Identity != nil {
				fields = append(fields, "capabilities", rd.Identity.Capabilities())
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case unmeteredRoutes[c.FullPath()]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
