package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"jobqueue-service/internal/infrastructure/logger"
)

// Logging returns a middleware that logs HTTP requests
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", latency,
			"ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		}

		if raw != "" {
			fields = append(fields, "query", raw)
		}

		if statusCode >= 500 {
			log.Error("HTTP request", fields...)
		} else if statusCode >= 400 {
			log.Warn("HTTP request", fields...)
		} else {
			log.Info("HTTP request", fields...)
		}
	}
}
