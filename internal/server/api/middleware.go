package api

import (
	"time"

	"github.com/gin-gonic/gin"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
)

// ginLoggerMiddleware logs one line per request, at a level chosen by status.
func ginLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		status := c.Writer.Status()

		logFunc := appLogger.Info
		if status >= 400 && status < 500 {
			logFunc = appLogger.Warn
		} else if status >= 500 {
			logFunc = appLogger.Error
		}

		logFunc("GIN | %3d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			c.Request.URL.Path,
		)
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			appLogger.Error("GIN ERRORS | %s", errs)
		}
	}
}
