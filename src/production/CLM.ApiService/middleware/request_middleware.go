package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	logger "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Logger"
)

const (
	// RequestIDHeader is read from and echoed to clients
	RequestIDHeader = "X-Request-ID"

	// Gin context keys
	RequestIDKey     = "request_id"
	RequestLoggerKey = "request_logger"
)

// RequestLogger tags every request with an id and writes one access log line
// per request once it completes
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		reqLog := log.WithRequestID(requestID)

		c.Set(RequestIDKey, requestID)
		c.Set(RequestLoggerKey, reqLog)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := reqLog.Logger.Info()
		if status >= 500 {
			event = reqLog.Logger.Error()
		} else if status >= 400 {
			event = reqLog.Logger.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// GetLoggerFromGinContext returns the request-scoped logger, or fallback
// when the request did not pass through RequestLogger
func GetLoggerFromGinContext(c *gin.Context, fallback *logger.Logger) *logger.Logger {
	if v, ok := c.Get(RequestLoggerKey); ok {
		if l, ok := v.(*logger.Logger); ok {
			return l
		}
	}
	return fallback
}
