package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware assigns each request an id, honoring one supplied
// by the caller, and echoes it on the response.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

// loggingMiddleware logs one line per request with method, path,
// status and duration.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			s.logger.Error("request completed", attrs...)
		case status >= 400:
			s.logger.Warn("request completed", attrs...)
		default:
			s.logger.Info("request completed", attrs...)
		}
	}
}

// metricsMiddleware records request counts, durations and in-flight
// gauges. The route template is used as the path label to keep
// cardinality bounded.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		s.metrics.HTTPRequestsInFlight.WithLabelValues(method, path).Inc()
		timer := time.Now()

		c.Next()

		duration := time.Since(timer).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())

		s.metrics.HTTPRequestsInFlight.WithLabelValues(method, path).Dec()
		s.metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
		s.metrics.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}
