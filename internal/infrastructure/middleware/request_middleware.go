package middleware

import (
	"time"

	"manualcall/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// HTTPRecorder receives one observation per finished request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestMiddleware assigns a request id, logs the request and records it.
// recorder may be nil.
func RequestMiddleware(cl *logger.ContextLogger, recorder HTTPRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		cl.LogRequest(c.Request.Context(), c.Request.Method, route, status, elapsed.Milliseconds())
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, route, status, elapsed)
		}
	}
}
