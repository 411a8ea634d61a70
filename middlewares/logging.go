package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/utils"
)

const (
	RequestIDHeader = "X-Request-ID"
	contextTraceID  = "traceID"
)

// TraceMiddleware assigns each request a trace id (the caller's X-Request-ID
// when present) and logs the request once it completes.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(RequestIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(contextTraceID, traceID)
		c.Request = c.Request.WithContext(utils.WithTraceID(c.Request.Context(), traceID))
		c.Header(RequestIDHeader, traceID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String(utils.LogKeyTraceID, traceID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			slog.Error("request completed", attrs...)
			return
		}
		slog.Info("request completed", attrs...)
	}
}

func GetTraceID(c *gin.Context) string {
	return c.GetString(contextTraceID)
}

// MethodNotAllowed answers a known route called with the wrong verb.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
