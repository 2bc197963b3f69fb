package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"legaldoc-backend/internal/shared/telemetry"
)

const statusTransitionKey = "statusTransition"

// Logging emits a structured log per request. Handlers may set
// "statusTransition" on the context to record an analysis state change.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"bytes":       c.Writer.Size(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if id := c.Param("id"); id != "" {
			fields["document_id"] = id
		}
		if transition := c.GetString(statusTransitionKey); transition != "" {
			fields["status_transition"] = transition
		}

		telemetry.Info("request.complete", fields)
	}
}
