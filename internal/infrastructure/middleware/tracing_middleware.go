package middleware

import (
	"net/http"
	"time"

	"shopflow/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a span per dashboard API request. Unmatched
// routes fall back to the raw path so 404 noise still shows up in traces.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracing.StartSpan(c.Request.Context(), c.Request.Method+" "+route)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.String("http.client_ip", c.ClientIP()),
		)

		start := time.Now()
		c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int("http.response_bytes", c.Writer.Size()),
			attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
		)

		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.String())
		case c.Writer.Status() >= http.StatusBadRequest:
			span.SetStatus(codes.Error, http.StatusText(c.Writer.Status()))
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}
