package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request with otelgin, skipping health
// probes, and tags it with the tenant and request IDs.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !strings.HasPrefix(r.URL.Path, "/health")
		}),
	)
}

// SpanAttributes copies tenant and request IDs onto the active span. It runs
// after Tracing and RequestID.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if tenant := c.GetHeader(TenantHeader); tenant != "" && len(tenant) <= 64 {
				span.SetAttributes(attribute.String("billing.tenant_id", tenant))
			}
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}
		}
		c.Next()
	}
}
