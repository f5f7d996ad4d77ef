package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps handlers in otelhttp instrumentation. Spans are named
// "<method> <path>" (for example "GET /recommendations") and trace
// context propagates via the W3C traceparent/tracestate headers. Place
// it after RequestID in the chain so correlation IDs exist before the
// span opens.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	nameSpan := func(_ string, r *http.Request) string {
		return r.Method + " " + r.URL.Path
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName, otelhttp.WithSpanNameFormatter(nameSpan))
	}
}

// GetTraceID returns the active trace ID for the request, or "".
func GetTraceID(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the active span ID for the request, or "".
func GetSpanID(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
