// Package middleware provides the HTTP middleware chain for the doWhat
// API server: request correlation, structured access logging, JWT
// authentication, Prometheus metrics, and trace propagation.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID. A client-supplied value is
// reused so IDs survive proxies; otherwise one is minted per request.
const RequestIDHeader = "X-Request-ID"

type ctxKeyRequestID struct{}

// RequestID tags every request with a correlation ID. The ID is echoed
// on the response header and stored in the request context, where the
// logging middleware picks it up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the correlation ID stored by RequestID, or the
// empty string outside the middleware chain.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}
