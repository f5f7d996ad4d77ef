// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"io"
	"net/http"
	"strings"

	"github.com/dowhat-app/dowhat/internal/auth"
)

// TokenValidator validates a bearer token and returns the claims it carries.
// Satisfied by auth.JWTService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Auth is a middleware that validates the Authorization bearer token and
// stores the authenticated user ID in the request context.
//
// Requests without a valid access token receive a 401 response in the
// standard error envelope. The middleware cannot import the api package
// (the api package imports middleware), so the envelope is written inline.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, "Missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				writeAuthError(w, "Invalid or expired token")
				return
			}
			if claims.Type != auth.TokenTypeAccess {
				writeAuthError(w, "Access token required")
				return
			}

			ctx := SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 response in the standard error envelope.
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	io.WriteString(w, `{"error":{"code":"auth_failed","message":"`+message+`"}}`)
}
