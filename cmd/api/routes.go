package main

import (
	"log/slog"
	"net/http"

	"github.com/dowhat-app/dowhat/internal/api"
	"github.com/dowhat-app/dowhat/internal/middleware"
)

// apiHandlers groups the route targets the server mounts. Protected
// handlers arrive already wrapped in the auth middleware.
type apiHandlers struct {
	health          http.HandlerFunc
	ready           http.HandlerFunc
	metrics         http.Handler
	recommendations http.Handler
	reliability     http.Handler
}

// newMux builds the server's route table.
func newMux(h apiHandlers) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.HandleFunc("/ready", h.ready)
	mux.Handle("/metrics", h.metrics)
	mux.Handle("/recommendations", h.recommendations)
	mux.Handle("/users/", h.reliability)
	mux.HandleFunc("/", rootHandler)
	return mux
}

// rootHandler serves the service banner on the exact root path and the
// JSON not-found envelope for every path no other route claimed.
func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
		api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"service":"dowhat-api","version":"0.0.1"}`)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
