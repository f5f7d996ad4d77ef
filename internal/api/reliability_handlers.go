package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dowhat-app/dowhat/internal/middleware"
	"github.com/dowhat-app/dowhat/internal/reliability"
)

// ReliabilityLoader reads stored reliability snapshots.
// Satisfied by reliability.PostgresStore and reliability.InMemoryStore.
type ReliabilityLoader interface {
	Load(ctx context.Context, userID string) (*reliability.Result, error)
}

// ReliabilityRecomputer runs a fresh aggregation for one user.
// Satisfied by reliability.Aggregator.
type ReliabilityRecomputer interface {
	Recompute(ctx context.Context, userID string) (*reliability.Result, error)
}

// ReliabilityHandlers holds dependencies for reliability HTTP handlers.
type ReliabilityHandlers struct {
	loader     ReliabilityLoader
	recomputer ReliabilityRecomputer
}

// NewReliabilityHandlers creates a new ReliabilityHandlers instance.
func NewReliabilityHandlers(loader ReliabilityLoader, recomputer ReliabilityRecomputer) *ReliabilityHandlers {
	return &ReliabilityHandlers{
		loader:     loader,
		recomputer: recomputer,
	}
}

// ServeHTTP routes /users/{id}/reliability and
// /users/{id}/reliability/recompute to their handlers.
func (h *ReliabilityHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, recompute, ok := parseReliabilityPath(r.URL.Path)
	if !ok {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Not found")
		return
	}

	if recompute {
		h.recomputeReliability(w, r, userID)
		return
	}
	h.getReliability(w, r, userID)
}

// parseReliabilityPath extracts the user ID from a reliability path and
// reports whether the recompute action was requested.
func parseReliabilityPath(path string) (userID string, recompute bool, ok bool) {
	rest, found := strings.CutPrefix(path, "/users/")
	if !found {
		return "", false, false
	}
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && parts[0] != "" && parts[1] == "reliability":
		return parts[0], false, true
	case len(parts) == 3 && parts[0] != "" && parts[1] == "reliability" && parts[2] == "recompute":
		return parts[0], true, true
	}
	return "", false, false
}

// getReliability handles GET /users/{id}/reliability - returns the stored
// reliability snapshot for the user.
func (h *ReliabilityHandlers) getReliability(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	result, err := h.loader.Load(r.Context(), userID)
	if err != nil {
		if errors.Is(err, reliability.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUserNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeUserNotFound, "No reliability data for user")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load reliability snapshot", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load reliability data")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, result)
}

// recomputeReliability handles POST /users/{id}/reliability/recompute -
// forces a fresh aggregation for the user and returns the new snapshot.
func (h *ReliabilityHandlers) recomputeReliability(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	result, err := h.recomputer.Recompute(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "reliability recompute failed", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to recompute reliability")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, result)
}
