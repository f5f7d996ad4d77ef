package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dowhat-app/dowhat/internal/middleware"
	"github.com/dowhat-app/dowhat/internal/recommend"
)

// MaxRecommendationLimit caps how many recommendations one request can ask for.
const MaxRecommendationLimit = 50

// RecommendationHandlers holds dependencies for recommendation HTTP handlers.
type RecommendationHandlers struct {
	engine       *recommend.Engine
	cache        *recommend.Cache
	defaultLimit int
}

// NewRecommendationHandlers creates a new RecommendationHandlers instance.
// The cache is optional; pass nil to always build fresh responses. A
// non-positive defaultLimit falls back to the engine's default.
func NewRecommendationHandlers(engine *recommend.Engine, cache *recommend.Cache, defaultLimit int) *RecommendationHandlers {
	return &RecommendationHandlers{
		engine:       engine,
		cache:        cache,
		defaultLimit: defaultLimit,
	}
}

// GetRecommendations handles GET /recommendations - builds the ranked
// session feed for the authenticated user.
//
// Query parameters:
//   - lat, lng: optional viewer coordinates; both must be supplied together
//   - limit: optional result cap, defaults to the engine's limit
//
// Cached payloads are only served for requests without coordinates, since
// the proximity component depends on where the viewer is.
func (h *RecommendationHandlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	lat, lng, err := parseCoordinates(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidLimit)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidLimit, "Limit must be a positive integer")
			return
		}
		if limit > MaxRecommendationLimit {
			limit = MaxRecommendationLimit
		}
	}

	cacheable := h.cache != nil && lat == nil && lng == nil
	if cacheable {
		if cached, err := h.cache.Get(r.Context(), userID, limit); err == nil {
			writeJSON(w, r.Context(), http.StatusOK, cached)
			return
		} else if !errors.Is(err, recommend.ErrCacheMiss) {
			slog.WarnContext(r.Context(), "recommendation cache read failed", "error", err, "user_id", userID)
		}
	}

	response, err := h.engine.Build(r.Context(), userID, lat, lng, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build recommendations", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build recommendations")
		return
	}

	if cacheable {
		if err := h.cache.Set(r.Context(), response); err != nil {
			slog.WarnContext(r.Context(), "recommendation cache write failed", "error", err, "user_id", userID)
		}
	}

	writeJSON(w, r.Context(), http.StatusOK, response)
}

// parseCoordinates extracts optional lat/lng query parameters. Both must be
// present together and within valid ranges.
func parseCoordinates(r *http.Request) (*float64, *float64, error) {
	rawLat := r.URL.Query().Get("lat")
	rawLng := r.URL.Query().Get("lng")

	if rawLat == "" && rawLng == "" {
		return nil, nil, nil
	}
	if rawLat == "" || rawLng == "" {
		return nil, nil, errors.New("lat and lng must be supplied together")
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, nil, errors.New("lat must be a number between -90 and 90")
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, nil, errors.New("lng must be a number between -180 and 180")
	}
	return &lat, &lng, nil
}
