package recommend

import (
	"strings"
	"time"
)

// Candidate pool bounds for a recommendation run.
const (
	// LookaheadDays is how far into the future candidate sessions are
	// considered.
	LookaheadDays = 21
	// CandidateLimit caps the candidate pool fetched per run.
	CandidateLimit = 80
	// DefaultLimit is the number of recommendations returned when the
	// caller does not specify one.
	DefaultLimit = 12
	// EngagementWindowDays bounds the recency window for engagement
	// weights.
	EngagementWindowDays = 45
	// MaxDistanceKm is the radius over which proximity decays linearly
	// to zero.
	MaxDistanceKm = 30.0
)

// ActivityRef is the denormalized activity joined onto a candidate
// session. SeedMarker flags synthetic/placeholder records that must never
// surface in real recommendations.
type ActivityRef struct {
	ID              string   `json:"id" cbor:"id"`
	Name            string   `json:"name" cbor:"name"`
	CategoryTags    []string `json:"category_tags,omitempty" cbor:"category_tags,omitempty"`
	PreferredTraits []string `json:"preferred_traits,omitempty" cbor:"preferred_traits,omitempty"`
	SeedMarker      bool     `json:"seed_marker,omitempty" cbor:"seed_marker,omitempty"`
}

// VenueRef is the denormalized venue joined onto a candidate session.
// Geohash carries the coarse public location for display.
type VenueRef struct {
	ID      string   `json:"id" cbor:"id"`
	Name    string   `json:"name" cbor:"name"`
	Lat     *float64 `json:"lat,omitempty" cbor:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty" cbor:"lng,omitempty"`
	Geohash string   `json:"geohash,omitempty" cbor:"geohash,omitempty"`
}

// Session is a candidate session read model as returned by the data
// fetching collaborator: session row plus joined activity/venue and an
// optional attendee count. The engine treats it as an opaque structured
// input and does not own its lifecycle.
type Session struct {
	ID            string                `json:"id" cbor:"id"`
	HostID        string                `json:"host_id" cbor:"host_id"`
	ActivityID    string                `json:"activity_id" cbor:"activity_id"`
	StartsAt      string                `json:"starts_at" cbor:"starts_at"`
	Activity      Relation[ActivityRef] `json:"activity" cbor:"activity"`
	Venue         Relation[VenueRef]    `json:"venue" cbor:"venue"`
	AttendeeCount *int                  `json:"attendee_count,omitempty" cbor:"attendee_count,omitempty"`
}

// TraitSignal is a normalized strength value for a named user attribute.
type TraitSignal struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"` // [0, 1]
}

// TraitSignalMap maps a normalized trait name to its signal. Built once
// per recommendation run from the user's accumulated trait scores.
type TraitSignalMap map[string]TraitSignal

// RawTraitScore is a user's accumulated peer-vote score for one trait,
// as stored (0-100 scale).
type RawTraitScore struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewTraitSignalMap derives a signal map from raw trait scores. Weights
// are score/100 clamped to [0, 1]; names are normalized for lookup.
func NewTraitSignalMap(raw []RawTraitScore) TraitSignalMap {
	signals := make(TraitSignalMap, len(raw))
	for _, r := range raw {
		name := NormalizeTag(r.Name)
		if name == "" {
			continue
		}
		label := r.Label
		if label == "" {
			label = r.Name
		}
		signals[name] = TraitSignal{
			Label:  label,
			Weight: clamp01(r.Score / 100.0),
		}
	}
	return signals
}

// FilterPreferences are the user's saved discovery filters. Only the
// category list feeds scoring; the remaining fields are carried for the
// caller-facing payload and future filtering.
type FilterPreferences struct {
	Categories []string `json:"categories,omitempty"`
	TimeOfDay  []string `json:"time_of_day,omitempty"`
	MaxPrice   *float64 `json:"max_price,omitempty"`
	RadiusKm   *float64 `json:"radius_km,omitempty"`
}

// DefaultFilterPreferences returns the empty preference set used when the
// preferences fetch fails or the user has never saved filters.
func DefaultFilterPreferences() *FilterPreferences {
	return &FilterPreferences{}
}

// AttendanceEvent is one row of the user's own engagement history: a
// session they attended, with the host, activity, and category context
// needed for recency weighting.
type AttendanceEvent struct {
	HostID     string    `json:"host_id"`
	ActivityID string    `json:"activity_id"`
	Categories []string  `json:"categories,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EngagementWeights holds recency-decayed familiarity weights per host,
// activity, and category, each in [0, 1].
type EngagementWeights struct {
	Hosts      map[string]float64
	Activities map[string]float64
	Categories map[string]float64
}

// Components are the four sub-scores of a recommendation.
type Components struct {
	Traits     float64 `json:"traits" cbor:"traits"`
	Categories float64 `json:"categories" cbor:"categories"`
	Proximity  float64 `json:"proximity" cbor:"proximity"`
	Engagement float64 `json:"engagement" cbor:"engagement"`
}

// Sum returns the exact component total.
func (c Components) Sum() float64 {
	return c.Traits + c.Categories + c.Proximity + c.Engagement
}

// Breakdown explains a recommendation score.
type Breakdown struct {
	Components        Components `json:"components" cbor:"components"`
	MatchedTraits     []string   `json:"matched_traits,omitempty" cbor:"matched_traits,omitempty"`
	MatchedCategories []string   `json:"matched_categories,omitempty" cbor:"matched_categories,omitempty"`
	DistanceKm        *float64   `json:"distance_km" cbor:"distance_km"`
	EngagementMatches []string   `json:"engagement_matches,omitempty" cbor:"engagement_matches,omitempty"`
}

// Record is one scored recommendation.
// Invariants: Score == Breakdown.Components.Sum();
// NormalizedScore == Score / total weight, clamped to [0, 1].
type Record struct {
	Session         Session   `json:"session" cbor:"session"`
	Score           float64   `json:"score" cbor:"score"`
	NormalizedScore float64   `json:"normalized_score" cbor:"normalized_score"`
	Breakdown       Breakdown `json:"breakdown" cbor:"breakdown"`
}

// Response is the caller-facing recommendation payload.
type Response struct {
	UserID          string    `json:"user_id" cbor:"user_id"`
	GeneratedAt     time.Time `json:"generated_at" cbor:"generated_at"`
	Limit           int       `json:"limit" cbor:"limit"`
	Recommendations []Record  `json:"recommendations" cbor:"recommendations"`
}

// NormalizeTag trims and lowercases a trait or category tag for matching.
func NormalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
