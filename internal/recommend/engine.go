package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dowhat-app/dowhat/internal/ranking"
)

// DataSource materializes the four independent inputs of a recommendation
// run. Implementations are read-only; the fetches touch disjoint query
// shapes and may run concurrently, though the engine calls them in
// sequence since each is a single round trip.
type DataSource interface {
	// TraitSignals returns the user's normalized trait signal map.
	TraitSignals(ctx context.Context, userID string) (TraitSignalMap, error)

	// FilterPreferences returns the user's saved discovery filters, or
	// nil when none are saved.
	FilterPreferences(ctx context.Context, userID string) (*FilterPreferences, error)

	// EngagementHistory returns the user's attendance events since the
	// given time.
	EngagementHistory(ctx context.Context, userID string, since time.Time) ([]AttendanceEvent, error)

	// CandidateSessions returns upcoming sessions in [from, until),
	// ordered by start time ascending, capped at limit.
	CandidateSessions(ctx context.Context, from, until time.Time, limit int) ([]Session, error)
}

// EngineConfig configures a recommendation engine.
type EngineConfig struct {
	// Weights is the component weight calibration. Nil uses defaults.
	Weights *Weights
	// Logger for run activity. Nil uses slog.Default.
	Logger *slog.Logger
	// Metrics for run tracking. Optional.
	Metrics *Metrics
	// Now overrides the wall clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// Engine scores and orders candidate sessions for a user. Stateless
// between calls; safe for concurrent use across requests.
type Engine struct {
	source  DataSource
	weights *Weights
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewEngine creates a recommendation engine over the given data source.
func NewEngine(config EngineConfig, source DataSource) *Engine {
	if config.Weights == nil {
		config.Weights = DefaultWeights()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Engine{
		source:  source,
		weights: config.Weights,
		logger:  config.Logger,
		metrics: config.Metrics,
		now:     config.Now,
	}
}

// Build runs a full recommendation pass for the user and returns the
// ordered, truncated payload.
//
// The user's own hosted sessions and seed-marked activities are excluded.
// A failed preferences fetch logs a warning and substitutes defaults; any
// other fetch failure aborts the run with a source-prefixed error.
func (e *Engine) Build(ctx context.Context, userID string, lat, lng *float64, limit int) (*Response, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	now := e.now()
	start := now

	signals, err := e.source.TraitSignals(ctx, userID)
	if err != nil {
		e.observe(start, false)
		return nil, fmt.Errorf("trait signals: %w", err)
	}

	prefs, err := e.source.FilterPreferences(ctx, userID)
	if err != nil {
		// Graceful degradation: recommendations still work without
		// saved filters.
		e.logger.Warn("failed to load filter preferences, using defaults",
			"user_id", userID,
			"error", err)
		prefs = DefaultFilterPreferences()
	}
	if prefs == nil {
		prefs = DefaultFilterPreferences()
	}

	since := now.AddDate(0, 0, -EngagementWindowDays)
	events, err := e.source.EngagementHistory(ctx, userID, since)
	if err != nil {
		e.observe(start, false)
		return nil, fmt.Errorf("engagement history: %w", err)
	}

	until := now.AddDate(0, 0, LookaheadDays)
	candidates, err := e.source.CandidateSessions(ctx, now, until, CandidateLimit)
	if err != nil {
		e.observe(start, false)
		return nil, fmt.Errorf("candidate sessions: %w", err)
	}

	engagement := BuildEngagementWeights(events, now)
	targets := BuildCategoryTargets(prefs, engagement)

	records := make([]Record, 0, len(candidates))
	for _, session := range candidates {
		if session.HostID == userID {
			continue
		}
		activity := session.Activity.One()
		if activity != nil && activity.SeedMarker {
			continue
		}

		records = append(records, e.score(session, activity, signals, targets, engagement, lat, lng))
	}

	sortRecords(records)

	if len(records) > limit {
		records = records[:limit]
	}

	e.logger.Debug("recommendation run completed",
		"user_id", userID,
		"candidates", len(candidates),
		"returned", len(records))
	if e.metrics != nil {
		e.metrics.ObserveCandidates(len(candidates))
	}
	e.observe(start, true)

	return &Response{
		UserID:          userID,
		GeneratedAt:     now.UTC(),
		Limit:           limit,
		Recommendations: records,
	}, nil
}

// score computes the weighted components for one candidate session.
func (e *Engine) score(
	session Session,
	activity *ActivityRef,
	signals TraitSignalMap,
	targets map[string]float64,
	engagement EngagementWeights,
	lat, lng *float64,
) Record {
	traits, matchedTraits := TraitScore(signals, activity, e.weights.Traits)
	categories, matchedCategories := CategoryScore(targets, activity, e.weights.Categories)
	proximity, distanceKm := ProximityScore(lat, lng, session.Venue.One(), e.weights.Proximity)

	activityID := session.ActivityID
	if activityID == "" && activity != nil {
		activityID = activity.ID
	}
	engScore, engMatches := EngagementScore(engagement, session.HostID, activityID, e.weights.Engagement)

	components := Components{
		Traits:     traits,
		Categories: categories,
		Proximity:  proximity,
		Engagement: engScore,
	}
	score := components.Sum()

	total := e.weights.Total()
	var normalized float64
	if total > 0 {
		normalized = clamp01(score / total)
	}

	return Record{
		Session:         session,
		Score:           score,
		NormalizedScore: normalized,
		Breakdown: Breakdown{
			Components:        components,
			MatchedTraits:     matchedTraits,
			MatchedCategories: matchedCategories,
			DistanceKm:        distanceKm,
			EngagementMatches: engMatches,
		},
	}
}

// sortRecords orders records by score descending; exact score ties break
// by ascending start time (soonest first). When either start time fails
// to parse the comparator reports equality, so stable sort keeps input
// order.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		ti, okI := ranking.ParseStartTime(records[i].Session.StartsAt)
		tj, okJ := ranking.ParseStartTime(records[j].Session.StartsAt)
		if !okI || !okJ {
			return false
		}
		return ti.Before(tj)
	})
}

// observe records run metrics when metrics are configured.
func (e *Engine) observe(start time.Time, ok bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.IncBuilds(ok)
	e.metrics.ObserveBuildDuration(time.Since(start).Seconds())
}
