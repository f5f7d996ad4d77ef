package reliability

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DataSource provides the raw events the aggregator consumes.
type DataSource interface {
	// AttendanceHistory returns every attendance row for the user, joined
	// with the parent session's schedule and host.
	AttendanceHistory(ctx context.Context, userID string) ([]AttendanceRow, error)
	// ReviewsSince returns reviews received by the user at or after since.
	ReviewsSince(ctx context.Context, userID string, since time.Time) ([]Review, error)
	// ReviewerReputations returns reputation scores keyed by reviewer ID.
	// Reviewers absent from the map have no recorded reputation.
	ReviewerReputations(ctx context.Context, reviewerIDs []string) (map[string]float64, error)
	// ListActiveUserIDs pages through users eligible for recomputation.
	ListActiveUserIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// Store persists aggregation output. Both upserts are keyed by user ID and
// replace any previous snapshot.
type Store interface {
	// UpsertWindows stores the three counter snapshots for the user.
	UpsertWindows(ctx context.Context, userID string, windows Windows, updatedAt time.Time) error
	// UpsertScore stores the computed index for the user.
	UpsertScore(ctx context.Context, userID string, index IndexResult, recomputedAt time.Time) error
}

// daysSinceFloor is the days-since-last-event value supplied to the index
// when the user has no recorded events at all.
const daysSinceFloor = 365.0

// AggregatorConfig configures a reliability aggregator.
type AggregatorConfig struct {
	// Index computes the score from aggregated inputs. Defaults to
	// ComputeReliabilityIndex.
	Index IndexFunc
	// Logger for aggregation activity.
	Logger *slog.Logger
	// Metrics for performance tracking. Optional.
	Metrics *Metrics
	// Now overrides the time source. Defaults to time.Now.
	Now func() time.Time
}

// Aggregator rebuilds a user's reliability counters and index from raw
// attendance and review events.
type Aggregator struct {
	config AggregatorConfig
	source DataSource
	store  Store
}

// NewAggregator creates an aggregator over the given source and store.
func NewAggregator(config AggregatorConfig, source DataSource, store Store) *Aggregator {
	if config.Index == nil {
		config.Index = ComputeReliabilityIndex
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Aggregator{
		config: config,
		source: source,
		store:  store,
	}
}

// Recompute rebuilds the user's windowed counters from scratch, computes
// the reliability index, and persists both snapshots. Any fetch failure
// aborts the run before either upsert so no partial state is written.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (*Result, error) {
	now := a.config.Now().UTC()

	rows, err := a.source.AttendanceHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("session_attendees: %w", err)
	}
	windows, lastEventAt, safeHostEvents := BuildWindows(rows, userID, now)

	reviews, err := a.source.ReviewsSince(ctx, userID, now.AddDate(0, 0, -ReviewWindowDays))
	if err != nil {
		return nil, fmt.Errorf("session_reviews: %w", err)
	}

	reputations, err := a.source.ReviewerReputations(ctx, reviewerIDs(reviews))
	if err != nil {
		return nil, fmt.Errorf("reviewer_reputation: %w", err)
	}

	summary := SummarizeReviews(reviews, reputations, now)
	windows.Window30.Reviews = summary.Count30
	windows.Window30.WeightedReview = summary.Weighted30
	windows.Window90.Reviews = summary.Count90
	windows.Window90.WeightedReview = summary.Weighted90

	daysSince := daysSinceFloor
	if lastEventAt != nil {
		daysSince = now.Sub(*lastEventAt).Hours() / 24
	}

	index := a.config.Index(
		windows.Window30,
		windows.Window90,
		summary.Weighted90,
		summary.Count90,
		safeHostEvents,
		summary.DistinctReviewers90,
		daysSince,
	)

	if err := a.store.UpsertWindows(ctx, userID, windows, now); err != nil {
		return nil, fmt.Errorf("reliability_metrics: %w", err)
	}
	if err := a.store.UpsertScore(ctx, userID, index, now); err != nil {
		return nil, fmt.Errorf("reliability_scores: %w", err)
	}

	a.config.Logger.Debug("reliability recomputed",
		"user_id", userID,
		"score", index.Score,
		"confidence", index.Confidence,
		"events_lifetime", windows.Lifetime.Events(),
		"safe_host_events", safeHostEvents)

	return &Result{
		UserID:       userID,
		Windows:      windows,
		Index:        index,
		LastEventAt:  lastEventAt,
		RecomputedAt: now,
	}, nil
}

// reviewerIDs returns the distinct reviewer IDs in order of first
// appearance.
func reviewerIDs(reviews []Review) []string {
	seen := make(map[string]struct{}, len(reviews))
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		if _, ok := seen[r.ReviewerID]; ok {
			continue
		}
		seen[r.ReviewerID] = struct{}{}
		ids = append(ids, r.ReviewerID)
	}
	return ids
}
