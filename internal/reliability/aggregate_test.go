package reliability

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

var aggregateNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregator(source DataSource, store Store, index IndexFunc) *Aggregator {
	return NewAggregator(AggregatorConfig{
		Index: index,
		Now:   func() time.Time { return aggregateNow },
	}, source, store)
}

func TestRecomputeEmptyHistory(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	result, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if result.Windows != (Windows{}) {
		t.Errorf("windows = %+v, want all zero", result.Windows)
	}
	if result.LastEventAt != nil {
		t.Errorf("lastEventAt = %v, want nil", result.LastEventAt)
	}

	// Upserts still happen exactly once each for the empty state.
	if got := store.WindowUpserts("u1"); got != 1 {
		t.Errorf("window upserts = %d, want 1", got)
	}
	if got := store.ScoreUpserts("u1"); got != 1 {
		t.Errorf("score upserts = %d, want 1", got)
	}
}

func TestRecomputeNoShowProperty(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	start := aggregateNow.Add(-24 * time.Hour)
	source.AddAttendance("u1", AttendanceRow{
		SessionID: "s1",
		Status:    rawStatusGoing,
		StartsAt:  start,
		EndsAt:    start.Add(2 * time.Hour),
	})

	result, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	for _, c := range []Counter{result.Windows.Window30, result.Windows.Window90, result.Windows.Lifetime} {
		if c.NoShows != 1 {
			t.Errorf("no_shows = %d, want 1", c.NoShows)
		}
		if c.Attended != 0 {
			t.Errorf("attended = %d, want 0", c.Attended)
		}
	}
}

func TestRecomputeReviewWeighting(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	source.AddReview("u1", Review{ReviewerID: "r1", Rating: 5, CreatedAt: aggregateNow.AddDate(0, 0, -5)})
	source.AddReview("u1", Review{ReviewerID: "r2", Rating: 3, CreatedAt: aggregateNow.AddDate(0, 0, -5)})
	source.SetReputation("r1", 1.0)
	// r2 has no recorded reputation and falls back to the 0.5 default.

	result, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	// (5*1.0 + 3*0.5) / (1.0 + 0.5)
	want := 6.5 / 1.5
	if got := result.Windows.Window90.WeightedReview; math.Abs(got-want) > 1e-9 {
		t.Errorf("90d weighted review = %v, want %v", got, want)
	}
	if got := result.Windows.Window90.Reviews; got != 2 {
		t.Errorf("90d review count = %d, want 2", got)
	}
	if got := result.Windows.Window30.WeightedReview; math.Abs(got-want) > 1e-9 {
		t.Errorf("30d weighted review = %v, want %v", got, want)
	}
}

func TestRecomputeReviewWindowSplit(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	source.AddReview("u1", Review{ReviewerID: "r1", Rating: 5, CreatedAt: aggregateNow.AddDate(0, 0, -5)})
	source.AddReview("u1", Review{ReviewerID: "r2", Rating: 1, CreatedAt: aggregateNow.AddDate(0, 0, -60)})

	result, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if got := result.Windows.Window30.Reviews; got != 1 {
		t.Errorf("30d review count = %d, want 1", got)
	}
	if got := result.Windows.Window90.Reviews; got != 2 {
		t.Errorf("90d review count = %d, want 2", got)
	}
	if got := result.Windows.Window30.WeightedReview; math.Abs(got-5) > 1e-9 {
		t.Errorf("30d weighted review = %v, want 5", got)
	}
}

func TestRecomputeIndexInputs(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	// Hosted and attended 10 days ago.
	start := aggregateNow.AddDate(0, 0, -10)
	source.AddAttendance("u1", AttendanceRow{
		SessionID: "s1", Status: rawStatusGoing, CheckedIn: true,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour), HostID: "u1",
	})
	source.AddReview("u1", Review{ReviewerID: "r1", Rating: 4, CreatedAt: aggregateNow.AddDate(0, 0, -3)})
	source.AddReview("u1", Review{ReviewerID: "r2", Rating: 4, CreatedAt: aggregateNow.AddDate(0, 0, -3)})

	var gotHostEvents, gotReviewCount, gotDistinct int
	var gotDays float64
	capture := func(w30, w90 Counter, weighted90 float64, reviewCount90, safeHostEvents, distinctReviewers90 int, daysSince float64) IndexResult {
		gotHostEvents = safeHostEvents
		gotReviewCount = reviewCount90
		gotDistinct = distinctReviewers90
		gotDays = daysSince
		return IndexResult{Score: 50, Confidence: 0.5}
	}

	if _, err := newTestAggregator(source, store, capture).Recompute(context.Background(), "u1"); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if gotHostEvents != 1 {
		t.Errorf("safeHostEvents = %d, want 1", gotHostEvents)
	}
	if gotReviewCount != 2 {
		t.Errorf("reviewCount90 = %d, want 2", gotReviewCount)
	}
	if gotDistinct != 2 {
		t.Errorf("distinctReviewers90 = %d, want 2", gotDistinct)
	}
	if math.Abs(gotDays-10) > 0.01 {
		t.Errorf("daysSinceLastEvent = %v, want ~10", gotDays)
	}
}

func TestRecomputeFetchFailuresAbortWithoutWrites(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(*InMemoryDataSource)
		wantPrefix string
	}{
		{
			name:       "attendance failure",
			configure:  func(s *InMemoryDataSource) { s.AttendanceErr = errors.New("boom") },
			wantPrefix: "session_attendees:",
		},
		{
			name:       "reviews failure",
			configure:  func(s *InMemoryDataSource) { s.ReviewsErr = errors.New("boom") },
			wantPrefix: "session_reviews:",
		},
		{
			name:       "reputations failure",
			configure:  func(s *InMemoryDataSource) { s.ReputationsErr = errors.New("boom") },
			wantPrefix: "reviewer_reputation:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewInMemoryDataSource()
			store := NewInMemoryStore()
			tt.configure(source)

			_, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tt.wantPrefix) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.wantPrefix)
			}
			if store.WindowUpserts("u1") != 0 || store.ScoreUpserts("u1") != 0 {
				t.Error("fetch failure must not produce partial writes")
			}
		})
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	start := aggregateNow.AddDate(0, 0, -7)
	source.AddAttendance("u1", AttendanceRow{
		SessionID: "s1", Status: rawStatusGoing, CheckedIn: true,
		StartsAt: start, EndsAt: start.Add(2 * time.Hour),
	})

	agg := newTestAggregator(source, store, nil)
	first, err := agg.Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}
	second, err := agg.Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if !reflect.DeepEqual(first.Windows, second.Windows) {
		t.Errorf("rerun produced different windows:\nfirst  %+v\nsecond %+v",
			first.Windows, second.Windows)
	}
	if first.Index.Score != second.Index.Score {
		t.Errorf("rerun produced different scores: %v vs %v",
			first.Index.Score, second.Index.Score)
	}
	if store.WindowUpserts("u1") != 2 {
		t.Errorf("window upserts = %d, want 2", store.WindowUpserts("u1"))
	}
}

func TestRecomputePersistsSnapshots(t *testing.T) {
	source := NewInMemoryDataSource()
	store := NewInMemoryStore()

	result, err := newTestAggregator(source, store, nil).Recompute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	windows, ok := store.GetWindows("u1")
	if !ok {
		t.Fatal("windows snapshot not stored")
	}
	if !windows.UpdatedAt.Equal(aggregateNow) {
		t.Errorf("UpdatedAt = %v, want %v", windows.UpdatedAt, aggregateNow)
	}

	score, ok := store.GetScore("u1")
	if !ok {
		t.Fatal("score snapshot not stored")
	}
	if score.Index.Score != result.Index.Score {
		t.Errorf("stored score = %v, result score = %v", score.Index.Score, result.Index.Score)
	}
}
