package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(source DataSource) *Engine {
	return NewEngine(EngineConfig{Now: func() time.Time { return testNow }}, source)
}

func startIn(d time.Duration) string {
	return testNow.Add(d).Format(time.RFC3339)
}

func TestBuildExcludesOwnHostedSessions(t *testing.T) {
	source := NewInMemoryDataSource()
	source.AddSession(Session{ID: "mine", HostID: "u1", StartsAt: startIn(24 * time.Hour)})
	source.AddSession(Session{ID: "other", HostID: "u2", StartsAt: startIn(24 * time.Hour)})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, r := range resp.Recommendations {
		if r.Session.ID == "mine" {
			t.Error("self-hosted session must never appear in recommendations")
		}
	}
	if len(resp.Recommendations) != 1 {
		t.Errorf("got %d recommendations, want 1", len(resp.Recommendations))
	}
}

func TestBuildExcludesSeedMarkedActivities(t *testing.T) {
	source := NewInMemoryDataSource()
	source.AddSession(Session{
		ID: "seeded", HostID: "u2", StartsAt: startIn(24 * time.Hour),
		Activity: Rel(ActivityRef{ID: "a1", SeedMarker: true}),
	})
	source.AddSession(Session{
		ID: "real", HostID: "u2", StartsAt: startIn(24 * time.Hour),
		Activity: Rel(ActivityRef{ID: "a2"}),
	})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if len(resp.Recommendations) != 1 || resp.Recommendations[0].Session.ID != "real" {
		t.Errorf("seed-marked activity leaked into results: %+v", resp.Recommendations)
	}
}

func TestBuildNormalizedScoreBounds(t *testing.T) {
	source := NewInMemoryDataSource()
	source.SetTraitSignals("u1", TraitSignalMap{
		"competitive": {Label: "Competitive", Weight: 1.0},
	})
	source.SetFilterPreferences("u1", &FilterPreferences{Categories: []string{"futsal"}})
	// Zero-age event so the recency decay contributes a full weight of 1.
	source.AddAttendanceEvent("u1", AttendanceEvent{
		HostID: "h1", ActivityID: "a1", OccurredAt: testNow,
	})
	lat, lng := 13.75, 100.5
	source.AddSession(Session{
		ID: "perfect", HostID: "h1", ActivityID: "a1",
		StartsAt: startIn(24 * time.Hour),
		Activity: Rel(ActivityRef{
			ID:              "a1",
			CategoryTags:    []string{"futsal"},
			PreferredTraits: []string{"competitive"},
		}),
		Venue: Rel(VenueRef{ID: "v1", Lat: &lat, Lng: &lng}),
	})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", &lat, &lng, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resp.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(resp.Recommendations))
	}

	r := resp.Recommendations[0]
	// All four components at their maxima: 45 + 25 + 20 + 10 = 100.
	if math.Abs(r.Score-100) > 1e-9 {
		t.Errorf("score = %v, want 100", r.Score)
	}
	if math.Abs(r.NormalizedScore-1.0) > 1e-9 {
		t.Errorf("normalizedScore = %v, want 1.0", r.NormalizedScore)
	}
	if sum := r.Breakdown.Components.Sum(); math.Abs(r.Score-sum) > 1e-9 {
		t.Errorf("score %v != component sum %v", r.Score, sum)
	}
}

func TestBuildNormalizedScoreAlwaysInRange(t *testing.T) {
	source := NewInMemoryDataSource()
	for i := 0; i < 5; i++ {
		source.AddSession(Session{
			ID:       fmt.Sprintf("s%d", i),
			HostID:   "u2",
			StartsAt: startIn(time.Duration(i+1) * time.Hour),
		})
	}

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, r := range resp.Recommendations {
		if r.NormalizedScore < 0 || r.NormalizedScore > 1 {
			t.Errorf("normalizedScore %v out of [0, 1]", r.NormalizedScore)
		}
	}
}

func TestBuildTieBreakByStartTime(t *testing.T) {
	source := NewInMemoryDataSource()
	// Identical scoring inputs; later session added first.
	source.AddSession(Session{ID: "later", HostID: "u2", StartsAt: startIn(48 * time.Hour)})
	source.AddSession(Session{ID: "sooner", HostID: "u2", StartsAt: startIn(2 * time.Hour)})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resp.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2", len(resp.Recommendations))
	}
	if resp.Recommendations[0].Session.ID != "sooner" {
		t.Errorf("tie must break by ascending start time, got %s first",
			resp.Recommendations[0].Session.ID)
	}
}

func TestBuildLimitTruncation(t *testing.T) {
	source := NewInMemoryDataSource()
	for i := 0; i < 20; i++ {
		source.AddSession(Session{
			ID:       fmt.Sprintf("s%d", i),
			HostID:   "u2",
			StartsAt: startIn(time.Duration(i+1) * time.Hour),
		})
	}

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resp.Recommendations) != DefaultLimit {
		t.Errorf("got %d recommendations, want default limit %d",
			len(resp.Recommendations), DefaultLimit)
	}
	if resp.Limit != DefaultLimit {
		t.Errorf("response limit = %d, want %d", resp.Limit, DefaultLimit)
	}

	resp, err = newTestEngine(source).Build(context.Background(), "u1", nil, nil, 3)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resp.Recommendations) != 3 {
		t.Errorf("got %d recommendations, want 3", len(resp.Recommendations))
	}
}

func TestBuildPreferencesFailureDegradesGracefully(t *testing.T) {
	source := NewInMemoryDataSource()
	source.PreferencesErr = errors.New("connection refused")
	source.AddSession(Session{ID: "s1", HostID: "u2", StartsAt: startIn(24 * time.Hour)})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() must tolerate preference fetch failure, got %v", err)
	}
	if len(resp.Recommendations) != 1 {
		t.Errorf("got %d recommendations, want 1", len(resp.Recommendations))
	}
}

func TestBuildFatalFetchFailures(t *testing.T) {
	tests := []struct {
		name       string
		configure  func(*InMemoryDataSource)
		wantPrefix string
	}{
		{
			name:       "trait signals failure",
			configure:  func(s *InMemoryDataSource) { s.TraitsErr = errors.New("boom") },
			wantPrefix: "trait signals:",
		},
		{
			name:       "engagement history failure",
			configure:  func(s *InMemoryDataSource) { s.HistoryErr = errors.New("boom") },
			wantPrefix: "engagement history:",
		},
		{
			name:       "candidate sessions failure",
			configure:  func(s *InMemoryDataSource) { s.SessionsErr = errors.New("boom") },
			wantPrefix: "candidate sessions:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewInMemoryDataSource()
			tt.configure(source)

			_, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.HasPrefix(err.Error(), tt.wantPrefix) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.wantPrefix)
			}
		})
	}
}

func TestBuildSkipsSessionsOutsideLookahead(t *testing.T) {
	source := NewInMemoryDataSource()
	source.AddSession(Session{ID: "past", HostID: "u2", StartsAt: startIn(-1 * time.Hour)})
	source.AddSession(Session{ID: "near", HostID: "u2", StartsAt: startIn(24 * time.Hour)})
	source.AddSession(Session{ID: "beyond", HostID: "u2",
		StartsAt: startIn(time.Duration(LookaheadDays+5) * 24 * time.Hour)})

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].Session.ID != "near" {
		t.Errorf("lookahead window not applied: %+v", resp.Recommendations)
	}
}

func TestBuildResponseMetadata(t *testing.T) {
	source := NewInMemoryDataSource()

	resp, err := newTestEngine(source).Build(context.Background(), "u1", nil, nil, 0)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if resp.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", resp.UserID)
	}
	if !resp.GeneratedAt.Equal(testNow) {
		t.Errorf("GeneratedAt = %v, want %v", resp.GeneratedAt, testNow)
	}
	if resp.Recommendations == nil {
		t.Error("Recommendations must be non-nil even when empty")
	}
}
