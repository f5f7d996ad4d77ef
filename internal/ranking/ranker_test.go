package ranking

import (
	"testing"
	"time"
)

func TestRankEmptyInput(t *testing.T) {
	got := Rank(Profile{}, nil, time.Now())
	if got == nil {
		t.Fatal("Rank() returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Rank() returned %d results for empty input", len(got))
	}
}

func TestRankScoreIsExactComponentSum(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	profile := Profile{
		Lat: floatPtr(13.75), Lng: floatPtr(100.5),
		SkillLevel: "intermediate",
	}
	sessions := []Session{
		{
			ID:            "s1",
			Sport:         "futsal",
			RequiredSkill: "intermediate",
			StartsAt:      now.Add(2 * time.Hour).Format(time.RFC3339),
			Lat:           floatPtr(13.751),
			Lng:           floatPtr(100.5),
		},
		{
			ID:       "s2",
			Sport:    "tennis",
			StartsAt: "broken",
		},
	}

	for _, r := range Rank(profile, sessions, now) {
		sum := r.Breakdown.Distance + r.Breakdown.Skill + r.Breakdown.Urgency
		if r.Score != sum {
			t.Errorf("session %s: score %v != component sum %v", r.Session.ID, r.Score, sum)
		}
		if r.Breakdown.Distance < 0 || r.Breakdown.Distance > MaxDistanceScore {
			t.Errorf("session %s: distance %v out of bounds", r.Session.ID, r.Breakdown.Distance)
		}
		if r.Breakdown.Skill < 0 || r.Breakdown.Skill > MaxSkillScore {
			t.Errorf("session %s: skill %v out of bounds", r.Session.ID, r.Breakdown.Skill)
		}
		if r.Breakdown.Urgency < 0 || r.Breakdown.Urgency > MaxUrgencyScore {
			t.Errorf("session %s: urgency %v out of bounds", r.Session.ID, r.Breakdown.Urgency)
		}
		if r.Score < 0 || r.Score > MaxScore {
			t.Errorf("session %s: score %v out of [0, %v]", r.Session.ID, r.Score, MaxScore)
		}
	}
}

func TestRankNearSessionBeatsFarSession(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	starts := now.Add(3 * time.Hour).Format(time.RFC3339)

	profile := Profile{
		Lat: floatPtr(13.75), Lng: floatPtr(100.5),
		SkillLevel: "intermediate",
	}
	far := Session{
		ID: "far", Sport: "futsal", RequiredSkill: "intermediate",
		StartsAt: starts,
		Lat:      floatPtr(13.9), Lng: floatPtr(100.5),
	}
	near := Session{
		ID: "near", Sport: "futsal", RequiredSkill: "intermediate",
		StartsAt: starts,
		Lat:      floatPtr(13.751), Lng: floatPtr(100.5),
	}

	ranked := Rank(profile, []Session{far, near}, now)
	if len(ranked) != 2 {
		t.Fatalf("Rank() returned %d results, want 2", len(ranked))
	}
	if ranked[0].Session.ID != "near" {
		t.Errorf("expected near session first, got %s", ranked[0].Session.ID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Errorf("near score %v not strictly greater than far score %v",
			ranked[0].Score, ranked[1].Score)
	}
}

func TestRankSortedDescending(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	profile := Profile{Lat: floatPtr(13.75), Lng: floatPtr(100.5), SkillLevel: "advanced"}

	sessions := []Session{
		{ID: "a", Sport: "futsal", StartsAt: now.Add(100 * time.Hour).Format(time.RFC3339)},
		{ID: "b", Sport: "futsal", RequiredSkill: "advanced",
			StartsAt: now.Add(1 * time.Hour).Format(time.RFC3339),
			Lat:      floatPtr(13.7505), Lng: floatPtr(100.5)},
		{ID: "c", Sport: "futsal", StartsAt: now.Add(20 * time.Hour).Format(time.RFC3339)},
	}

	ranked := Rank(profile, sessions, now)
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Errorf("not sorted descending at %d: %v < %v", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].Session.ID != "b" {
		t.Errorf("expected session b first, got %s", ranked[0].Session.ID)
	}
}

func TestRankStableOnTies(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	starts := now.Add(3 * time.Hour).Format(time.RFC3339)

	// Identical sessions produce identical scores; input order must hold.
	sessions := []Session{
		{ID: "first", Sport: "futsal", StartsAt: starts},
		{ID: "second", Sport: "futsal", StartsAt: starts},
		{ID: "third", Sport: "futsal", StartsAt: starts},
	}

	ranked := Rank(Profile{SkillLevel: "beginner"}, sessions, now)
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if ranked[i].Session.ID != want {
			t.Errorf("position %d: got %s, want %s", i, ranked[i].Session.ID, want)
		}
	}
}
