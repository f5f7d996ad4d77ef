package recommend

import (
	"sort"
	"time"

	"github.com/dowhat-app/dowhat/internal/geo"
)

// TraitScore measures how much of the user's weighted trait vector an
// activity's preferred-trait list satisfies.
//
// The target is the user's full signal map: ratio = matched signal weight
// over total signal weight, clamped to [0, 1], scaled by the trait budget.
// Partial credit therefore scales with satisfied target weight, not with
// how many tags the activity lists. Returns the scaled score and the
// labels of the matched traits.
func TraitScore(signals TraitSignalMap, activity *ActivityRef, weight float64) (float64, []string) {
	if activity == nil || len(signals) == 0 || len(activity.PreferredTraits) == 0 {
		return 0, nil
	}

	var total float64
	for _, sig := range signals {
		total += sig.Weight
	}
	if total <= 0 {
		return 0, nil
	}

	preferred := make(map[string]bool, len(activity.PreferredTraits))
	for _, t := range activity.PreferredTraits {
		if tag := NormalizeTag(t); tag != "" {
			preferred[tag] = true
		}
	}

	var matchedWeight float64
	var matched []string
	for name, sig := range signals {
		if preferred[name] {
			matchedWeight += sig.Weight
			matched = append(matched, sig.Label)
		}
	}
	sort.Strings(matched)

	return weight * clamp01(matchedWeight/total), matched
}

// BuildCategoryTargets merges the user's explicit category preferences
// (weight 1) with recent-engagement categories (weight = decayed recency).
// When a category appears in both, the larger weight wins. Keys are
// normalized tags.
func BuildCategoryTargets(prefs *FilterPreferences, engagement EngagementWeights) map[string]float64 {
	targets := make(map[string]float64)

	if prefs != nil {
		for _, c := range prefs.Categories {
			if tag := NormalizeTag(c); tag != "" {
				targets[tag] = 1.0
			}
		}
	}

	for tag, w := range engagement.Categories {
		if w > targets[tag] {
			targets[tag] = w
		}
	}

	return targets
}

// CategoryScore measures overlap between weighted category targets and an
// activity's category tags: matched target weight over total target
// weight, clamped to [0, 1], scaled by the category budget. Returns the
// scaled score and the matched category tags.
func CategoryScore(targets map[string]float64, activity *ActivityRef, weight float64) (float64, []string) {
	if activity == nil || len(targets) == 0 || len(activity.CategoryTags) == 0 {
		return 0, nil
	}

	var total float64
	for _, w := range targets {
		total += w
	}
	if total <= 0 {
		return 0, nil
	}

	tagged := make(map[string]bool, len(activity.CategoryTags))
	for _, c := range activity.CategoryTags {
		if tag := NormalizeTag(c); tag != "" {
			tagged[tag] = true
		}
	}

	var matchedWeight float64
	var matched []string
	for tag, w := range targets {
		if tagged[tag] {
			matchedWeight += w
			matched = append(matched, tag)
		}
	}
	sort.Strings(matched)

	return weight * clamp01(matchedWeight/total), matched
}

// ProximityScore computes the linear-decay proximity component:
// weight * clamp01(1 - km / MaxDistanceKm). Missing coordinates on either
// side score 0 with a nil distance. Unknown location is neutral, never
// an error.
func ProximityScore(userLat, userLng *float64, venue *VenueRef, weight float64) (float64, *float64) {
	if userLat == nil || userLng == nil || venue == nil || venue.Lat == nil || venue.Lng == nil {
		return 0, nil
	}

	km := geo.HaversineKm(*userLat, *userLng, *venue.Lat, *venue.Lng)
	score := weight * clamp01(1.0-km/MaxDistanceKm)

	return score, &km
}

// Engagement budget shares: host familiarity carries 0.6 of the
// engagement budget, activity familiarity 0.4.
const (
	hostEngagementShare     = 0.6
	activityEngagementShare = 0.4
)

// EngagementScore rewards familiarity with the session's host and
// activity independently and additively, capped at the full engagement
// budget. Returns the scaled score and the keys that matched
// ("host:<id>", "activity:<id>").
func EngagementScore(weights EngagementWeights, hostID, activityID string, budget float64) (float64, []string) {
	var score float64
	var matches []string

	if w := weights.Hosts[hostID]; w > 0 {
		score += budget * hostEngagementShare * w
		matches = append(matches, "host:"+hostID)
	}
	if w := weights.Activities[activityID]; w > 0 {
		score += budget * activityEngagementShare * w
		matches = append(matches, "activity:"+activityID)
	}

	if score > budget {
		score = budget
	}
	return score, matches
}

// BuildEngagementWeights derives recency-decayed familiarity weights from
// the user's attendance history. Each event contributes a linear decay
// over the engagement window (1.0 now, 0.0 at the window edge); repeated
// engagement accumulates, clamped to 1 per key. Events outside the window
// or in the future contribute nothing.
func BuildEngagementWeights(events []AttendanceEvent, now time.Time) EngagementWeights {
	weights := EngagementWeights{
		Hosts:      make(map[string]float64),
		Activities: make(map[string]float64),
		Categories: make(map[string]float64),
	}

	window := float64(EngagementWindowDays) * 24

	for _, e := range events {
		ageHours := now.Sub(e.OccurredAt).Hours()
		if ageHours < 0 || ageHours > window {
			continue
		}
		decay := clamp01(1.0 - ageHours/window)
		if decay == 0 {
			continue
		}

		if e.HostID != "" {
			weights.Hosts[e.HostID] = clamp01(weights.Hosts[e.HostID] + decay)
		}
		if e.ActivityID != "" {
			weights.Activities[e.ActivityID] = clamp01(weights.Activities[e.ActivityID] + decay)
		}
		for _, c := range e.Categories {
			if tag := NormalizeTag(c); tag != "" {
				weights.Categories[tag] = clamp01(weights.Categories[tag] + decay)
			}
		}
	}

	return weights
}
