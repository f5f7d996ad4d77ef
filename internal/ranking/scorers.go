package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/dowhat-app/dowhat/internal/geo"
)

// DistanceScore computes the proximity component for a session.
// Unknown location on either side is neutral: no penalty, no bonus.
//
// The great-circle distance in km maps to a step function:
// <=1km -> 40, <=3km -> 30, <=5km -> 20, <=10km -> 10, else 0.
func DistanceScore(profile Profile, session Session) float64 {
	if profile.Lat == nil || profile.Lng == nil || session.Lat == nil || session.Lng == nil {
		return 0
	}

	km := geo.HaversineKm(*profile.Lat, *profile.Lng, *session.Lat, *session.Lng)

	switch {
	case km <= 1:
		return MaxDistanceScore
	case km <= 3:
		return 30
	case km <= 5:
		return 20
	case km <= 10:
		return 10
	default:
		return 0
	}
}

// SkillScore computes the skill-alignment component for a session.
//
// The user's skill for the session's sport is resolved from per-sport
// overrides first, falling back to the profile default. Both sides are
// trimmed and lowercased before comparison. Scoring is intentionally a
// coarse three-tier match rather than a fuzzy distance:
//
//   - no required skill on the session: 15 if the user has any skill
//     recorded, 10 otherwise
//   - required skill set but the user has none: 5
//   - exact case-insensitive match: 35
//   - any other combination: 15
func SkillScore(profile Profile, session Session) float64 {
	userSkill := normalizeSkill(resolveSkill(profile, session.Sport))
	required := normalizeSkill(session.RequiredSkill)

	if required == "" {
		if userSkill != "" {
			return 15
		}
		return 10
	}
	if userSkill == "" {
		return 5
	}
	if userSkill == required {
		return MaxSkillScore
	}
	return 15
}

// resolveSkill returns the user's skill level for a sport: a per-sport
// override when one exists, otherwise the profile default. An unset sport
// resolves straight to the default.
func resolveSkill(profile Profile, sport string) string {
	if sport == "" {
		return profile.SkillLevel
	}
	want := normalizeSkill(sport)
	for _, s := range profile.SportSkills {
		if normalizeSkill(s.Sport) == want {
			return s.Level
		}
	}
	return profile.SkillLevel
}

// normalizeSkill trims and lowercases a skill or sport label.
func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UrgencyScore computes the urgency component for a session start time
// relative to now. Four discrete tiers keep the score easy to reason about:
// <=6h -> 30, <=24h -> 20, <=48h -> 10, else 0. Past or unparseable start
// times score 0 (past sessions are never ranked up).
func UrgencyScore(startsAt string, now time.Time) float64 {
	start, ok := ParseStartTime(startsAt)
	if !ok {
		return 0
	}

	hours := start.Sub(now).Hours()

	switch {
	case hours <= 0:
		return 0
	case hours <= 6:
		return MaxUrgencyScore
	case hours <= 24:
		return 20
	case hours <= 48:
		return 10
	default:
		return 0
	}
}

// NormalizeScore maps a raw ranking score onto a 0-100 percentage of
// MaxScore. Non-finite and negative inputs clamp to 0; results clamp to
// [0, 100].
func NormalizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}

	pct := score / MaxScore * 100

	if pct > 100 {
		return 100
	}
	return pct
}
