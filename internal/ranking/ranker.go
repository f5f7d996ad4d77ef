package ranking

import (
	"sort"
	"time"
)

// Rank scores every candidate session for the profile and returns them
// sorted by descending total score. Pure: no I/O, no shared state; safe to
// call concurrently for different users.
//
// Ties between equal scores preserve the input order (stable sort).
// An empty or nil input returns an empty slice.
func Rank(profile Profile, sessions []Session, now time.Time) []RankedSession {
	ranked := make([]RankedSession, 0, len(sessions))

	for _, s := range sessions {
		b := Breakdown{
			Distance: DistanceScore(profile, s),
			Skill:    SkillScore(profile, s),
			Urgency:  UrgencyScore(s.StartsAt, now),
		}
		ranked = append(ranked, RankedSession{
			Session:   s,
			Score:     b.Distance + b.Skill + b.Urgency,
			Breakdown: b,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
