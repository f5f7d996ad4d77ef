// Package ranking scores and orders candidate sessions for a user profile.
//
// The ranker combines three independent component scores:
//
//   - distance: a step function over Haversine distance (max 40)
//   - skill: coarse alignment between user and required skill (max 35)
//   - urgency: discrete tiers by hours until start (max 30)
//
// All functions are pure and synchronous: missing coordinates, missing
// skills, and unparseable start times degrade to a neutral score of zero
// instead of failing, so ranking never errors on incomplete data.
//
// Basic usage:
//
//	ranked := ranking.Rank(profile, sessions, time.Now())
//	for _, r := range ranked {
//		fmt.Println(r.Session.ID, r.Score, ranking.NormalizeScore(r.Score))
//	}
//
// Ties between equal total scores preserve input order (stable sort);
// callers that need a stricter ordering should apply their own tie-break.
package ranking
