// Package recommend builds personalized session recommendations.
//
// The engine is a single-pass, request-scoped computation: four
// independently fetched inputs (trait signals, activity filter
// preferences, recent engagement history, and a candidate session pool)
// are materialized by a DataSource, then scored by pure functions:
//
//   - traits (0-45): overlap between the user's weighted trait vector
//     and an activity's preferred traits
//   - categories (0-25): overlap with category targets merged from
//     explicit preferences and recent engagement
//   - proximity (0-20): linear decay over a 30 km radius
//   - engagement (0-10): recency-decayed host and activity familiarity
//
// Scores sum to at most 100 with the default weights; normalizedScore is
// score divided by the total weight, clamped to [0, 1]. Weights can be
// recalibrated at deploy time via a JSON calibration file.
//
// Sessions hosted by the requesting user and activities carrying a seed
// marker (synthetic demo data) are always excluded from results.
package recommend
