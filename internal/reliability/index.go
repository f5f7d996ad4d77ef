package reliability

import (
	"math"
)

// IndexFunc computes a bounded reliability score and confidence from
// windowed counters and review signals. The aggregator supplies exactly
// these seven inputs; the weighting inside is a calibration concern and
// can be swapped without touching aggregation.
type IndexFunc func(
	w30, w90 Counter,
	weightedReview90 float64,
	reviewCount90 int,
	safeHostEvents int,
	distinctReviewers90 int,
	daysSinceLastEvent float64,
) IndexResult

// Component blend weights for the default index. They sum to 1 so the
// score stays within 0-100 without a final rescale.
const (
	attendanceShare  = 0.45
	punctualityShare = 0.20
	reviewShare      = 0.20
	hostingShare     = 0.10
	recencyShare     = 0.05
)

// neutralRate stands in for ratio components with no observations, so new
// users start from the middle rather than the floor.
const neutralRate = 0.5

// maxReviewRating is the rating ceiling used to normalize review averages.
const maxReviewRating = 5.0

// ComputeReliabilityIndex is the default IndexFunc. It blends a recent
// attendance rate (90-day window, nudged toward the 30-day window when
// that has data), punctuality, reputation-weighted reviews, hosting
// activity, and recency into a 0-100 score. Confidence reflects how much
// evidence backs the score: event volume, reviewer diversity, and how
// recently the user was last seen at a session.
func ComputeReliabilityIndex(
	w30, w90 Counter,
	weightedReview90 float64,
	reviewCount90 int,
	safeHostEvents int,
	distinctReviewers90 int,
	daysSinceLastEvent float64,
) IndexResult {
	attendance := eventRate(w90.Attended, w90.Events())
	if w30.Events() > 0 {
		attendance = 0.6*attendance + 0.4*eventRate(w30.Attended, w30.Events())
	}

	punctuality := eventRate(w90.OnTime, w90.OnTime+w90.Late)

	review := neutralRate
	if reviewCount90 > 0 {
		review = clampUnit(weightedReview90 / maxReviewRating)
	}

	hosting := clampUnit(float64(safeHostEvents) / 5.0)
	recency := clampUnit(1.0 - daysSinceLastEvent/180.0)

	score := 100 * clampUnit(
		attendanceShare*attendance+
			punctualityShare*punctuality+
			reviewShare*review+
			hostingShare*hosting+
			recencyShare*recency)

	volume := clampUnit(float64(w90.Events()) / 20.0)
	diversity := clampUnit(float64(distinctReviewers90) / 5.0)
	confidence := clampUnit(0.6*volume + 0.2*diversity + 0.2*recency)

	return IndexResult{
		Score:      score,
		Confidence: confidence,
		Components: map[string]float64{
			"attendance":  attendance,
			"punctuality": punctuality,
			"review":      review,
			"hosting":     hosting,
			"recency":     recency,
		},
	}
}

// eventRate returns count/total, or the neutral rate when there are no
// observations.
func eventRate(count, total int) float64 {
	if total <= 0 {
		return neutralRate
	}
	return float64(count) / float64(total)
}

// clampUnit clamps v into [0, 1] and maps NaN to 0.
func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
