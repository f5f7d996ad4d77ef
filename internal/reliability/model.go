package reliability

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no reliability snapshot exists for a user.
var ErrNotFound = errors.New("reliability result not found")

// Participation statuses derived from raw attendance rows.
const (
	StatusAttended  = "attended"
	StatusNoShow    = "no_show"
	StatusCancelled = "cancelled"
	StatusExcused   = "excused"
)

// Punctuality classifications for attended sessions.
const (
	PunctualityOnTime = "on_time"
	PunctualityLate   = "late"
)

// Window lengths in days.
const (
	ShortWindowDays  = 30
	ReviewWindowDays = 90
)

// PunctualityGrace is how far past the scheduled start an attendance
// timestamp may fall and still count as on time.
const PunctualityGrace = 10 * time.Minute

// DefaultReviewerReputation is the reputation weight applied to reviews
// from reviewers with no recorded reputation.
const DefaultReviewerReputation = 0.5

// AttendanceRow is one raw session-attendance record for a user, joined
// with the parent session's schedule and host.
type AttendanceRow struct {
	SessionID  string
	Status     string
	CheckedIn  bool
	AttendedAt *time.Time
	StartsAt   time.Time
	EndsAt     time.Time
	HostID     string
}

// ParticipationRecord is the classified outcome of one attendance row.
type ParticipationRecord struct {
	SessionID   string
	Status      string
	Punctuality string
	StartsAt    time.Time
	Hosted      bool
}

// Counter holds per-window participation and review counts. Counters are
// rebuilt from raw rows on every aggregation run.
type Counter struct {
	Attended       int        `json:"attended"`
	NoShows        int        `json:"no_shows"`
	LateCancels    int        `json:"late_cancels"`
	Excused        int        `json:"excused"`
	OnTime         int        `json:"on_time"`
	Late           int        `json:"late"`
	Reviews        int        `json:"reviews"`
	WeightedReview float64    `json:"weighted_review,omitempty"`
	LastEventAt    *time.Time `json:"last_event_at,omitempty"`
}

// Events returns the number of participation outcomes recorded in the
// counter, excluding reviews.
func (c Counter) Events() int {
	return c.Attended + c.NoShows + c.LateCancels + c.Excused
}

// Windows groups the three counter snapshots persisted per user.
type Windows struct {
	Window30 Counter `json:"window_30d"`
	Window90 Counter `json:"window_90d"`
	Lifetime Counter `json:"lifetime"`
}

// Review is a peer review received by the user being aggregated.
type Review struct {
	ReviewerID string
	Rating     float64
	CreatedAt  time.Time
}

// ReviewSummary is the reputation-weighted condensation of recent reviews.
type ReviewSummary struct {
	Weighted30          float64
	Weighted90          float64
	Count30             int
	Count90             int
	DistinctReviewers90 int
}

// IndexResult is the output of the reliability index function.
type IndexResult struct {
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Components map[string]float64 `json:"components"`
}

// Result is the full outcome of one aggregation run for a user.
type Result struct {
	UserID       string      `json:"user_id"`
	Windows      Windows     `json:"windows"`
	Index        IndexResult `json:"index"`
	LastEventAt  *time.Time  `json:"last_event_at,omitempty"`
	RecomputedAt time.Time   `json:"recomputed_at"`
}

// SummarizeReviews computes reputation-weighted average ratings for the
// 30-day and 90-day windows and counts distinct reviewers in the 90-day
// window. Reviews from reviewers without a recorded reputation are
// weighted by DefaultReviewerReputation.
func SummarizeReviews(reviews []Review, reputations map[string]float64, now time.Time) ReviewSummary {
	cutoff30 := now.AddDate(0, 0, -ShortWindowDays)
	cutoff90 := now.AddDate(0, 0, -ReviewWindowDays)

	var sum30, weight30, sum90, weight90 float64
	var count30, count90 int
	reviewers := make(map[string]struct{})

	for _, r := range reviews {
		if r.CreatedAt.Before(cutoff90) || r.CreatedAt.After(now) {
			continue
		}
		weight, ok := reputations[r.ReviewerID]
		if !ok {
			weight = DefaultReviewerReputation
		}

		sum90 += r.Rating * weight
		weight90 += weight
		count90++
		reviewers[r.ReviewerID] = struct{}{}

		if !r.CreatedAt.Before(cutoff30) {
			sum30 += r.Rating * weight
			weight30 += weight
			count30++
		}
	}

	summary := ReviewSummary{
		Count30:             count30,
		Count90:             count90,
		DistinctReviewers90: len(reviewers),
	}
	if weight30 > 0 {
		summary.Weighted30 = sum30 / weight30
	}
	if weight90 > 0 {
		summary.Weighted90 = sum90 / weight90
	}
	return summary
}
