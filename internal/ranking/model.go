package ranking

import "time"

// Component score caps. The total score is the exact sum of the three
// components, so the maximum possible raw score is MaxScore.
const (
	MaxDistanceScore = 40.0
	MaxSkillScore    = 35.0
	MaxUrgencyScore  = 30.0
	MaxScore         = MaxDistanceScore + MaxSkillScore + MaxUrgencyScore
)

// SportSkill is a per-sport skill level override on a profile.
type SportSkill struct {
	Sport string `json:"sport"`
	Level string `json:"level"`
}

// Profile is the read-only user input to ranking: an optional location,
// a default skill level, and per-sport overrides.
type Profile struct {
	Lat          *float64     `json:"lat,omitempty"`
	Lng          *float64     `json:"lng,omitempty"`
	PrimarySport string       `json:"primary_sport,omitempty"`
	SkillLevel   string       `json:"skill_level,omitempty"`
	SportSkills  []SportSkill `json:"sport_skills,omitempty"`
}

// SlotSummary describes host-declared open slots on a session.
type SlotSummary struct {
	Total int `json:"total"`
	Taken int `json:"taken"`
}

// Session is a candidate session to rank. All fields are read-only inputs;
// optional fields are pointers or empty strings.
type Session struct {
	ID            string       `json:"id"`
	Sport         string       `json:"sport"`
	RequiredSkill string       `json:"required_skill,omitempty"`
	StartsAt      string       `json:"starts_at"`
	Lat           *float64     `json:"lat,omitempty"`
	Lng           *float64     `json:"lng,omitempty"`
	Slots         *SlotSummary `json:"slots,omitempty"`
}

// Breakdown holds the per-component sub-scores for a ranked session.
// Invariant: 0 <= Distance <= 40, 0 <= Skill <= 35, 0 <= Urgency <= 30.
type Breakdown struct {
	Distance float64 `json:"distance"`
	Skill    float64 `json:"skill"`
	Urgency  float64 `json:"urgency"`
}

// RankedSession pairs a session with its total score and breakdown.
// Invariant: Score == Breakdown.Distance + Breakdown.Skill + Breakdown.Urgency.
type RankedSession struct {
	Session   Session   `json:"session"`
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// startLayouts are the accepted formats for session start times, tried in
// order. Sessions arrive from the data layer as ISO-8601 strings.
var startLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseStartTime parses a session start timestamp. Returns the parsed time
// and true on success, or the zero time and false when the input is empty
// or matches none of the accepted layouts.
func ParseStartTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
