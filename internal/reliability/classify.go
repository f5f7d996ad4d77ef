package reliability

import (
	"time"
)

// Raw attendance statuses as stored on session_attendees rows.
const (
	rawStatusGoing      = "going"
	rawStatusDeclined   = "declined"
	rawStatusInterested = "interested"
)

// Classify derives a ParticipationRecord from a raw attendance row.
// Returns false when the row contributes nothing, which happens for
// sessions that have not finished yet and carry no attendance evidence.
//
// Status rules, first match wins:
//   - checked in or an attendance timestamp present: attended
//   - declined: cancelled
//   - interested: excused
//   - going and the session already ended without a check-in: no_show
func Classify(row AttendanceRow, userID string, now time.Time) (ParticipationRecord, bool) {
	record := ParticipationRecord{
		SessionID: row.SessionID,
		StartsAt:  row.StartsAt,
		Hosted:    row.HostID != "" && row.HostID == userID,
	}

	switch {
	case row.CheckedIn || row.AttendedAt != nil:
		record.Status = StatusAttended
		record.Punctuality = classifyPunctuality(row)
	case row.Status == rawStatusDeclined:
		record.Status = StatusCancelled
	case row.Status == rawStatusInterested:
		record.Status = StatusExcused
	case row.Status == rawStatusGoing && !row.EndsAt.IsZero() && row.EndsAt.Before(now):
		record.Status = StatusNoShow
	default:
		return ParticipationRecord{}, false
	}

	return record, true
}

// classifyPunctuality determines whether an attended session was joined on
// time. An attendance timestamp no later than the scheduled start plus the
// grace period is on time; a bare checked-in flag with no timestamp is
// treated as on time.
func classifyPunctuality(row AttendanceRow) string {
	if row.AttendedAt == nil {
		return PunctualityOnTime
	}
	if row.AttendedAt.After(row.StartsAt.Add(PunctualityGrace)) {
		return PunctualityLate
	}
	return PunctualityOnTime
}

// BuildWindows classifies every attendance row and accumulates the three
// counter windows, bucketing each record by its session start time relative
// to now. It also tracks the most recent event across all records and the
// number of deduplicated safe host events, which are sessions the user
// hosted that ended within the 90-day window.
func BuildWindows(rows []AttendanceRow, userID string, now time.Time) (Windows, *time.Time, int) {
	cutoff30 := now.AddDate(0, 0, -ShortWindowDays)
	cutoff90 := now.AddDate(0, 0, -ReviewWindowDays)

	var windows Windows
	var lastEventAt *time.Time
	hostEvents := make(map[string]struct{})

	for _, row := range rows {
		record, ok := Classify(row, userID, now)
		if !ok {
			continue
		}

		applyRecord(&windows.Lifetime, record)
		if !record.StartsAt.After(now) {
			if !record.StartsAt.Before(cutoff90) {
				applyRecord(&windows.Window90, record)
			}
			if !record.StartsAt.Before(cutoff30) {
				applyRecord(&windows.Window30, record)
			}
		}

		if lastEventAt == nil || record.StartsAt.After(*lastEventAt) {
			start := record.StartsAt
			lastEventAt = &start
		}

		if record.Hosted && !row.EndsAt.IsZero() && row.EndsAt.Before(now) &&
			!record.StartsAt.Before(cutoff90) {
			hostEvents[record.SessionID+":host"] = struct{}{}
		}
	}

	return windows, lastEventAt, len(hostEvents)
}

// applyRecord increments the counter fields affected by one record and
// keeps the counter's most recent event timestamp current.
func applyRecord(c *Counter, record ParticipationRecord) {
	switch record.Status {
	case StatusAttended:
		c.Attended++
		if record.Punctuality == PunctualityLate {
			c.Late++
		} else {
			c.OnTime++
		}
	case StatusNoShow:
		c.NoShows++
	case StatusCancelled:
		c.LateCancels++
	case StatusExcused:
		c.Excused++
	}

	if c.LastEventAt == nil || record.StartsAt.After(*c.LastEventAt) {
		start := record.StartsAt
		c.LastEventAt = &start
	}
}
