package reliability

import (
	"testing"
	"time"
)

var classifyNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time {
	return &t
}

func endedSession(startOffset time.Duration) (time.Time, time.Time) {
	start := classifyNow.Add(startOffset)
	return start, start.Add(2 * time.Hour)
}

func TestClassify(t *testing.T) {
	pastStart, pastEnd := endedSession(-24 * time.Hour)
	futureStart := classifyNow.Add(24 * time.Hour)

	tests := []struct {
		name            string
		row             AttendanceRow
		wantOK          bool
		wantStatus      string
		wantPunctuality string
	}{
		{
			name: "checked in counts as attended on time",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing, CheckedIn: true,
				StartsAt: pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusAttended, wantPunctuality: PunctualityOnTime,
		},
		{
			name: "attended timestamp within grace is on time",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing,
				AttendedAt: timePtr(pastStart.Add(5 * time.Minute)),
				StartsAt:   pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusAttended, wantPunctuality: PunctualityOnTime,
		},
		{
			name: "early arrival is on time",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing,
				AttendedAt: timePtr(pastStart.Add(-20 * time.Minute)),
				StartsAt:   pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusAttended, wantPunctuality: PunctualityOnTime,
		},
		{
			name: "attended timestamp past grace is late",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing,
				AttendedAt: timePtr(pastStart.Add(11 * time.Minute)),
				StartsAt:   pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusAttended, wantPunctuality: PunctualityLate,
		},
		{
			name: "declined is cancelled",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusDeclined,
				StartsAt: futureStart, EndsAt: futureStart.Add(2 * time.Hour),
			},
			wantOK: true, wantStatus: StatusCancelled,
		},
		{
			name: "interested is excused",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusInterested,
				StartsAt: pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusExcused,
		},
		{
			name: "going with ended session and no check-in is no-show",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing,
				StartsAt: pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusNoShow,
		},
		{
			name: "going with session still in the future contributes nothing",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusGoing,
				StartsAt: futureStart, EndsAt: futureStart.Add(2 * time.Hour),
			},
			wantOK: false,
		},
		{
			name: "check-in wins over declined status",
			row: AttendanceRow{
				SessionID: "s1", Status: rawStatusDeclined, CheckedIn: true,
				StartsAt: pastStart, EndsAt: pastEnd,
			},
			wantOK: true, wantStatus: StatusAttended, wantPunctuality: PunctualityOnTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := Classify(tt.row, "u1", classifyNow)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if record.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", record.Status, tt.wantStatus)
			}
			if tt.wantPunctuality != "" && record.Punctuality != tt.wantPunctuality {
				t.Errorf("punctuality = %q, want %q", record.Punctuality, tt.wantPunctuality)
			}
		})
	}
}

func TestClassifyHosted(t *testing.T) {
	start, end := endedSession(-24 * time.Hour)
	row := AttendanceRow{
		SessionID: "s1", Status: rawStatusGoing, CheckedIn: true,
		StartsAt: start, EndsAt: end, HostID: "u1",
	}

	record, ok := Classify(row, "u1", classifyNow)
	if !ok || !record.Hosted {
		t.Errorf("hosted session not flagged: ok=%v record=%+v", ok, record)
	}

	record, ok = Classify(row, "u2", classifyNow)
	if !ok || record.Hosted {
		t.Errorf("non-host flagged as hosted: ok=%v record=%+v", ok, record)
	}
}

func TestBuildWindowsBucketing(t *testing.T) {
	rows := []AttendanceRow{
		// 10 days ago: lands in all three windows.
		attendedRow("recent", -10),
		// 60 days ago: 90d and lifetime only.
		attendedRow("mid", -60),
		// 200 days ago: lifetime only.
		attendedRow("old", -200),
	}

	windows, lastEventAt, _ := BuildWindows(rows, "u1", classifyNow)

	if windows.Window30.Attended != 1 {
		t.Errorf("30d attended = %d, want 1", windows.Window30.Attended)
	}
	if windows.Window90.Attended != 2 {
		t.Errorf("90d attended = %d, want 2", windows.Window90.Attended)
	}
	if windows.Lifetime.Attended != 3 {
		t.Errorf("lifetime attended = %d, want 3", windows.Lifetime.Attended)
	}

	wantLast := classifyNow.AddDate(0, 0, -10)
	if lastEventAt == nil || !lastEventAt.Equal(wantLast) {
		t.Errorf("lastEventAt = %v, want %v", lastEventAt, wantLast)
	}
}

func TestBuildWindowsNoShowNeverCountsAttended(t *testing.T) {
	start, end := endedSession(-24 * time.Hour)
	rows := []AttendanceRow{{
		SessionID: "s1", Status: rawStatusGoing,
		StartsAt: start, EndsAt: end,
	}}

	windows, _, _ := BuildWindows(rows, "u1", classifyNow)

	for _, c := range []Counter{windows.Window30, windows.Window90, windows.Lifetime} {
		if c.NoShows != 1 {
			t.Errorf("no_shows = %d, want 1", c.NoShows)
		}
		if c.Attended != 0 {
			t.Errorf("attended = %d, want 0", c.Attended)
		}
	}
}

func TestBuildWindowsEmpty(t *testing.T) {
	windows, lastEventAt, safeHostEvents := BuildWindows(nil, "u1", classifyNow)

	if windows != (Windows{}) {
		t.Errorf("windows = %+v, want all zero", windows)
	}
	if lastEventAt != nil {
		t.Errorf("lastEventAt = %v, want nil", lastEventAt)
	}
	if safeHostEvents != 0 {
		t.Errorf("safeHostEvents = %d, want 0", safeHostEvents)
	}
}

func TestBuildWindowsSafeHostEventsDeduplicated(t *testing.T) {
	start, end := endedSession(-48 * time.Hour)
	hosted := AttendanceRow{
		SessionID: "s1", Status: rawStatusGoing, CheckedIn: true,
		StartsAt: start, EndsAt: end, HostID: "u1",
	}

	// The same hosted session appearing twice must count once.
	_, _, safeHostEvents := BuildWindows([]AttendanceRow{hosted, hosted}, "u1", classifyNow)
	if safeHostEvents != 1 {
		t.Errorf("safeHostEvents = %d, want 1", safeHostEvents)
	}
}

func TestBuildWindowsSafeHostEventsWindowed(t *testing.T) {
	rows := []AttendanceRow{
		hostedRow("recent", -10),
		hostedRow("stale", -120), // outside the 90-day window
	}

	_, _, safeHostEvents := BuildWindows(rows, "u1", classifyNow)
	if safeHostEvents != 1 {
		t.Errorf("safeHostEvents = %d, want 1", safeHostEvents)
	}
}

func attendedRow(sessionID string, daysAgo int) AttendanceRow {
	start := classifyNow.AddDate(0, 0, daysAgo)
	return AttendanceRow{
		SessionID: sessionID,
		Status:    rawStatusGoing,
		CheckedIn: true,
		StartsAt:  start,
		EndsAt:    start.Add(2 * time.Hour),
	}
}

func hostedRow(sessionID string, daysAgo int) AttendanceRow {
	row := attendedRow(sessionID, daysAgo)
	row.HostID = "u1"
	return row
}
