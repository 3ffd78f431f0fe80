package calendar

import (
	"testing"
	"time"
)

func TestLastWeekAlwaysMondayToSunday(t *testing.T) {
	// Sweep a year of reference instants at odd hours.
	start := time.Date(2024, 1, 1, 3, 17, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		now := start.AddDate(0, 0, i)
		wr := LastWeek(now)

		if wr.Start.Weekday() != time.Monday {
			t.Fatalf("week start %s is %s, want Monday (now=%s)", wr.StartKey, wr.Start.Weekday(), now)
		}
		if wr.End.Weekday() != time.Sunday {
			t.Fatalf("week end %s is %s, want Sunday (now=%s)", wr.EndKey, wr.End.Weekday(), now)
		}
		if got := wr.End.Sub(wr.Start); got != 6*24*time.Hour {
			t.Fatalf("week span = %v, want 6 days (now=%s)", got, now)
		}
	}
}

func TestLastWeekShiftsByExactlySevenDays(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	a := LastWeek(now)
	b := LastWeek(now.AddDate(0, 0, -7))

	if got := a.Start.Sub(b.Start); got != 7*24*time.Hour {
		t.Errorf("weekStart(now) - weekStart(now-7d) = %v, want 168h", got)
	}
}

func TestLastWeekIndependentOfHostZone(t *testing.T) {
	// The same instant expressed in different zones must produce the same window.
	instant := time.Date(2024, 5, 13, 0, 30, 0, 0, JST) // Monday 00:30 JST
	zones := []*time.Location{time.UTC, time.FixedZone("PST", -8*3600), JST}

	want := LastWeek(instant)
	for _, loc := range zones {
		got := LastWeek(instant.In(loc))
		if got.StartKey != want.StartKey || got.EndKey != want.EndKey {
			t.Errorf("zone %v: got [%s, %s], want [%s, %s]",
				loc, got.StartKey, got.EndKey, want.StartKey, want.EndKey)
		}
	}
}

func TestLastWeekKnownWindow(t *testing.T) {
	// 2024-05-15 is a Wednesday; the previous completed week is May 6–12.
	wr := LastWeek(time.Date(2024, 5, 15, 10, 0, 0, 0, JST))

	if wr.StartKey != "2024-05-06" {
		t.Errorf("StartKey = %s, want 2024-05-06", wr.StartKey)
	}
	if wr.EndKey != "2024-05-12" {
		t.Errorf("EndKey = %s, want 2024-05-12", wr.EndKey)
	}
	if wr.WeekOfMonth != 2 {
		t.Errorf("WeekOfMonth = %d, want 2", wr.WeekOfMonth)
	}
}

func TestLastWeekAcrossMonthBoundary(t *testing.T) {
	// Monday 2024-07-01: the previous completed week is June 24–30.
	wr := LastWeek(time.Date(2024, 7, 1, 1, 0, 0, 0, JST))

	if wr.StartKey != "2024-06-24" {
		t.Errorf("StartKey = %s, want 2024-06-24", wr.StartKey)
	}
	if wr.EndKey != "2024-06-30" {
		t.Errorf("EndKey = %s, want 2024-06-30", wr.EndKey)
	}
}

func TestWeekOfMonth(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		// May 2024 starts on a Wednesday.
		{"2024-05-01", 1},
		{"2024-05-05", 1}, // Sunday of the first partial week
		{"2024-05-06", 2}, // first full Monday
		{"2024-05-13", 3},
		{"2024-05-27", 5},
		// July 2024 starts on a Monday.
		{"2024-07-01", 1},
		{"2024-07-08", 2},
		{"2024-07-29", 5},
		// September 2025 starts on a Monday.
		{"2025-09-01", 1},
	}

	for _, tt := range tests {
		d, err := time.ParseInLocation("2006-01-02", tt.date, JST)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.date, err)
		}
		if got := WeekOfMonth(d); got != tt.want {
			t.Errorf("WeekOfMonth(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestWeekOfMonthMonotonicAcrossMondays(t *testing.T) {
	// Walk consecutive Mondays for a year: the index never decreases within a
	// month and resets to 1 when the Monday lands in a new month.
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, JST) // 2024-01-01 is a Monday
	prev := 0
	prevMonth := time.Month(0)

	for i := 0; i < 52; i++ {
		w := WeekOfMonth(monday)
		if monday.Month() == prevMonth {
			if w < prev {
				t.Fatalf("WeekOfMonth decreased within %s: %d -> %d (%s)",
					monday.Month(), prev, w, DateKey(monday))
			}
		} else if prevMonth != 0 && w != 1 {
			t.Fatalf("first Monday of %s has index %d, want 1 (%s)",
				monday.Month(), w, DateKey(monday))
		}
		prev, prevMonth = w, monday.Month()
		monday = monday.AddDate(0, 0, 7)
	}
}

func TestLastMonth(t *testing.T) {
	mr := LastMonth(time.Date(2024, 6, 1, 3, 0, 0, 0, JST))

	if mr.StartKey != "2024-05-01" {
		t.Errorf("StartKey = %s, want 2024-05-01", mr.StartKey)
	}
	if mr.NextStartKey != "2024-06-01" {
		t.Errorf("NextStartKey = %s, want 2024-06-01", mr.NextStartKey)
	}
	if mr.Label != "2024年5月" {
		t.Errorf("Label = %s, want 2024年5月", mr.Label)
	}
}

func TestLastMonthAcrossYearBoundary(t *testing.T) {
	mr := LastMonth(time.Date(2025, 1, 10, 0, 0, 0, 0, JST))

	if mr.StartKey != "2024-12-01" {
		t.Errorf("StartKey = %s, want 2024-12-01", mr.StartKey)
	}
	if mr.NextStartKey != "2025-01-01" {
		t.Errorf("NextStartKey = %s, want 2025-01-01", mr.NextStartKey)
	}
	if mr.Label != "2024年12月" {
		t.Errorf("Label = %s, want 2024年12月", mr.Label)
	}
}

func TestDateKeyUsesJST(t *testing.T) {
	// 23:00 UTC is already the next day in JST.
	if got := DateKey(time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC)); got != "2024-05-07" {
		t.Errorf("DateKey = %s, want 2024-05-07", got)
	}
}
