// Package calendar computes the chapter generation windows. All math happens
// in a fixed UTC+9 offset so results do not depend on the host timezone, and
// every function takes the reference instant as an argument.
package calendar

import (
	"fmt"
	"time"
)

// JST is the fixed UTC+9 offset all windows are expressed in.
var JST = time.FixedZone("JST", 9*60*60)

// WeekRange is the most recently completed Monday-to-Sunday week.
type WeekRange struct {
	Start       time.Time // Monday 00:00 JST
	End         time.Time // Sunday 00:00 JST (inclusive day)
	StartKey    string
	EndKey      string
	WeekOfMonth int
}

// MonthRange is the most recently completed calendar month.
type MonthRange struct {
	Start        time.Time // 1st of the previous month, 00:00 JST
	NextStart    time.Time // 1st of the current month, 00:00 JST
	StartKey     string
	NextStartKey string
	Label        string // e.g. "2024年5月"
}

// DateKey formats an instant as the YYYY-MM-DD key used for both display and
// deduplication.
func DateKey(t time.Time) string {
	return t.In(JST).Format("2006-01-02")
}

// LastWeek returns the completed week preceding the one containing now.
func LastWeek(now time.Time) WeekRange {
	n := now.In(JST)

	// 0=Sunday in time.Weekday; shift so Monday is the week start.
	diffToMonday := (int(n.Weekday()) + 6) % 7
	thisMonday := time.Date(n.Year(), n.Month(), n.Day()-diffToMonday, 0, 0, 0, 0, JST)

	lastMonday := thisMonday.AddDate(0, 0, -7)
	lastSunday := lastMonday.AddDate(0, 0, 6)

	return WeekRange{
		Start:       lastMonday,
		End:         lastSunday,
		StartKey:    DateKey(lastMonday),
		EndKey:      DateKey(lastSunday),
		WeekOfMonth: WeekOfMonth(lastMonday),
	}
}

// WeekOfMonth returns the 1-based index of the Monday-anchored week containing
// d within its month.
func WeekOfMonth(d time.Time) int {
	n := d.In(JST)
	first := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, JST)
	offset := (int(first.Weekday()) + 6) % 7
	return (n.Day()+offset-1)/7 + 1
}

// LastMonth returns the completed month preceding the one containing now.
func LastMonth(now time.Time) MonthRange {
	n := now.In(JST)

	thisStart := time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, JST)
	lastStart := thisStart.AddDate(0, -1, 0)

	return MonthRange{
		Start:        lastStart,
		NextStart:    thisStart,
		StartKey:     DateKey(lastStart),
		NextStartKey: DateKey(thisStart),
		Label:        fmt.Sprintf("%d年%d月", lastStart.Year(), int(lastStart.Month())),
	}
}
