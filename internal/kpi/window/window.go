package window

import "time"

// Window is a half-open UTC time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Today spans midnight UTC to now.
func Today(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: now}
}

// ISOWeek spans the most recent Monday midnight UTC to now.
func ISOWeek(now time.Time) Window {
	now = now.UTC()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(weekday - 1))
	return Window{Start: start, End: now}
}

// PriorISOWeek is the same elapsed span of the previous ISO week, so a
// partial current week compares against an equally partial prior week.
func PriorISOWeek(now time.Time) Window {
	current := ISOWeek(now)
	return Window{
		Start: current.Start.AddDate(0, 0, -7),
		End:   current.End.AddDate(0, 0, -7),
	}
}

// MonthToDate spans the first of the month midnight UTC to now.
func MonthToDate(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: now}
}

// PriorMonthEquivalent is the same date range in the previous month, with
// the end day clamped to that month's length (Mar 30 MTD compares against
// Feb 1 .. Feb 28/29).
func PriorMonthEquivalent(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	day := now.Day()
	if last := daysInMonth(start); day > last {
		day = last
	}
	end := time.Date(start.Year(), start.Month(), day,
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	return Window{Start: start, End: end}
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
