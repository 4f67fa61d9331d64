package domain

import "time"

// Period is an inclusive range of calendar days. End is the last day of the
// range; any instant on that day is inside the period.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthOf returns [first day, last day] of the calendar month containing t.
func MonthOf(t time.Time) Period {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: first, End: first.AddDate(0, 1, -1)}
}

// NewPeriod normalizes both ends to whole days.
func NewPeriod(start, end time.Time) Period {
	return Period{Start: Day(start), End: Day(end)}
}

// Until is the exclusive upper bound of the period (midnight after End).
func (p Period) Until() time.Time {
	return Day(p.End).AddDate(0, 0, 1)
}

// Contains reports whether t falls on one of the period's days.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(Day(p.Start)) && t.Before(p.Until())
}

// Overlaps reports whether two day ranges share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !Day(p.Start).After(Day(o.End)) && !Day(p.End).Before(Day(o.Start))
}
