// Package timewindow holds calendar-day predicates. Days are evaluated in the
// location of the reference time; zero times never match.
package timewindow

import "time"

const (
	dateKeyLayout = "2006-01-02"
	labelLayout   = "1/2/2006"
)

// StartOfDay returns local midnight of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in b's location.
func SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsToday reports whether t falls on now's calendar day.
func IsToday(t, now time.Time) bool {
	return SameDay(t, now)
}

// IsYesterday reports whether t falls on the calendar day before now.
func IsYesterday(t, now time.Time) bool {
	return SameDay(t, now.AddDate(0, 0, -1))
}

// IsInRange reports start <= t <= end.
func IsInRange(t, start, end time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(start) && !t.After(end)
}

// DaysAgo returns now shifted back n calendar days, keeping the time of day.
func DaysAgo(now time.Time, n int) time.Time {
	return now.AddDate(0, 0, -n)
}

// DateKey formats t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// Label formats t as M/D/YYYY.
func Label(t time.Time) string {
	return t.Format(labelLayout)
}
