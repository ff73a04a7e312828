package util

import (
	"fmt"
	"strconv"
	"time"
)

// DayLayout is the calendar-date wire format used across the API.
const DayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string, RFC3339 timestamp, or unix seconds and
// returns the calendar date it names as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return StartOfDayUTC(t), nil
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return StartOfDayUTC(time.Unix(ts, 0).UTC()), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
}

// StartOfDayUTC keeps t's calendar fields and drops the clock, in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in loc, expressed as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return StartOfDayUTC(now.In(loc))
}

// CompareDay reports -1, 0 or 1 as day a is before, equal to or after day b.
func CompareDay(a, b time.Time) int {
	a, b = StartOfDayUTC(a), StartOfDayUTC(b)
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// DayWindow returns the unix-second bounds used to query one daily bar:
// the day's midnight UTC through the next midnight plus one hour.
func DayWindow(day time.Time) (int64, int64) {
	start := StartOfDayUTC(day).Unix()
	return start, start + 86400 + 3600
}

// FormatDay renders the calendar date of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}
