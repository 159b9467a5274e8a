package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateOf returns the calendar date of t as observed in loc, as midnight UTC.
// Dates produced this way compare with Equal and are safe as map keys.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD. An empty string yields the zero time.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// ParseClock parses HH:MM into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", value, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// SinceMidnight is the wall-clock offset of t in its own location.
func SinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// InDateRange reports whether date lies in [start, end]; zero bounds are open.
func InDateRange(date, start, end time.Time) bool {
	if !start.IsZero() && date.Before(start) {
		return false
	}
	if !end.IsZero() && date.After(end) {
		return false
	}
	return true
}
