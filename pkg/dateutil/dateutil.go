package dateutil

import (
	"fmt"
	"time"
)

// MonthKey returns the partition key for a timestamp, e.g. "2025-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// DayKey returns the calendar-day key for a timestamp, e.g. "2025-08-25".
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DayBounds returns the start of the given calendar day and the start of
// the next day in the day's location. Records belong to a day when
// start <= ts < end.
func DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.AddDate(0, 0, 1)
}

// MonthsInRange lists the partition keys covering [start, end] in
// chronological order. Returns nil if end is before start.
func MonthsInRange(start, end time.Time) []string {
	if end.Before(start) {
		return nil
	}

	var keys []string
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	for !cur.After(last) {
		keys = append(keys, MonthKey(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}

// DaysInRange lists each calendar day start in [start, end].
func DaysInRange(start, end time.Time) []time.Time {
	var days []time.Time
	cur, _ := DayBounds(start)
	last, _ := DayBounds(end)
	for !cur.After(last) {
		days = append(days, cur)
		cur = cur.AddDate(0, 0, 1)
	}
	return days
}

// HourLabel formats an hour of day (0-23) the way the dashboard displays
// it: "12 AM", "9 AM", "12 PM", "2 PM".
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}
