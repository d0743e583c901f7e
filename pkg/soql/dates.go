package soql

import (
	"strconv"
	"strings"
	"time"
)

// DateRange resolves a relative date literal to a half-open [start, end)
// interval. Weeks start on Monday. The reference time anchors "now" so
// translation and in-memory evaluation agree within one query execution.
func DateRange(literal string, now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// LAST_N_DAYS includes today; NEXT_N_DAYS starts tomorrow
	if n, ok := countedDays(literal, "LAST_N_DAYS:"); ok {
		return day.AddDate(0, 0, -n), day.AddDate(0, 0, 1), true
	}
	if n, ok := countedDays(literal, "NEXT_N_DAYS:"); ok {
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, n+1), true
	}

	switch literal {
	case "TODAY":
		return day, day.AddDate(0, 0, 1), true
	case "YESTERDAY":
		return day.AddDate(0, 0, -1), day, true
	case "TOMORROW":
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), true
	case "THIS_WEEK":
		start := startOfWeek(day)
		return start, start.AddDate(0, 0, 7), true
	case "LAST_WEEK":
		start := startOfWeek(day).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7), true
	case "NEXT_WEEK":
		start := startOfWeek(day).AddDate(0, 0, 7)
		return start, start.AddDate(0, 0, 7), true
	case "THIS_MONTH":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(0, 1, 0), true
	case "LAST_MONTH":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, -1, 0)
		return start, start.AddDate(0, 1, 0), true
	case "NEXT_MONTH":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location()).AddDate(0, 1, 0)
		return start, start.AddDate(0, 1, 0), true
	case "THIS_YEAR":
		start := time.Date(day.Year(), 1, 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(1, 0, 0), true
	case "LAST_YEAR":
		start := time.Date(day.Year()-1, 1, 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(1, 0, 0), true
	case "NEXT_YEAR":
		start := time.Date(day.Year()+1, 1, 1, 0, 0, 0, 0, day.Location())
		return start, start.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

func countedDays(literal, prefix string) (int, bool) {
	if !strings.HasPrefix(literal, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(literal[len(prefix):])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func startOfWeek(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
