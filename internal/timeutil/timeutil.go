// ABOUTME: Time formatting helpers for feed display
// ABOUTME: Renders request ages relative to now, falling back to dates for older items

package timeutil

import (
	"fmt"
	"time"
)

// Ago describes t relative to now, e.g. "just now", "5m ago", "yesterday".
// Anything older than a week is shown as a date.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < 0:
		return "just now"
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	}

	days := daysBetween(t, now)
	switch {
	case days <= 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	case t.Year() == now.Year():
		return t.Format("Jan 2")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from t to now in now's location.
func daysBetween(t, now time.Time) int {
	a := StartOfDay(t.In(now.Location()))
	b := StartOfDay(now)
	return int(b.Sub(a).Hours()/24 + 0.5)
}
