// Package timefmt formats durations for the timer and history views.
package timefmt

import (
	"fmt"
	"math"
	"time"
)

// Clock renders seconds as MM:SS, or H:MM:SS from one hour up.
func Clock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// Since renders an elapsed span as "N hrs MM mins" or "N mins".
func Since(d time.Duration) string {
	totalMinutes := int(d / time.Minute)
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%d %s %02d %s", hours, plural(hours, "hr", "hrs"), minutes, plural(minutes, "min", "mins"))
	}
	return fmt.Sprintf("%d %s", totalMinutes, plural(totalMinutes, "min", "mins"))
}

// Minutes renders seconds as a rounded "X min" label for charts and tables.
func Minutes(seconds int) string {
	return fmt.Sprintf("%d min", int(math.Round(float64(seconds)/60)))
}

// ClockTime renders the local wall time, e.g. "03:45 PM".
func ClockTime(t time.Time) string {
	return t.Format("03:04 PM")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
