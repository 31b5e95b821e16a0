// Package utils holds duration formatting shared by the terminal and web views.
package utils

import (
	"fmt"
	"time"
)

// FormatRoundedUnit renders a duration in seconds as its largest whole unit:
// 45s, 12m or 3h.
func FormatRoundedUnit(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds > 3600:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dm", seconds/60)
	}
}

// FormatClock renders d as HH:MM:SS, truncated to the second. Negative
// durations keep their sign.
func FormatClock(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, total/3600, (total%3600)/60, total%60)
}
