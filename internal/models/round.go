package models

import (
	"fmt"
	"math"
	"time"
)

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundMinutes converts a duration to minutes with two decimals.
func RoundMinutes(d time.Duration) float64 {
	return Round2(d.Minutes())
}

func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
