package tracker

import (
	"fmt"
	"sync"
	"time"

	"focuslog/pkg/utils"
)

// BreakTimer counts down from a break interval. It never resets itself: once
// due it stays due until Reset.
type BreakTimer struct {
	mu       sync.Mutex
	interval time.Duration
	min      time.Duration
	start    time.Time
	notified bool
}

// NewBreakTimer arms a timer at now.
func NewBreakTimer(interval, min time.Duration, now time.Time) *BreakTimer {
	return &BreakTimer{interval: interval, min: min, start: now}
}

// Remaining is interval - (now - start); negative once the break is overdue.
func (b *BreakTimer) Remaining(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingLocked(now)
}

func (b *BreakTimer) remainingLocked(now time.Time) time.Duration {
	return b.interval - now.Sub(b.start)
}

// Due reports whether the break interval has elapsed.
func (b *BreakTimer) Due(now time.Time) bool {
	return b.Remaining(now) < 0
}

// Reset restarts the countdown at now.
func (b *BreakTimer) Reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = now
	b.notified = false
}

// SetInterval changes the interval and restarts the countdown at now.
func (b *BreakTimer) SetInterval(interval time.Duration, now time.Time) error {
	if interval < b.min {
		return fmt.Errorf("break interval cannot be less than %v", b.min)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.interval = interval
	b.start = now
	b.notified = false
	return nil
}

// Interval returns the configured interval.
func (b *BreakTimer) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

// Display renders the countdown as HH:MM:SS.
func (b *BreakTimer) Display(now time.Time) string {
	return utils.FormatClock(b.Remaining(now))
}

// takeDue reports true once per due episode.
func (b *BreakTimer) takeDue(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notified || b.remainingLocked(now) >= 0 {
		return false
	}
	b.notified = true
	return true
}
