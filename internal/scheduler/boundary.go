// Package scheduler drives the strategy loop: a wall-clock poll that fires
// evaluation cycles when timeframe bars close.
package scheduler

import (
	"time"

	"mtf-trader/internal/models"
)

// Clock abstracts wall-clock time so boundary logic is testable with a
// synthetic clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// BoundaryTracker decides, per timeframe, whether the current tick is the
// first one past a fresh bar close. State is instance-owned so independent
// trackers never interfere.
//
// A boundary fires at most once: the unit (hour or minute) is recorded the
// moment it is reported due, so a later tick inside the same unit stays
// quiet even if the cycle it triggered failed.
type BoundaryTracker struct {
	lastFired map[models.Timeframe]int
}

// NewBoundaryTracker creates a tracker with no boundaries consumed.
func NewBoundaryTracker() *BoundaryTracker {
	return &BoundaryTracker{lastFired: make(map[models.Timeframe]int)}
}

// Fire reports whether tf's bar-close boundary is due at now, consuming the
// boundary when it is. The H4 and H1 checks wait for minute one so the feed
// has finished sealing the closing bar; M15 fires on the quarter-hour minute
// itself.
func (b *BoundaryTracker) Fire(tf models.Timeframe, now time.Time) bool {
	switch tf {
	case models.TimeframeH4:
		if now.Hour()%4 == 0 && now.Minute() >= 1 && b.take(tf, now.Hour()) {
			return true
		}
	case models.TimeframeH1:
		if now.Minute() >= 1 && b.take(tf, now.Hour()) {
			return true
		}
	case models.TimeframeM15:
		if now.Minute()%15 == 0 && b.take(tf, now.Minute()) {
			return true
		}
	}
	return false
}

// take consumes the boundary for unit, reporting whether it was fresh.
func (b *BoundaryTracker) take(tf models.Timeframe, unit int) bool {
	last, seen := b.lastFired[tf]
	if seen && last == unit {
		return false
	}
	b.lastFired[tf] = unit
	return true
}
