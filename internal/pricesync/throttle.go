package pricesync

import "time"

// Throttle suppresses repeat notifications to the same recipient within Window.
type Throttle struct {
	Window time.Duration
}

// Allow reports whether a notification may be sent at now given the time of
// the last one, nil when never notified.
func (t Throttle) Allow(last *time.Time, now time.Time) bool {
	return last == nil || !now.Before(last.Add(t.Window))
}

// NextAllowed is the earliest time Allow returns true.
func (t Throttle) NextAllowed(last *time.Time, now time.Time) time.Time {
	if t.Allow(last, now) {
		return now
	}
	return last.Add(t.Window)
}
