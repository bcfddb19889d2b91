package voting

import "time"

// DeriveStatus computes the lifecycle status from the event window.
// A persisted closed status is terminal and wins over the clock.
func DeriveStatus(event Event, now time.Time) EventStatus {
	if event.Status == EventStatusClosed {
		return EventStatusClosed
	}
	if !now.Before(event.ClosesAt) {
		return EventStatusClosed
	}
	if !now.Before(event.OpensAt) {
		return EventStatusOpen
	}
	return EventStatusScheduled
}

// IsOpenAt reports whether ballots may be cast at now.
func IsOpenAt(event Event, now time.Time) bool {
	return DeriveStatus(event, now) == EventStatusOpen
}

// NeedsClosing reports whether closing side effects have not run yet for an ended event.
func NeedsClosing(event Event, now time.Time) bool {
	if event.Status == EventStatusClosed {
		return false
	}
	return !now.Before(event.ClosesAt)
}
