package model

import "time"

// Window is the due range of the selection query. A zero From means
// there is no lower bound.
type Window struct {
	From time.Time
	To   time.Time
}

// DueWindow returns the window [now-width, now]. A non-positive width
// produces an unbounded window ending at now.
func DueWindow(now time.Time, width time.Duration) Window {
	if width <= 0 {
		return Window{To: now}
	}

	return Window{From: now.Add(-width), To: now}
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.From.IsZero()
}

// Contains reports whether t falls inside the window, both ends inclusive.
func (w Window) Contains(t time.Time) bool {
	if t.After(w.To) {
		return false
	}

	return !w.Bounded() || !t.Before(w.From)
}
