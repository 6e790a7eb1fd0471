// Package timer defines the entries of an idle chain and the two stock
// implementations: external commands and in-process callbacks.
package timer

import "time"

// Remaining is the result of asking a timer how long is left. It is either
// Pending with a strictly positive duration, or Due.
type Remaining struct {
	left time.Duration
	due  bool
}

// Pending returns a remaining time of d. A non-positive d is Due.
func Pending(d time.Duration) Remaining {
	if d <= 0 {
		return Due()
	}
	return Remaining{left: d}
}

// Due returns the remaining time of a timer that should fire now.
func Due() Remaining {
	return Remaining{due: true}
}

// Until computes the remaining time of a threshold after idle has elapsed.
// Reaching the threshold exactly counts as due.
func Until(threshold, idle time.Duration) Remaining {
	return Pending(threshold - idle)
}

// IsDue reports whether the timer should fire now.
func (r Remaining) IsDue() bool {
	return r.due
}

// Left returns the pending duration and true, or zero and false when due.
func (r Remaining) Left() (time.Duration, bool) {
	if r.due {
		return 0, false
	}
	return r.left, true
}

func (r Remaining) String() string {
	if r.due {
		return "due"
	}
	return r.left.String()
}

// Timer is a single entry of the chain.
type Timer interface {
	// TimeLeft returns how long until the timer is due, given the idle
	// time since the previous timer fired.
	TimeLeft(relative time.Duration) (Remaining, error)
	// AbortUrgency returns how soon the scheduler has to check again after
	// this timer fired, so that its abortion runs promptly. The boolean is
	// false when any delay is acceptable.
	AbortUrgency() (time.Duration, bool)

	Activate() error
	Abort() error
	Deactivate() error

	// Disabled reports the live enable state.
	Disabled() bool
}
