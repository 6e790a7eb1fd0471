// Package interfaces defines the small collaborator interfaces shared by
// the daemon's packages.
package interfaces

import "time"

// IdleSource reports how long the user has been idle. Readings may go down
// at any time, which means the user was active.
type IdleSource interface {
	Idle() (time.Duration, error)
}

// FullscreenChecker reports whether the focused window is fullscreen.
type FullscreenChecker interface {
	Fullscreen() (bool, error)
}

// PlaybackCounter reports how many media players are currently playing.
type PlaybackCounter interface {
	Playing() int64
}
