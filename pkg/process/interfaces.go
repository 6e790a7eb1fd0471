// Package process starts timer commands and reaps them without blocking.
package process

import "errors"

// ErrEmptyCommand is returned when asked to spawn an empty argv.
var ErrEmptyCommand = errors.New("empty command")

// Child is a command started by a Spawner.
type Child interface {
	Pid() int
	// Running reports whether the child has not been reaped yet.
	Running() bool
}

// Spawner starts commands without waiting for them to finish.
type Spawner interface {
	Spawn(argv []string, env []string) (Child, error)
}

// Reaper collects exited children.
type Reaper interface {
	Reap() []Exit
}
