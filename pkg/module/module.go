// Package module defines the hooks the scheduler consults around every
// timer, and the combinators used to run several of them as one.
package module

import "log/slog"

// Progress tells the scheduler how to proceed after a hook.
type Progress int

const (
	// Continue proceeds normally.
	Continue Progress = iota
	// Abort skips this timer and freezes the chain until the next reset.
	Abort
	// Reset aborts and immediately rewinds the chain to its start.
	Reset
	// Stop terminates the scheduler.
	Stop
)

func (p Progress) String() string {
	switch p {
	case Continue:
		return "continue"
	case Abort:
		return "abort"
	case Reset:
		return "reset"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// TimerInfo identifies the timer a hook is called for.
type TimerInfo struct {
	Index  int
	Length int
}

// Module is a precondition/postcondition hook attached to the whole chain.
type Module interface {
	PreTimer(info TimerInfo) (Progress, error)
	PostTimer(info TimerInfo) (Progress, error)
	// Warning receives every error a hook or reset produced. Returning nil
	// swallows it; returning an error makes it fatal.
	Warning(err error) error
	Reset() error
}

// Base implements Module with no behavior. Embed it to override only some
// hooks.
type Base struct{}

// PreTimer implements Module.
func (Base) PreTimer(TimerInfo) (Progress, error) { return Continue, nil }

// PostTimer implements Module.
func (Base) PostTimer(TimerInfo) (Progress, error) { return Continue, nil }

// Warning implements Module.
func (Base) Warning(error) error { return nil }

// Reset implements Module.
func (Base) Reset() error { return nil }

// defaultModule logs warnings and otherwise does nothing.
type defaultModule struct {
	Base
	logger *slog.Logger
}

// Default returns the module every scheduler starts with: it logs warnings
// and swallows them.
func Default(logger *slog.Logger) Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultModule{logger: logger}
}

func (d *defaultModule) Warning(err error) error {
	d.logger.Warn("module warning", "error", err)
	return nil
}
