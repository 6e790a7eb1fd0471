package timer

import "time"

// CallbackTimer runs an in-process function on activation.
type CallbackTimer struct {
	duration time.Duration
	fn       func()
	disabled bool
}

// Ensure CallbackTimer implements Timer
var _ Timer = (*CallbackTimer)(nil)

// NewCallbackTimer creates a timer that calls fn after d of idle time.
func NewCallbackTimer(d time.Duration, fn func()) *CallbackTimer {
	return &CallbackTimer{duration: d, fn: fn}
}

// TimeLeft implements Timer.
func (c *CallbackTimer) TimeLeft(relative time.Duration) (Remaining, error) {
	return Until(c.duration, relative), nil
}

// AbortUrgency implements Timer. Callbacks have no abortion.
func (c *CallbackTimer) AbortUrgency() (time.Duration, bool) {
	return 0, false
}

// Activate implements Timer.
func (c *CallbackTimer) Activate() error {
	if c.fn != nil {
		c.fn()
	}
	return nil
}

// Abort implements Timer.
func (c *CallbackTimer) Abort() error { return nil }

// Deactivate implements Timer.
func (c *CallbackTimer) Deactivate() error { return nil }

// Disabled implements Timer.
func (c *CallbackTimer) Disabled() bool { return c.disabled }

// SetDisabled toggles the timer.
func (c *CallbackTimer) SetDisabled(disabled bool) { c.disabled = disabled }

// Duration returns the threshold.
func (c *CallbackTimer) Duration() time.Duration { return c.duration }
