package timer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/idlehook/pkg/process"
)

// EnvPID names the variable through which abortion and deactivation
// commands learn the pid of the activation command.
const EnvPID = "IDLEHOOK_PID"

// abortUrgency is how soon a timer with an abortion command wants to be
// polled after it fired.
const abortUrgency = time.Second

// Definition is the user-visible description of a CmdTimer.
type Definition struct {
	Duration     time.Duration
	Activation   []string
	Abortion     []string
	Deactivation []string
	Disabled     bool
}

// CmdTimer runs external commands. An empty argv means no command.
type CmdTimer struct {
	duration     time.Duration
	activation   []string
	abortion     []string
	deactivation []string
	disabled     bool

	spawner process.Spawner
	child   process.Child
	pidEnv  []string
}

// Ensure CmdTimer implements Timer
var _ Timer = (*CmdTimer)(nil)

// NewCmdTimer creates a timer from argv slices.
func NewCmdTimer(spawner process.Spawner, d time.Duration, activation, abortion, deactivation []string) *CmdTimer {
	return &CmdTimer{
		duration:     d,
		activation:   clone(activation),
		abortion:     clone(abortion),
		deactivation: clone(deactivation),
		spawner:      spawner,
	}
}

// NewShellTimer creates a timer whose non-empty commands run through
// /bin/sh -c.
func NewShellTimer(spawner process.Spawner, d time.Duration, activation, abortion, deactivation string) *CmdTimer {
	return NewCmdTimer(spawner, d, Shell(activation), Shell(abortion), Shell(deactivation))
}

// Shell wraps a command line for /bin/sh, or returns nil for an empty one.
func Shell(command string) []string {
	if command == "" {
		return nil
	}
	return []string{"/bin/sh", "-c", command}
}

func clone(argv []string) []string {
	if len(argv) == 0 {
		return nil
	}
	return append([]string(nil), argv...)
}

// TimeLeft implements Timer.
func (c *CmdTimer) TimeLeft(relative time.Duration) (Remaining, error) {
	return Until(c.duration, relative), nil
}

// AbortUrgency implements Timer.
func (c *CmdTimer) AbortUrgency() (time.Duration, bool) {
	if len(c.abortion) == 0 {
		return 0, false
	}
	return abortUrgency, true
}

// Activate implements Timer.
func (c *CmdTimer) Activate() error {
	if len(c.activation) == 0 {
		return nil
	}

	child, err := c.spawner.Spawn(c.activation, nil)
	if err != nil {
		return fmt.Errorf("activation: %w", err)
	}
	c.child = child
	c.pidEnv = []string{EnvPID + "=" + strconv.Itoa(child.Pid())}
	return nil
}

// Abort implements Timer.
func (c *CmdTimer) Abort() error {
	if len(c.abortion) == 0 {
		return nil
	}
	if _, err := c.spawner.Spawn(c.abortion, c.pidEnv); err != nil {
		return fmt.Errorf("abortion: %w", err)
	}
	return nil
}

// Deactivate implements Timer.
func (c *CmdTimer) Deactivate() error {
	if len(c.deactivation) == 0 {
		return nil
	}
	if _, err := c.spawner.Spawn(c.deactivation, c.pidEnv); err != nil {
		return fmt.Errorf("deactivation: %w", err)
	}
	return nil
}

// Disabled implements Timer. A timer whose activation command is still
// running counts as disabled so it is not started twice.
func (c *CmdTimer) Disabled() bool {
	if c.child != nil && c.child.Running() {
		return true
	}
	return c.disabled
}

// SetDisabled toggles the configured enable state.
func (c *CmdTimer) SetDisabled(disabled bool) {
	c.disabled = disabled
}

// Definition returns a copy of the timer's configuration. Disabled is the
// configured flag, not the running-child state.
func (c *CmdTimer) Definition() Definition {
	return Definition{
		Duration:     c.duration,
		Activation:   clone(c.activation),
		Abortion:     clone(c.abortion),
		Deactivation: clone(c.deactivation),
		Disabled:     c.disabled,
	}
}
