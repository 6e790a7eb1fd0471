// Package daemon runs the event loop that owns the scheduler.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/process"
	"github.com/Veraticus/idlehook/pkg/protocol"
	"github.com/Veraticus/idlehook/pkg/scheduler"
	"github.com/Veraticus/idlehook/pkg/signals"
	"github.com/Veraticus/idlehook/pkg/socket"
	"github.com/Veraticus/idlehook/pkg/timer"
)

// sleepOverrun is how much longer than asked a sleep must take before the
// machine is assumed to have been suspended.
const sleepOverrun = 3 * time.Second

// Loop is the only goroutine that touches the scheduler. It sleeps for as
// long as the scheduler allows and wakes early for requests, signals and
// resume events.
type Loop struct {
	sched   *scheduler.Scheduler[*timer.CmdTimer]
	idle    interfaces.IdleSource
	handler *protocol.Handler

	reaper      process.Reaper
	requests    <-chan socket.Request
	signals     <-chan signals.Event
	wake        <-chan struct{}
	detectSleep bool
	logger      *slog.Logger

	// now reads the wall clock, which keeps running while suspended.
	now func() time.Time
}

// Option configures a Loop.
type Option func(*Loop)

// WithReaper collects exited children at every iteration.
func WithReaper(r process.Reaper) Option {
	return func(l *Loop) { l.reaper = r }
}

// WithRequests serves control requests from ch.
func WithRequests(ch <-chan socket.Request) Option {
	return func(l *Loop) { l.requests = ch }
}

// WithSignals reacts to signal events from ch.
func WithSignals(ch <-chan signals.Event) Option {
	return func(l *Loop) { l.signals = ch }
}

// WithWake resets the chain whenever ch delivers, e.g. after a resume.
func WithWake(ch <-chan struct{}) Option {
	return func(l *Loop) { l.wake = ch }
}

// WithDetectSleep resets the chain when a sleep overran, which happens
// when the machine was suspended in between.
func WithDetectSleep(enabled bool) Option {
	return func(l *Loop) { l.detectSleep = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) { l.logger = logger }
}

// New creates a loop. The handler must wrap the same scheduler.
func New(sched *scheduler.Scheduler[*timer.CmdTimer], idle interfaces.IdleSource, handler *protocol.Handler, opts ...Option) *Loop {
	l := &Loop{
		sched:   sched,
		idle:    idle,
		handler: handler,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().Round(0) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run polls until the scheduler quits, a terminate signal arrives, a
// triggered timer stops the scheduler or ctx is canceled; all of these
// return nil. Failing to read the idle time and fatal scheduler errors
// are returned.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.reap()

		idle, err := l.readIdle()
		if err != nil {
			return err
		}

		action, err := l.sched.Poll(idle)
		if err != nil {
			return fmt.Errorf("scheduler failed: %w", err)
		}
		l.logger.Debug("polled", "idle", idle, "action", action)

		var (
			sleep  *time.Timer
			expiry <-chan time.Time
			start  time.Time
		)
		switch action.Kind {
		case scheduler.Quit:
			l.logger.Info("scheduler finished")
			return nil
		case scheduler.Forever:
			l.logger.Debug("nothing to do until the chain changes")
		case scheduler.Sleep:
			sleep = time.NewTimer(action.Sleep)
			expiry = sleep.C
			start = l.now()
		}

		done, err := l.wait(ctx, expiry, start, action.Sleep)
		if sleep != nil {
			sleep.Stop()
		}
		if done || err != nil {
			return err
		}
	}
}

// wait blocks until one event arrived and handles it. It reports whether
// the loop has to end.
func (l *Loop) wait(ctx context.Context, expiry <-chan time.Time, start time.Time, delay time.Duration) (bool, error) {
	select {
	case <-ctx.Done():
		return true, nil

	case <-expiry:
		if !l.detectSleep {
			return false, nil
		}
		if over := l.now().Sub(start) - delay; over >= sleepOverrun {
			l.logger.Info("slept longer than expected, was the computer suspended?", "overrun", over)
			return false, l.reset()
		}
		return false, nil

	case req := <-l.requests:
		reply, stop, err := l.handler.Handle(req.Message)
		if err != nil {
			return true, err
		}
		if stop {
			l.logger.Info("scheduler stopped by triggered timer")
			return true, nil
		}
		req.Reply <- reply
		return false, nil

	case ev := <-l.signals:
		l.logger.Debug("signal received", "event", ev)
		return ev == signals.Terminate, nil

	case <-l.wake:
		l.logger.Info("system resumed, resetting timers")
		return false, l.reset()
	}
}

func (l *Loop) readIdle() (time.Duration, error) {
	idle, err := l.idle.Idle()
	if err != nil {
		return 0, fmt.Errorf("failed to read idle time: %w", err)
	}
	return idle, nil
}

// reset restarts the chain at the current idle time.
func (l *Loop) reset() error {
	idle, err := l.readIdle()
	if err != nil {
		return err
	}
	if err := l.sched.Reset(idle); err != nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}
	return nil
}

func (l *Loop) reap() {
	if l.reaper == nil {
		return
	}
	for _, exit := range l.reaper.Reap() {
		l.logger.Debug("child exited", "pid", exit.Pid, "command", exit.Command, "status", exit.Status)
	}
}
