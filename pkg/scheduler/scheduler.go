// Package scheduler walks a chain of timers against idle readings and
// decides what to fire and how long it is safe to sleep.
package scheduler

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/idlehook/pkg/module"
	"github.com/Veraticus/idlehook/pkg/timer"
)

// Unbounded is the sleep bound used before any timer limited it.
const Unbounded = time.Duration(math.MaxInt64)

// Kind is the kind of an Action.
type Kind int

const (
	// Sleep means poll again after at most Action.Sleep.
	Sleep Kind = iota
	// Forever means nothing can fire until the chain changes.
	Forever
	// Quit means a module asked the scheduler to stop.
	Quit
)

// Action is what the caller should do after a poll.
type Action struct {
	Kind  Kind
	Sleep time.Duration
}

// SleepFor returns a Sleep action.
func SleepFor(d time.Duration) Action { return Action{Kind: Sleep, Sleep: d} }

func (a Action) String() string {
	switch a.Kind {
	case Sleep:
		return "sleep " + a.Sleep.String()
	case Forever:
		return "forever"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Scheduler owns a chain of timers. It is not safe for concurrent use;
// exactly one goroutine drives it.
type Scheduler[T timer.Timer] struct {
	timers  []T
	modules module.List
	logger  *slog.Logger

	// next is the index of the next timer eligible to fire.
	next int
	// active is the timer fired last and not yet deactivated, or -1.
	active int
	// base is the idle reading at which the current step of the chain began.
	base time.Duration
	// previous is the last idle reading seen, to detect activity.
	previous time.Duration
	// aborted latches until the next reset.
	aborted bool
}

// Option configures a Scheduler.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for tracing and for the default module.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a scheduler over timers with only the default module.
func New[T timer.Timer](timers []T, opts ...Option) *Scheduler[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Scheduler[T]{
		timers:  timers,
		modules: module.List{module.Default(o.logger)},
		logger:  o.logger,
		active:  -1,
	}
}

// Register appends m to the modules consulted around every timer.
func (s *Scheduler[T]) Register(m module.Module) {
	s.modules = append(s.modules, m)
}

// Timers returns the chain. Callers must not change its structure; use
// TimersMut, Insert or Remove for that.
func (s *Scheduler[T]) Timers() []T {
	return s.timers
}

// TimersMut aborts the current chain walk and returns the chain for
// modification of its elements.
func (s *Scheduler[T]) TimersMut() ([]T, error) {
	if err := s.Abort(); err != nil {
		return nil, err
	}
	return s.timers, nil
}

// Insert aborts the chain walk and inserts t at index i.
func (s *Scheduler[T]) Insert(i int, t T) error {
	if i < 0 || i > len(s.timers) {
		return fmt.Errorf("insert at %d: chain has %d timers", i, len(s.timers))
	}
	if err := s.Abort(); err != nil {
		return err
	}

	s.timers = append(s.timers, t)
	copy(s.timers[i+1:], s.timers[i:])
	s.timers[i] = t
	s.shifted(i, 1)
	return nil
}

// Remove aborts the chain walk and removes the timer at index i.
func (s *Scheduler[T]) Remove(i int) error {
	if i < 0 || i >= len(s.timers) {
		return fmt.Errorf("remove %d: chain has %d timers", i, len(s.timers))
	}
	if err := s.Abort(); err != nil {
		return err
	}

	var zero T
	copy(s.timers[i:], s.timers[i+1:])
	s.timers[len(s.timers)-1] = zero
	s.timers = s.timers[:len(s.timers)-1]
	s.shifted(i, -1)
	return nil
}

// shifted keeps the cursor pointing at the same timers after a structural
// change at index i.
func (s *Scheduler[T]) shifted(i, delta int) {
	switch {
	case s.active == i && delta < 0:
		s.active = -1
	case s.active >= i:
		s.active += delta
	}
	if s.next > i {
		s.next += delta
	}
}

// Abort runs the abortion of the active timer and stops pursuing the chain
// until the next Reset. It is idempotent.
func (s *Scheduler[T]) Abort() error {
	if s.aborted {
		return nil
	}
	s.aborted = true

	if s.active >= 0 {
		s.logger.Debug("aborting chain", "timer", s.active)
		if err := s.timers[s.active].Abort(); err != nil {
			return s.warn(fmt.Errorf("abort timer %d: %w", s.active, err))
		}
	}
	return nil
}

// Reset aborts and rewinds the chain, taking epoch as the new idle base.
func (s *Scheduler[T]) Reset(epoch time.Duration) error {
	if err := s.Abort(); err != nil {
		return err
	}

	s.logger.Debug("resetting chain", "epoch", epoch)

	if s.next > 0 {
		if err := s.modules.Reset(); err != nil {
			if werr := s.warn(err); werr != nil {
				return werr
			}
		}
		s.next = 0
	}

	s.active = -1
	s.base = epoch
	s.previous = epoch
	s.aborted = false
	return nil
}

// warn routes err through the modules. A non-nil result is fatal.
func (s *Scheduler[T]) warn(err error) error {
	return s.modules.Warning(err)
}

// handle applies a module verdict. It reports whether the trigger has to
// return early.
func (s *Scheduler[T]) handle(p module.Progress, epoch time.Duration) (bool, error) {
	switch p {
	case module.Abort:
		s.logger.Debug("module requested abort of chain")
		return true, s.Abort()
	case module.Reset:
		s.logger.Debug("module requested reset of chain")
		return true, s.Reset(epoch)
	case module.Stop:
		return true, nil
	default:
		return false, nil
	}
}

// Trigger fires the timer at index at idle reading t. With force the
// modules' PreTimer verdict is ignored; PostTimer is always honored. Timer
// and module errors go through Warning; an error returned from here is
// fatal.
func (s *Scheduler[T]) Trigger(index int, t time.Duration, force bool) (module.Progress, error) {
	if index < 0 || index >= len(s.timers) {
		return module.Continue, fmt.Errorf("trigger %d: chain has %d timers", index, len(s.timers))
	}

	s.logger.Debug("activating timer", "timer", index, "force", force)
	info := module.TimerInfo{Index: index, Length: len(s.timers)}

	p, err := s.modules.PreTimer(info)
	switch {
	case err != nil:
		if werr := s.warn(err); werr != nil {
			return module.Continue, werr
		}
	case !force:
		if done, err := s.handle(p, t); done || err != nil {
			return p, err
		}
	}

	if err := s.timers[index].Activate(); err != nil {
		if werr := s.warn(fmt.Errorf("activate timer %d: %w", index, err)); werr != nil {
			return module.Continue, werr
		}
	}
	if s.active >= 0 && s.active != index {
		if err := s.timers[s.active].Deactivate(); err != nil {
			if werr := s.warn(fmt.Errorf("deactivate timer %d: %w", s.active, err)); werr != nil {
				return module.Continue, werr
			}
		}
	}
	s.active = index
	s.base = t

	p, err = s.modules.PostTimer(info)
	if err != nil {
		if werr := s.warn(err); werr != nil {
			return module.Continue, werr
		}
	} else if done, err := s.handle(p, t); done || err != nil {
		return p, err
	}

	s.next = index + 1
	return module.Continue, nil
}

// Poll evaluates the chain at absolute idle reading t and returns what the
// caller should do next. An error leaves the scheduler in an undefined
// state.
func (s *Scheduler[T]) Poll(t time.Duration) (Action, error) {
	if t < s.previous {
		// The idle time went down, so the user was active in between.
		if err := s.Reset(t); err != nil {
			return Action{}, err
		}
	}
	s.previous = t

	for {
		action, fire, err := s.evaluate(t)
		if err != nil || fire < 0 {
			return action, err
		}

		s.logger.Debug("timer due", "timer", fire)
		p, err := s.Trigger(fire, t, false)
		if err != nil {
			return Action{}, err
		}
		switch p {
		case module.Stop:
			return Action{Kind: Quit}, nil
		case module.Abort, module.Reset:
			return action, nil
		}
		// Continue: look at the chain again from the new position, which
		// may have another timer due right away.
	}
}

// evaluate computes the sleep bound at t and the index of a timer that is
// due, or -1 when none is.
func (s *Scheduler[T]) evaluate(t time.Duration) (Action, int, error) {
	first := -1
	for i, tm := range s.timers {
		if !tm.Disabled() {
			first = i
			break
		}
	}
	if first < 0 {
		return Action{Kind: Forever}, -1, nil
	}

	// The user may become active and idle again at any moment, which
	// restarts the chain at the first timer.
	maxSleep := Unbounded
	fold := func(r timer.Remaining) {
		if left, ok := r.Left(); ok && left < maxSleep {
			maxSleep = left
		}
	}

	r, err := s.timers[first].TimeLeft(0)
	if err != nil {
		return Action{}, -1, err
	}
	fold(r)

	if s.aborted {
		return SleepFor(maxSleep), -1, nil
	}

	relative := t - s.base

	cursor := s.next
	if cursor == 0 {
		cursor = first
	}

	for ; cursor < len(s.timers); cursor++ {
		tm := s.timers[cursor]
		r, err := tm.TimeLeft(relative)
		if err != nil {
			return Action{}, -1, err
		}
		if tm.Disabled() {
			// Re-enabling it later could make it due.
			fold(r)
			continue
		}
		if r.IsDue() {
			return SleepFor(maxSleep), cursor, nil
		}
		fold(r)
		break
	}

	if s.active >= 0 {
		if urgency, ok := s.timers[s.active].AbortUrgency(); ok && urgency < maxSleep {
			maxSleep = urgency
		}
	}

	return SleepFor(maxSleep), -1, nil
}
