package protocol

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/module"
	"github.com/Veraticus/idlehook/pkg/process"
	"github.com/Veraticus/idlehook/pkg/scheduler"
	"github.com/Veraticus/idlehook/pkg/timer"
)

// Handler applies requests to a scheduler of command timers. It must only
// be used from the goroutine that polls the scheduler.
type Handler struct {
	sched   *scheduler.Scheduler[*timer.CmdTimer]
	idle    interfaces.IdleSource
	spawner process.Spawner
	logger  *slog.Logger
}

// NewHandler creates a Handler. New timers spawn their commands through
// spawner; triggers read the current idle time from idle.
func NewHandler(sched *scheduler.Scheduler[*timer.CmdTimer], idle interfaces.IdleSource, spawner process.Spawner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sched:   sched,
		idle:    idle,
		spawner: spawner,
		logger:  logger,
	}
}

// Handle applies msg. When stop is true a triggered timer asked the
// scheduler to stop; the caller should exit without replying. A non-nil
// error is fatal to the caller.
func (h *Handler) Handle(msg Message) (reply Reply, stop bool, err error) {
	switch m := msg.(type) {
	case *Add:
		return h.add(m)
	case *Control:
		return h.control(m)
	case *Query:
		return h.query(m), false, nil
	default:
		return Reply{}, false, fmt.Errorf("unknown message %T", msg)
	}
}

func (h *Handler) add(m *Add) (Reply, bool, error) {
	length := len(h.sched.Timers())
	index := length
	if m.Index != nil {
		index = int(*m.Index)
	}
	if index > length {
		return Errorf("%s", ErrIndexOutOfRange), false, nil
	}

	t := timer.NewCmdTimer(h.spawner, time.Duration(m.Duration), m.Activation, m.Abortion, m.Deactivation)
	if err := h.sched.Insert(index, t); err != nil {
		return Reply{}, false, err
	}

	h.logger.Debug("timer added", "timer", index, "duration", time.Duration(m.Duration))
	return Empty(), false, nil
}

func (h *Handler) control(m *Control) (Reply, bool, error) {
	ids := m.Timer.Resolve(len(h.sched.Timers()))

	removed := 0
	for _, id := range ids {
		timers, err := h.sched.TimersMut()
		if err != nil {
			return Reply{}, false, err
		}

		// Earlier deletes in this request shifted the later timers down.
		i := id - removed
		if i < 0 || i >= len(timers) {
			continue
		}

		switch m.Action {
		case Disable:
			timers[i].SetDisabled(true)
		case Enable:
			timers[i].SetDisabled(false)
		case Trigger:
			idle, err := h.idle.Idle()
			if err != nil {
				return Reply{}, false, fmt.Errorf("failed to read idle time: %w", err)
			}
			p, err := h.sched.Trigger(i, idle, true)
			if err != nil {
				return Reply{}, false, err
			}
			if p == module.Stop {
				return Reply{}, true, nil
			}
		case Delete:
			if err := h.sched.Remove(i); err != nil {
				return Reply{}, false, err
			}
			removed++
		default:
			return Errorf("unknown action %q", m.Action), false, nil
		}

		h.logger.Debug("timer controlled", "timer", i, "action", m.Action)
	}

	return Empty(), false, nil
}

func (h *Handler) query(m *Query) Reply {
	timers := h.sched.Timers()

	results := []Snapshot{}
	for _, id := range m.Timer.Resolve(len(timers)) {
		if id >= len(timers) {
			continue
		}
		def := timers[id].Definition()
		results = append(results, Snapshot{
			Timer:        TimerID(id),
			Duration:     Duration(def.Duration),
			Activation:   def.Activation,
			Abortion:     def.Abortion,
			Deactivation: def.Deactivation,
			Disabled:     def.Disabled,
		})
	}
	return Results(results)
}
