// Package sleepwatch reports system resume events from logind.
package sleepwatch

import (
	"context"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	loginPath      = "/org/freedesktop/login1"
	loginInterface = "org.freedesktop.login1.Manager"
	prepareMember  = "PrepareForSleep"
)

// bus is the part of *dbus.Conn the watcher uses.
type bus interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Watcher sends on Wake every time the system comes back from sleep.
type Watcher struct {
	wake    chan struct{}
	logger  *slog.Logger
	connect func() (bus, error)
}

// New creates a watcher on the system bus.
func New(logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		wake:   make(chan struct{}, 1),
		logger: logger,
		connect: func() (bus, error) {
			return dbus.ConnectSystemBus()
		},
	}
}

// Wake delivers one value per resume. Resumes that happen while a value
// is still pending are merged.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Run listens until ctx is canceled. Without a system bus it logs and
// returns nil, since there is then nothing to watch.
func (w *Watcher) Run(ctx context.Context) error {
	conn, err := w.connect()
	if err != nil {
		if os.Getenv("DBUS_SYSTEM_BUS_ADDRESS") == "" {
			w.logger.Debug("D-Bus unavailable, sleep watcher disabled", "error", err)
		} else {
			w.logger.Warn("failed to connect to D-Bus for sleep monitoring", "error", err)
		}
		return nil
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(loginPath),
		dbus.WithMatchInterface(loginInterface),
		dbus.WithMatchMember(prepareMember),
	); err != nil {
		w.logger.Warn("failed to subscribe to PrepareForSleep", "error", err)
		return nil
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	w.logger.Debug("sleep watcher started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok || sig == nil {
				return nil
			}
			w.handle(sig)
		}
	}
}

func (w *Watcher) handle(sig *dbus.Signal) {
	if sig.Name != loginInterface+"."+prepareMember || len(sig.Body) < 1 {
		return
	}
	entering, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if entering {
		w.logger.Debug("system entering sleep")
		return
	}

	w.logger.Debug("system woke up")
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
