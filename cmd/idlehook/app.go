package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/idlehook/pkg/audio"
	"github.com/Veraticus/idlehook/pkg/config"
	"github.com/Veraticus/idlehook/pkg/daemon"
	"github.com/Veraticus/idlehook/pkg/idle"
	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/module"
	"github.com/Veraticus/idlehook/pkg/process"
	"github.com/Veraticus/idlehook/pkg/protocol"
	"github.com/Veraticus/idlehook/pkg/scheduler"
	"github.com/Veraticus/idlehook/pkg/signals"
	"github.com/Veraticus/idlehook/pkg/sleepwatch"
	"github.com/Veraticus/idlehook/pkg/socket"
	"github.com/Veraticus/idlehook/pkg/timer"
	"github.com/Veraticus/idlehook/pkg/x11"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config     *config.Config
	Logger     *slog.Logger
	Reaper     process.Reaper
	Spawner    process.Spawner
	Idle       interfaces.IdleSource
	Fullscreen interfaces.FullscreenChecker
	Audio      *audio.Observer
	SleepWatch *sleepwatch.Watcher
	Signals    *signals.Relay
	Scheduler  *scheduler.Scheduler[*timer.CmdTimer]
	Handler    *protocol.Handler
	Server     *socket.Server

	closers []func()
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Children are tracked in a table and reaped by the loop
	table := process.NewTable()
	deps.Reaper = table
	deps.Spawner = process.NewRunner(table, process.WithPTY(cfg.PTY), process.WithLogger(logger))

	kind, err := idle.ParseKind(cfg.IdleSource)
	if err != nil {
		return nil, err
	}
	src, err := idle.New(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to open idle source: %w", err)
	}
	deps.Idle = src
	conn, isX11 := src.(*x11.Conn)
	if isX11 {
		deps.closers = append(deps.closers, conn.Close)
	}
	logger.Debug("idle source ready", "source", fmt.Sprintf("%T", src))

	if cfg.NotWhenFullscreen {
		if !isX11 {
			conn, err = x11.Dial()
			if err != nil {
				deps.Close()
				return nil, fmt.Errorf("--not-when-fullscreen needs X11: %w", err)
			}
			deps.closers = append(deps.closers, conn.Close)
		}
		deps.Fullscreen = conn
	}

	if cfg.NotWhenAudio {
		deps.Audio, err = audio.NewObserver(logger)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("--not-when-audio: %w", err)
		}
	}

	if cfg.DetectSleep {
		deps.SleepWatch = sleepwatch.New(logger)
	}

	deps.Signals = signals.NewRelay()
	deps.closers = append(deps.closers, deps.Signals.Stop)

	deps.wire()
	return deps, nil
}

// wire builds the scheduler and everything that talks to it from the
// collaborators already set on d.
func (d *Dependencies) wire() {
	d.Scheduler = scheduler.New(buildTimers(d.Config.Timers, d.Spawner), scheduler.WithLogger(d.Logger))

	if d.Config.Once {
		d.Scheduler.Register(module.StopAtCompletion())
	}
	if d.Fullscreen != nil {
		d.Scheduler.Register(x11.NewNotWhenFullscreen(d.Fullscreen))
	}
	if d.Audio != nil {
		d.Scheduler.Register(audio.NewNotWhenAudio(d.Audio))
	}

	d.Handler = protocol.NewHandler(d.Scheduler, d.Idle, d.Spawner, d.Logger)

	path := d.Config.Socket
	if path == "" {
		path = socket.DefaultPath()
	}
	d.Server = socket.NewServer(path, d.Logger)
}

// buildTimers turns configured timers into shell timers.
func buildTimers(timers []config.Timer, spawner process.Spawner) []*timer.CmdTimer {
	out := make([]*timer.CmdTimer, 0, len(timers))
	for _, t := range timers {
		ct := timer.NewShellTimer(spawner, time.Duration(t.Duration), t.Activation, t.Abortion, t.Deactivation)
		ct.SetDisabled(t.Disabled)
		out = append(out, ct)
	}
	return out
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run serves the control socket and the optional watchers next to the
// event loop. Everything stops once the loop returns.
func (a *Application) Run(ctx context.Context) error {
	d := a.deps
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := d.Server.Start(gctx); err != nil {
			return fmt.Errorf("control socket: %w", err)
		}
		return nil
	})

	opts := []daemon.Option{
		daemon.WithReaper(d.Reaper),
		daemon.WithRequests(d.Server.Requests()),
		daemon.WithDetectSleep(d.Config.DetectSleep),
		daemon.WithLogger(d.Logger),
	}
	if d.Signals != nil {
		opts = append(opts, daemon.WithSignals(d.Signals.Events()))
	}
	if d.SleepWatch != nil {
		opts = append(opts, daemon.WithWake(d.SleepWatch.Wake()))
		g.Go(func() error { return d.SleepWatch.Run(gctx) })
	}
	if d.Audio != nil {
		g.Go(func() error { return d.Audio.Run(gctx) })
	}

	loop := daemon.New(d.Scheduler, d.Idle, d.Handler, opts...)
	g.Go(func() error {
		defer cancel()
		return loop.Run(gctx)
	})

	d.Logger.Info("idlehook started", "timers", len(d.Scheduler.Timers()), "socket", d.Server.Path())
	return g.Wait()
}

// printIdle writes the current idle time in milliseconds.
func printIdle(w io.Writer, src interfaces.IdleSource) error {
	d, err := src.Idle()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, d.Milliseconds())
	return err
}
