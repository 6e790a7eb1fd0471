// Package audio tracks media playback over MPRIS and keeps timers from
// firing while something is playing.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisPath       = "/org/mpris/MediaPlayer2"
	playerInterface = "org.mpris.MediaPlayer2.Player"
	playbackStatus  = "PlaybackStatus"
	statusPlaying   = "Playing"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"
	nameOwnerChanged    = "org.freedesktop.DBus.NameOwnerChanged"
)

// Observer counts MPRIS players that are currently playing. The count is
// written by the goroutine running Run and may be read from anywhere.
type Observer struct {
	playing atomic.Int64
	logger  *slog.Logger

	// players maps a player's unique bus name to whether it plays.
	// Only the Run goroutine touches it.
	players map[string]bool

	conn *dbus.Conn
}

var _ interfaces.PlaybackCounter = (*Observer)(nil)

// NewObserver connects to the session bus.
func NewObserver(logger *slog.Logger) (*Observer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Observer{
		logger:  logger,
		players: make(map[string]bool),
		conn:    conn,
	}, nil
}

// Playing returns how many players report that they are playing.
func (o *Observer) Playing() int64 {
	return o.playing.Load()
}

// Run tracks players until ctx is canceled, then closes the connection.
func (o *Observer) Run(ctx context.Context) error {
	defer o.conn.Close()

	if err := o.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(mprisPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		return fmt.Errorf("failed to subscribe to player properties: %w", err)
	}
	if err := o.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg0Namespace(strings.TrimSuffix(mprisPrefix, ".")),
	); err != nil {
		return fmt.Errorf("failed to subscribe to player names: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	o.conn.Signal(signals)
	defer o.conn.RemoveSignal(signals)

	if err := o.scan(); err != nil {
		o.logger.Warn("failed to list media players", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			o.handle(sig, o.status)
		}
	}
}

// scan records every player present at startup.
func (o *Observer) scan() error {
	var names []string
	if err := o.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return err
	}
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		var owner string
		if err := o.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner); err != nil {
			o.logger.Debug("media player vanished", "player", name, "error", err)
			continue
		}
		o.track(owner, name, o.status)
	}
	return nil
}

// status asks a player for its PlaybackStatus.
func (o *Observer) status(name string) (string, error) {
	v, err := o.conn.Object(name, mprisPath).GetProperty(playerInterface + "." + playbackStatus)
	if err != nil {
		return "", err
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", errors.New("PlaybackStatus is not a string")
	}
	return s, nil
}

func (o *Observer) track(owner, name string, status func(string) (string, error)) {
	s, err := status(name)
	if err != nil {
		o.logger.Debug("failed to read playback status", "player", name, "error", err)
		s = ""
	}
	o.set(owner, s == statusPlaying)
}

func (o *Observer) handle(sig *dbus.Signal, status func(string) (string, error)) {
	switch sig.Name {
	case propertiesChanged:
		if len(sig.Body) < 2 {
			return
		}
		iface, _ := sig.Body[0].(string)
		changed, _ := sig.Body[1].(map[string]dbus.Variant)
		if iface != playerInterface || changed == nil {
			return
		}
		v, ok := changed[playbackStatus]
		if !ok {
			return
		}
		s, _ := v.Value().(string)
		o.set(sig.Sender, s == statusPlaying)

	case nameOwnerChanged:
		if len(sig.Body) < 3 {
			return
		}
		name, _ := sig.Body[0].(string)
		oldOwner, _ := sig.Body[1].(string)
		newOwner, _ := sig.Body[2].(string)
		if !strings.HasPrefix(name, mprisPrefix) {
			return
		}
		if oldOwner != "" {
			o.remove(oldOwner)
		}
		if newOwner != "" {
			o.track(newOwner, name, status)
		}
	}
}

func (o *Observer) set(owner string, playing bool) {
	o.players[owner] = playing
	o.recount()
}

func (o *Observer) remove(owner string) {
	delete(o.players, owner)
	o.recount()
}

func (o *Observer) recount() {
	var n int64
	for _, playing := range o.players {
		if playing {
			n++
		}
	}
	if o.playing.Swap(n) != n {
		o.logger.Debug("media players playing", "count", n)
	}
}
