// Package x11 talks to the X server for idle time and fullscreen state.
package x11

import (
	"fmt"
	"slices"
	"time"

	"github.com/BurntSushi/xgb/screensaver"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

const netWMStateFullscreen = "_NET_WM_STATE_FULLSCREEN"

// Conn is a connection to the X server with the screensaver extension
// initialized.
type Conn struct {
	xu   *xgbutil.XUtil
	root xproto.Drawable
}

// Ensure Conn implements the collaborator interfaces
var (
	_ interfaces.IdleSource        = (*Conn)(nil)
	_ interfaces.FullscreenChecker = (*Conn)(nil)
)

// Dial connects to the display named by $DISPLAY.
func Dial() (*Conn, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	if err := screensaver.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("screensaver extension unavailable: %w", err)
	}

	return &Conn{
		xu:   xu,
		root: xproto.Drawable(xu.RootWin()),
	}, nil
}

// Idle returns the time since the last user input.
func (c *Conn) Idle() (time.Duration, error) {
	info, err := screensaver.QueryInfo(c.xu.Conn(), c.root).Reply()
	if err != nil {
		return 0, fmt.Errorf("screensaver query failed: %w", err)
	}
	return time.Duration(info.MsSinceUserInput) * time.Millisecond, nil
}

// Fullscreen reports whether the active window has _NET_WM_STATE_FULLSCREEN.
func (c *Conn) Fullscreen() (bool, error) {
	active, err := ewmh.ActiveWindowGet(c.xu)
	if err != nil {
		return false, fmt.Errorf("failed to get active window: %w", err)
	}
	if active == 0 {
		return false, nil
	}

	states, err := ewmh.WmStateGet(c.xu, active)
	if err != nil {
		// Windows without the property are simply not fullscreen.
		return false, nil
	}
	return slices.Contains(states, netWMStateFullscreen), nil
}

// Close closes the connection.
func (c *Conn) Close() {
	c.xu.Conn().Close()
}
