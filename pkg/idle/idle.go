// Package idle provides the sources that report how long the user has been idle.
package idle

import (
	"errors"
	"fmt"
	"os/exec"
)

// Kind names an idle source.
type Kind string

// Supported idle sources.
const (
	Auto       Kind = "auto"
	X11        Kind = "x11"
	Xprintidle Kind = "xprintidle"
	Tmux       Kind = "tmux"
	Ioreg      Kind = "ioreg"
)

// ErrUnsupported is returned when no idle source is usable.
var ErrUnsupported = errors.New("no usable idle source")

// ParseKind validates the name of an idle source.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Auto, X11, Xprintidle, Tmux, Ioreg:
		return k, nil
	case "":
		return Auto, nil
	default:
		return "", fmt.Errorf("unknown idle source %q", s)
	}
}

// cmdExecutor runs a command and returns its standard output.
type cmdExecutor func(name string, args ...string) ([]byte, error)

func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.Output()
}
