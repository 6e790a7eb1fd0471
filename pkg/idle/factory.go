package idle

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/x11"
)

// factory builds idle sources. Its fields are swapped out in tests.
type factory struct {
	order    []Kind
	dialX11  func() (*x11.Conn, error)
	lookPath func(string) (string, error)
	getenv   func(string) string
}

func defaultFactory() *factory {
	return &factory{
		order:    platformOrder,
		dialX11:  x11.Dial,
		lookPath: exec.LookPath,
		getenv:   os.Getenv,
	}
}

// New creates the idle source named by kind. Auto tries the sources that
// make sense on this platform in order and takes the first usable one.
//
// When the result is an *x11.Conn the caller owns it and should Close it.
func New(kind Kind) (interfaces.IdleSource, error) {
	return defaultFactory().build(kind)
}

func (f *factory) build(kind Kind) (interfaces.IdleSource, error) {
	if kind != Auto {
		return f.single(kind)
	}

	var errs []error
	for _, k := range f.order {
		src, err := f.single(k)
		if err == nil {
			return src, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(errs...))
}

func (f *factory) single(kind Kind) (interfaces.IdleSource, error) {
	switch kind {
	case X11:
		conn, err := f.dialX11()
		if err != nil {
			return nil, err
		}
		return conn, nil
	case Xprintidle:
		if _, err := f.lookPath("xprintidle"); err != nil {
			return nil, fmt.Errorf("xprintidle: %w", err)
		}
		return NewXprintidleSource(), nil
	case Tmux:
		src := NewTmuxSource("")
		src.getenv = f.getenv
		if src.getenv("TMUX") == "" {
			return nil, ErrNotInTmux
		}
		if _, err := f.lookPath("tmux"); err != nil {
			return nil, fmt.Errorf("tmux: %w", err)
		}
		return src, nil
	case Ioreg:
		if _, err := f.lookPath("ioreg"); err != nil {
			return nil, fmt.Errorf("ioreg: %w", err)
		}
		return NewIoregSource(), nil
	default:
		return nil, fmt.Errorf("unknown idle source %q", kind)
	}
}
