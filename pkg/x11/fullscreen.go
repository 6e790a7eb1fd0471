package x11

import (
	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/module"
)

// NotWhenFullscreen vetoes timers while the focused window is fullscreen.
// It answers Abort, so the chain waits for the next round of activity.
type NotWhenFullscreen struct {
	module.Base
	checker interfaces.FullscreenChecker
}

// NewNotWhenFullscreen creates the module over checker.
func NewNotWhenFullscreen(checker interfaces.FullscreenChecker) *NotWhenFullscreen {
	return &NotWhenFullscreen{checker: checker}
}

// PreTimer implements module.Module.
func (n *NotWhenFullscreen) PreTimer(module.TimerInfo) (module.Progress, error) {
	fullscreen, err := n.checker.Fullscreen()
	if err != nil {
		return module.Continue, err
	}
	if fullscreen {
		return module.Abort, nil
	}
	return module.Continue, nil
}
