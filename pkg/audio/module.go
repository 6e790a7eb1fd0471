package audio

import (
	"github.com/Veraticus/idlehook/pkg/interfaces"
	"github.com/Veraticus/idlehook/pkg/module"
)

// NotWhenAudio restarts the chain while any media is playing.
type NotWhenAudio struct {
	module.Base
	counter interfaces.PlaybackCounter
}

// NewNotWhenAudio creates the module over a playback counter.
func NewNotWhenAudio(counter interfaces.PlaybackCounter) *NotWhenAudio {
	return &NotWhenAudio{counter: counter}
}

// PreTimer implements module.Module.
func (n *NotWhenAudio) PreTimer(module.TimerInfo) (module.Progress, error) {
	if n.counter.Playing() > 0 {
		return module.Reset, nil
	}
	return module.Continue, nil
}
