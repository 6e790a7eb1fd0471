//go:build !linux && !darwin

package idle

// platformOrder is the order in which Auto tries sources elsewhere.
var platformOrder = []Kind{X11, Tmux}
