//go:build linux

package idle

// platformOrder is the order in which Auto tries sources on Linux.
var platformOrder = []Kind{X11, Xprintidle, Tmux}
