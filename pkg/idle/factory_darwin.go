//go:build darwin

package idle

// platformOrder is the order in which Auto tries sources on macOS.
var platformOrder = []Kind{Ioreg, Tmux}
