package process

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// defaultWinsize is handed to every pty child; the daemon has no terminal
// of its own to copy a size from.
var defaultWinsize = &pty.Winsize{Rows: 24, Cols: 80}

func (r *Runner) spawnPTY(cmd *exec.Cmd, name string) (Child, error) {
	f, err := pty.StartWithSize(cmd, defaultWinsize)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s on pty: %w", name, err)
	}

	c := r.table.track(cmd.Process, name)
	r.logger.Debug("spawned command on pty", "command", name, "pid", c.pid)

	go r.relay(f, c)

	return c, nil
}

// relay logs each line the child writes until the pty closes.
func (r *Runner) relay(f *os.File, c *child) {
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		r.logger.Info("command output", "command", c.name, "pid", c.pid, "line", string(line))
	}
	// Reading the master returns EIO once the child side is gone, which is
	// the normal way this loop ends.
}
