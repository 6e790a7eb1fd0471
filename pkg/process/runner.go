package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Runner spawns commands and records them in a Table.
type Runner struct {
	table  *Table
	logger *slog.Logger
	usePTY bool
	stdout io.Writer
	stderr io.Writer
}

// Ensure Runner implements Spawner
var _ Spawner = (*Runner)(nil)

// Option configures a Runner.
type Option func(*Runner)

// WithPTY runs every command on its own pseudo-terminal and relays its
// output to the logger line by line.
func WithPTY(enabled bool) Option {
	return func(r *Runner) {
		r.usePTY = enabled
	}
}

// WithLogger sets the logger used for spawn and output records.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithOutput overrides where non-pty children write their output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// NewRunner creates a runner that tracks its children in table.
func NewRunner(table *Table, opts ...Option) *Runner {
	r := &Runner{
		table:  table,
		logger: slog.Default(),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Spawn starts argv with env appended to the current environment. The
// child is never waited on here; the table's Reap collects it.
func (r *Runner) Spawn(argv []string, env []string) (Child, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	// #nosec G204 - commands come from the user's own configuration
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), env...)

	if r.usePTY {
		return r.spawnPTY(cmd, argv[0])
	}

	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	c := r.table.track(cmd.Process, argv[0])
	r.logger.Debug("spawned command", "command", argv[0], "pid", c.pid)
	return c, nil
}
