package process

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Exit describes a reaped child.
type Exit struct {
	Pid     int
	Command string
	// Status is the exit code, or -1 when the child was killed by a signal
	// or had already been collected elsewhere.
	Status int
}

type child struct {
	pid    int
	name   string
	proc   *os.Process
	exited atomic.Bool
}

func (c *child) Pid() int { return c.pid }

func (c *child) Running() bool { return !c.exited.Load() }

// waitFunc performs a single non-blocking wait on pid.
type waitFunc func(pid int, status *unix.WaitStatus) (int, error)

func wait4NoHang(pid int, status *unix.WaitStatus) (int, error) {
	return unix.Wait4(pid, status, unix.WNOHANG, nil)
}

// Table tracks spawned children until they are reaped.
type Table struct {
	mu       sync.Mutex
	children map[int]*child
	wait     waitFunc
}

// Ensure Table implements Reaper
var _ Reaper = (*Table)(nil)

// NewTable creates an empty child table.
func NewTable() *Table {
	return &Table{
		children: make(map[int]*child),
		wait:     wait4NoHang,
	}
}

func (t *Table) track(proc *os.Process, name string) *child {
	c := &child{pid: proc.Pid, name: name, proc: proc}

	t.mu.Lock()
	t.children[c.pid] = c
	t.mu.Unlock()

	return c
}

// Len returns the number of children not yet reaped.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.children)
}

// Reap collects every tracked child that has exited. It never blocks.
func (t *Table) Reap() []Exit {
	t.mu.Lock()
	defer t.mu.Unlock()

	var exits []Exit
	for pid, c := range t.children {
		var status unix.WaitStatus
		wpid, err := t.wait(pid, &status)

		code := -1
		switch {
		case errors.Is(err, unix.ECHILD):
			// Someone else collected it
		case err != nil, wpid == 0:
			continue
		case status.Exited():
			code = status.ExitStatus()
		}

		c.exited.Store(true)
		_ = c.proc.Release()
		delete(t.children, pid)

		exits = append(exits, Exit{Pid: pid, Command: c.name, Status: code})
	}

	return exits
}
