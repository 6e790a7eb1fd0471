package testutil

import (
	"sync"

	"github.com/Veraticus/idlehook/pkg/process"
)

// MockChild is a controllable process.Child.
type MockChild struct {
	mu      sync.Mutex
	pid     int
	running bool
}

// NewMockChild creates a running mock child.
func NewMockChild(pid int) *MockChild {
	return &MockChild{pid: pid, running: true}
}

// Pid implements process.Child
func (c *MockChild) Pid() int {
	return c.pid
}

// Running implements process.Child
func (c *MockChild) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Exit marks the child as reaped.
func (c *MockChild) Exit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// Spawn records one call to MockSpawner.Spawn.
type Spawn struct {
	Argv []string
	Env  []string
}

// MockSpawner is a thread-safe process.Spawner that starts nothing.
type MockSpawner struct {
	mu       sync.Mutex
	spawns   []Spawn
	children []*MockChild
	nextPid  int
	err      error
}

// Ensure MockSpawner implements process.Spawner
var _ process.Spawner = (*MockSpawner)(nil)

// NewMockSpawner creates a new mock spawner
func NewMockSpawner() *MockSpawner {
	return &MockSpawner{nextPid: 1000}
}

// Spawn implements process.Spawner
func (m *MockSpawner) Spawn(argv []string, env []string) (process.Child, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	m.spawns = append(m.spawns, Spawn{
		Argv: append([]string(nil), argv...),
		Env:  append([]string(nil), env...),
	})

	m.nextPid++
	child := NewMockChild(m.nextPid)
	m.children = append(m.children, child)
	return child, nil
}

// Spawns returns a copy of every recorded spawn
func (m *MockSpawner) Spawns() []Spawn {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Spawn, len(m.spawns))
	copy(result, m.spawns)
	return result
}

// Children returns the children handed out so far
func (m *MockSpawner) Children() []*MockChild {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*MockChild, len(m.children))
	copy(result, m.children)
	return result
}

// SetError makes every following Spawn fail with err
func (m *MockSpawner) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
