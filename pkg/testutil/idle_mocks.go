package testutil

import (
	"sync"
	"time"

	"github.com/Veraticus/idlehook/pkg/interfaces"
)

// MockIdleSource is a thread-safe interfaces.IdleSource returning a
// settable reading.
type MockIdleSource struct {
	mu    sync.Mutex
	idle  time.Duration
	err   error
	calls int
}

// Ensure MockIdleSource implements interfaces.IdleSource
var _ interfaces.IdleSource = (*MockIdleSource)(nil)

// NewMockIdleSource creates a mock idle source
func NewMockIdleSource(idle time.Duration) *MockIdleSource {
	return &MockIdleSource{idle: idle}
}

// Idle implements interfaces.IdleSource
func (m *MockIdleSource) Idle() (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.idle, m.err
}

// SetIdle sets the reading returned by Idle
func (m *MockIdleSource) SetIdle(idle time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle = idle
}

// SetError makes Idle fail
func (m *MockIdleSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Idle was called
func (m *MockIdleSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockFullscreen is a settable interfaces.FullscreenChecker
type MockFullscreen struct {
	mu         sync.Mutex
	fullscreen bool
	err        error
}

// Ensure MockFullscreen implements interfaces.FullscreenChecker
var _ interfaces.FullscreenChecker = (*MockFullscreen)(nil)

// Fullscreen implements interfaces.FullscreenChecker
func (m *MockFullscreen) Fullscreen() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullscreen, m.err
}

// Set sets the answer and error returned by Fullscreen
func (m *MockFullscreen) Set(fullscreen bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fullscreen = fullscreen
	m.err = err
}
