// Package testutil holds hand-written mocks shared by the package tests.
package testutil

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/idlehook/pkg/module"
	"github.com/Veraticus/idlehook/pkg/timer"
)

// EventLog collects timer events in the order they happened.
type EventLog struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event
func (l *EventLog) Add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the recorded events
func (l *EventLog) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]string, len(l.events))
	copy(result, l.events)
	return result
}

// Clear forgets every recorded event
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// MockTimer records its actions into an EventLog as "activate N",
// "abort N" and "deactivate N".
type MockTimer struct {
	Name     string
	Length   time.Duration
	Urgency  time.Duration
	Off      bool
	Err      error
	Log      *EventLog
	Activity int
}

// Ensure MockTimer implements timer.Timer
var _ timer.Timer = (*MockTimer)(nil)

// NewMockTimer creates a mock timer logging into log
func NewMockTimer(name string, d time.Duration, log *EventLog) *MockTimer {
	return &MockTimer{Name: name, Length: d, Log: log}
}

// TimeLeft implements timer.Timer
func (m *MockTimer) TimeLeft(relative time.Duration) (timer.Remaining, error) {
	return timer.Until(m.Length, relative), nil
}

// AbortUrgency implements timer.Timer
func (m *MockTimer) AbortUrgency() (time.Duration, bool) {
	return m.Urgency, m.Urgency > 0
}

// Activate implements timer.Timer
func (m *MockTimer) Activate() error {
	m.Activity++
	m.Log.Add("activate %s", m.Name)
	return m.Err
}

// Abort implements timer.Timer
func (m *MockTimer) Abort() error {
	m.Log.Add("abort %s", m.Name)
	return nil
}

// Deactivate implements timer.Timer
func (m *MockTimer) Deactivate() error {
	m.Log.Add("deactivate %s", m.Name)
	return nil
}

// Disabled implements timer.Timer
func (m *MockTimer) Disabled() bool {
	return m.Off
}

// ErrMockModule is returned by a MockModule configured to fail.
var ErrMockModule = errors.New("mock module failure")

// MockModule answers hooks from scripted values and counts calls.
type MockModule struct {
	mu        sync.Mutex
	Pre       func(module.TimerInfo) (module.Progress, error)
	Post      func(module.TimerInfo) (module.Progress, error)
	WarnErr   error
	ResetErr  error
	warnings  []error
	preCalls  int
	postCalls int
	resets    int
}

// Ensure MockModule implements module.Module
var _ module.Module = (*MockModule)(nil)

// PreTimer implements module.Module
func (m *MockModule) PreTimer(info module.TimerInfo) (module.Progress, error) {
	m.mu.Lock()
	m.preCalls++
	fn := m.Pre
	m.mu.Unlock()

	if fn == nil {
		return module.Continue, nil
	}
	return fn(info)
}

// PostTimer implements module.Module
func (m *MockModule) PostTimer(info module.TimerInfo) (module.Progress, error) {
	m.mu.Lock()
	m.postCalls++
	fn := m.Post
	m.mu.Unlock()

	if fn == nil {
		return module.Continue, nil
	}
	return fn(info)
}

// Warning implements module.Module
func (m *MockModule) Warning(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, err)
	return m.WarnErr
}

// Reset implements module.Module
func (m *MockModule) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return m.ResetErr
}

// Warnings returns the errors passed to Warning
func (m *MockModule) Warnings() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]error, len(m.warnings))
	copy(result, m.warnings)
	return result
}

// Calls returns the number of PreTimer, PostTimer and Reset calls
func (m *MockModule) Calls() (pre, post, resets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preCalls, m.postCalls, m.resets
}

// Always returns a hook that answers p for every timer.
func Always(p module.Progress) func(module.TimerInfo) (module.Progress, error) {
	return func(module.TimerInfo) (module.Progress, error) {
		return p, nil
	}
}
