package sleepwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mu       sync.Mutex
	ch       chan<- *dbus.Signal
	matchErr error
	closed   bool
	removed  bool
}

func (b *fakeBus) AddMatchSignal(...dbus.MatchOption) error { return b.matchErr }

func (b *fakeBus) Signal(ch chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ch = ch
}

func (b *fakeBus) RemoveSignal(chan<- *dbus.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = true
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBus) send(sig *dbus.Signal) bool {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- sig
	return true
}

func prepare(entering bool) *dbus.Signal {
	return &dbus.Signal{Name: loginInterface + "." + prepareMember, Body: []any{entering}}
}

func TestWatcher_handle(t *testing.T) {
	tests := []struct {
		name     string
		sig      *dbus.Signal
		wantWake bool
	}{
		{"resume", prepare(false), true},
		{"suspend", prepare(true), false},
		{"other signal", &dbus.Signal{Name: "org.freedesktop.login1.Manager.SessionNew", Body: []any{false}}, false},
		{"empty body", &dbus.Signal{Name: loginInterface + "." + prepareMember}, false},
		{"wrong body type", &dbus.Signal{Name: loginInterface + "." + prepareMember, Body: []any{"no"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New(nil)
			w.handle(tt.sig)
			assert.Equal(t, tt.wantWake, len(w.Wake()) == 1)
		})
	}
}

func TestWatcher_MergesPendingWakes(t *testing.T) {
	w := New(nil)
	w.handle(prepare(false))
	w.handle(prepare(false))
	assert.Len(t, w.Wake(), 1)
}

func TestWatcher_Run(t *testing.T) {
	fake := &fakeBus{}
	w := New(nil)
	w.connect = func() (bus, error) { return fake, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return fake.send(prepare(false)) }, time.Second, time.Millisecond)
	select {
	case <-w.Wake():
	case <-time.After(time.Second):
		t.Fatal("no wake event")
	}

	cancel()
	require.NoError(t, <-done)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.True(t, fake.closed)
	assert.True(t, fake.removed)
}

func TestWatcher_RunWithoutBus(t *testing.T) {
	w := New(nil)
	w.connect = func() (bus, error) { return nil, errors.New("no bus") }
	require.NoError(t, w.Run(context.Background()))
}

func TestWatcher_RunMatchFails(t *testing.T) {
	fake := &fakeBus{matchErr: errors.New("denied")}
	w := New(nil)
	w.connect = func() (bus, error) { return fake, nil }
	require.NoError(t, w.Run(context.Background()))
	assert.True(t, fake.closed)
}
