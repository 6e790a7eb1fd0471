// Package signals turns process signals into events for the event loop.
package signals

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Event is a signal the loop cares about.
type Event int

const (
	// Terminate asks the loop to exit (SIGINT, SIGTERM).
	Terminate Event = iota
	// Child means a child process changed state and may be reaped.
	Child
)

func (e Event) String() string {
	switch e {
	case Terminate:
		return "terminate"
	case Child:
		return "child"
	default:
		return "unknown"
	}
}

// Translate maps a signal to its event.
func Translate(sig os.Signal) (Event, bool) {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		return Terminate, true
	case syscall.SIGCHLD:
		return Child, true
	default:
		return 0, false
	}
}

// Relay owns the signal subscription and forwards events on one channel.
type Relay struct {
	sigs     chan os.Signal
	events   chan Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	detach   func()
}

// NewRelay subscribes to SIGINT, SIGTERM and SIGCHLD.
func NewRelay() *Relay {
	sigs := make(chan os.Signal, 8)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD)
	return newRelay(sigs, func() { signal.Stop(sigs) })
}

func newRelay(sigs chan os.Signal, detach func()) *Relay {
	r := &Relay{
		sigs:     sigs,
		events:   make(chan Event, 1),
		stopChan: make(chan struct{}),
		detach:   detach,
	}
	r.wg.Add(1)
	go r.forward()
	return r
}

// Events is the channel events are delivered on.
func (r *Relay) Events() <-chan Event {
	return r.events
}

// Stop unsubscribes and waits for the relay goroutine.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		r.detach()
		close(r.stopChan)
		r.wg.Wait()
	})
}

func (r *Relay) forward() {
	defer r.wg.Done()

	for {
		select {
		case sig := <-r.sigs:
			ev, ok := Translate(sig)
			if !ok {
				continue
			}
			if ev == Child {
				// One pending child event covers any number of exits.
				select {
				case r.events <- ev:
				default:
				}
				continue
			}
			select {
			case r.events <- ev:
			case <-r.stopChan:
				return
			}
		case <-r.stopChan:
			return
		}
	}
}
