// File: dispatch/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle-to-handler registry turning classified socket events into handler calls.

package dispatch

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-ipc/api"
)

// UnknownEventError is the panic value raised for an event kind outside the
// closed set produced by the event loop.
type UnknownEventError struct {
	Kind   api.EventKind
	Handle api.Handle
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("dispatch: unrecognized socket event kind %d on handle %d", uint8(e.Kind), int(e.Handle))
}

type entry struct {
	handler api.ConnectionHandler
	alive   atomic.Bool
}

// Dispatcher routes events to the handler registered for their handle.
// It is safe for concurrent use; a handle has at most one live handler.
type Dispatcher struct {
	mu      sync.RWMutex
	entries map[api.Handle]*entry
	logger  *slog.Logger
	onDrop  func(api.Event)
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for drop diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDropHook installs fn, called for every dropped event.
func WithDropHook(fn func(api.Event)) Option {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

// New creates an empty dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		entries: make(map[api.Handle]*entry),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Register binds handler to h. A handle already bound yields api.ErrAlreadyActive.
func (d *Dispatcher) Register(h api.Handle, handler api.ConnectionHandler) error {
	if handler == nil || h == api.InvalidHandle {
		return fmt.Errorf("register handle %d: %w", h, api.ErrInvalidArgument)
	}
	e := &entry{handler: handler}
	e.alive.Store(true)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[h]; ok {
		return api.ErrAlreadyActive
	}
	d.entries[h] = e
	return nil
}

// Unregister drops the handler of h. Returns false if h was not registered.
//
// Every Dispatch that starts after Unregister returns drops its event. A
// delivery already past the liveness check on another goroutine still
// completes. Handlers may unregister their own handle from HandleEvent,
// so no lock is held while the handler runs.
func (d *Dispatcher) Unregister(h api.Handle) bool {
	d.mu.Lock()
	e, ok := d.entries[h]
	if ok {
		e.alive.Store(false)
		delete(d.entries, h)
	}
	d.mu.Unlock()
	return ok
}

// Lookup returns the live handler of h.
func (d *Dispatcher) Lookup(h api.Handle) (api.ConnectionHandler, bool) {
	d.mu.RLock()
	e, ok := d.entries[h]
	d.mu.RUnlock()
	if !ok || !e.alive.Load() {
		return nil, false
	}
	return e.handler, true
}

// Len returns the number of registered handles.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Dispatch delivers ev to the handler registered for ev.Handle and reports
// whether it was delivered. Events for unregistered handles are dropped with
// a diagnostic. An unknown event kind is a programming error and panics.
func (d *Dispatcher) Dispatch(ev api.Event) bool {
	switch ev.Kind {
	case api.EventConnect, api.EventAccept, api.EventReadable, api.EventWritable, api.EventData:
	default:
		panic(&UnknownEventError{Kind: ev.Kind, Handle: ev.Handle})
	}

	d.mu.RLock()
	e, ok := d.entries[ev.Handle]
	d.mu.RUnlock()
	if !ok || !e.alive.Load() {
		d.logger.Warn("dispatch: no handler for socket, event dropped",
			"handle", int(ev.Handle), "kind", ev.Kind.String())
		if d.onDrop != nil {
			d.onDrop(ev)
		}
		return false
	}
	e.handler.HandleEvent(ev)
	return true
}
