// Package fake
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync"

	"github.com/momentics/hioload-ipc/api"
)

// Handler records every event it receives.
type Handler struct {
	mu     sync.Mutex
	events []api.Event
	notify chan api.Event
}

// NewHandler creates a recording handler. Events are also sent on C, which
// buffers up to 64 of them.
func NewHandler() *Handler {
	return &Handler{notify: make(chan api.Event, 64)}
}

// HandleEvent implements api.ConnectionHandler.
func (h *Handler) HandleEvent(ev api.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	select {
	case h.notify <- ev:
	default:
	}
}

// C delivers received events.
func (h *Handler) C() <-chan api.Event { return h.notify }

// Events returns a copy of the received events.
func (h *Handler) Events() []api.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]api.Event(nil), h.events...)
}

// Executor runs submitted tasks synchronously on the caller.
type Executor struct {
	mu     sync.Mutex
	tasks  int
	Closed bool
}

// Submit implements api.Executor.
func (e *Executor) Submit(task func()) error {
	e.mu.Lock()
	if e.Closed {
		e.mu.Unlock()
		return api.ErrLoopClosed
	}
	e.tasks++
	e.mu.Unlock()
	task()
	return nil
}

// NumWorkers implements api.Executor.
func (e *Executor) NumWorkers() int { return 1 }

// Tasks returns how many tasks ran.
func (e *Executor) Tasks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks
}

// Loop runs posted tasks immediately.
type Loop struct {
	mu     sync.Mutex
	posted int
}

// Post implements api.Loop.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	l.posted++
	l.mu.Unlock()
	fn()
	return nil
}

// Posted returns how many tasks were posted.
func (l *Loop) Posted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.posted
}
