// File: api/handler.go
// Package api defines the ConnectionHandler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// ConnectionHandler reacts to the events of exactly one socket.
// HandleEvent is always invoked on the owning event loop.
type ConnectionHandler interface {
	HandleEvent(ev Event)
}

// HandlerFunc adapts a function to ConnectionHandler.
type HandlerFunc func(ev Event)

// HandleEvent calls f(ev).
func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }
