// Package api
// Author: momentics
//
// Executor contract for running stream I/O off the event loop.

package api

// Executor abstracts parallel task dispatch.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of active worker routines.
	NumWorkers() int
}

// Loop is the part of the event loop that handlers and executors need:
// posting continuations back onto the loop goroutine.
type Loop interface {
	Post(fn func()) error
}
