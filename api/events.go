// File: api/events.go
// Package api defines core event types for hioload-ipc.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"fmt"
	"syscall"
)

// Handle is the OS-level socket reference (a file descriptor on unix).
type Handle int

// InvalidHandle marks a socket that was never opened or has been closed.
const InvalidHandle Handle = -1

// EventKind enumerates the socket events routed by the dispatcher.
type EventKind uint8

const (
	EventConnect EventKind = iota + 1
	EventAccept
	EventReadable
	EventWritable
	EventData
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventAccept:
		return "accept"
	case EventReadable:
		return "readable"
	case EventWritable:
		return "writable"
	case EventData:
		return "data"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is a socket event with its kind-specific metadata:
//   - Connect: Status (HasStatus false means the OS gave no status)
//   - Accept:  Child, the accepted connection
//   - Data:    Chunk, bytes the loop already read (empty at end of
//     stream), or Err when the loop's own read failed
type Event struct {
	Kind      EventKind
	Handle    Handle
	Status    syscall.Errno
	HasStatus bool
	Child     Handle
	Chunk     []byte
	Err       error
}

// Connected reports whether a Connect event signals success.
func (ev Event) Connected() bool {
	return !ev.HasStatus || ev.Status == 0
}

// ConnectEvent builds a Connect event. A zero status means success.
func ConnectEvent(h Handle, status syscall.Errno) Event {
	return Event{Kind: EventConnect, Handle: h, Status: status, HasStatus: true}
}

// AcceptEvent builds an Accept event for child.
func AcceptEvent(h, child Handle) Event {
	return Event{Kind: EventAccept, Handle: h, Child: child}
}

// DataEvent builds a Data event carrying chunk.
func DataEvent(h Handle, chunk []byte) Event {
	return Event{Kind: EventData, Handle: h, Chunk: chunk}
}
