//go:build linux
// +build linux

// File: stream/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket-backed streams over non-blocking descriptors.

package stream

import (
	"errors"
	"io"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/internal/transport"
	"golang.org/x/sys/unix"
)

// DefaultWaitTimeout bounds how long a socket stream waits for readiness
// before reporting that no more bytes (or no more space) are available.
const DefaultWaitTimeout = 5 * time.Second

// waitFor polls h for events up to timeout. Error and hangup conditions
// count as ready so the following read or write observes them.
func waitFor(h api.Handle, events int16, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		ms := int(time.Until(deadline) / time.Millisecond)
		if ms < 0 {
			ms = 0
		}
		fds := []unix.PollFd{{Fd: int32(h), Events: events}}
		n, err := unix.Poll(fds, ms)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || n == 0 {
			return false
		}
		return fds[0].Revents&(events|unix.POLLERR|unix.POLLHUP) != 0
	}
}

// SocketInput reads a non-blocking socket as an api.InputStream.
type SocketInput struct {
	h       api.Handle
	timeout time.Duration
	done    bool
}

// NewSocketInput wraps h. timeout <= 0 selects DefaultWaitTimeout.
func NewSocketInput(h api.Handle, timeout time.Duration) *SocketInput {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &SocketInput{h: h, timeout: timeout}
}

// HasBytesAvailable waits for readability. It reports false once the
// stream has ended or failed, or when nothing arrives within the timeout.
func (s *SocketInput) HasBytesAvailable() bool {
	if s.done {
		return false
	}
	return waitFor(s.h, unix.POLLIN, s.timeout)
}

func (s *SocketInput) Read(p []byte) (int, error) {
	n, eof, err := transport.ReadChunk(s.h, p)
	switch {
	case err != nil && transport.IsWouldBlock(err):
		return 0, nil
	case err != nil:
		s.done = true
		return 0, err
	case eof:
		s.done = true
		return 0, io.EOF
	}
	return n, nil
}

// SocketOutput writes a non-blocking socket as an api.OutputStream.
type SocketOutput struct {
	h       api.Handle
	timeout time.Duration
}

// NewSocketOutput wraps h. timeout <= 0 selects DefaultWaitTimeout.
func NewSocketOutput(h api.Handle, timeout time.Duration) *SocketOutput {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return &SocketOutput{h: h, timeout: timeout}
}

// HasSpaceAvailable waits for writability up to the timeout.
func (s *SocketOutput) HasSpaceAvailable() bool {
	return waitFor(s.h, unix.POLLOUT, s.timeout)
}

// Write sends what the socket accepts. It reports zero bytes only when the
// socket stays full for the whole timeout.
func (s *SocketOutput) Write(p []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(int(s.h), p, nil, nil, unix.MSG_NOSIGNAL)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil && transport.IsWouldBlock(err):
			if waitFor(s.h, unix.POLLOUT, s.timeout) {
				continue
			}
			return 0, nil
		case err != nil:
			return 0, err
		}
		return n, nil
	}
}
