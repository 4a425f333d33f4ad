// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy of the socket exchange core.

package api

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeSocketCreation
	ErrCodeBind
	ErrCodeListen
	ErrCodeConnect
	ErrCodeAlreadyActive
	ErrCodeWriteIncomplete
	ErrCodeReadIncomplete
	ErrCodeNotSupported
	ErrCodeLoopClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeSocketCreation:
		return "socket creation failed"
	case ErrCodeBind:
		return "bind failed"
	case ErrCodeListen:
		return "listen failed"
	case ErrCodeConnect:
		return "connect failed"
	case ErrCodeAlreadyActive:
		return "socket already active"
	case ErrCodeWriteIncomplete:
		return "write incomplete"
	case ErrCodeReadIncomplete:
		return "read incomplete"
	case ErrCodeNotSupported:
		return "not supported"
	case ErrCodeLoopClosed:
		return "event loop closed"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// Error is the structured error surfaced by client and server.
//
// Errno is set for failures reported by the OS. Bytes counts the bytes moved
// before a stream failure; Partial keeps what was read so far on the client
// read path. Err is the stream's own error, when it reported one.
type Error struct {
	Code    ErrorCode
	Message string
	Errno   syscall.Errno
	Bytes   int
	Partial []byte
	Err     error
}

// Sentinels for errors.Is. Matching is by Code only.
var (
	ErrSocketCreation  = &Error{Code: ErrCodeSocketCreation}
	ErrBindFailed      = &Error{Code: ErrCodeBind}
	ErrListenFailed    = &Error{Code: ErrCodeListen}
	ErrConnectFailed   = &Error{Code: ErrCodeConnect}
	ErrAlreadyActive   = &Error{Code: ErrCodeAlreadyActive}
	ErrWriteIncomplete = &Error{Code: ErrCodeWriteIncomplete}
	ErrReadIncomplete  = &Error{Code: ErrCodeReadIncomplete}
	ErrNotSupported    = &Error{Code: ErrCodeNotSupported}
	ErrLoopClosed      = &Error{Code: ErrCodeLoopClosed}

	ErrInvalidArgument = errors.New("invalid argument")
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Code.String())
	}
	if e.Errno != 0 {
		fmt.Fprintf(&b, ": errno %d (%s)", int(e.Errno), e.Errno.Error())
	}
	switch e.Code {
	case ErrCodeWriteIncomplete:
		fmt.Fprintf(&b, " after %d bytes written", e.Bytes)
	case ErrCodeReadIncomplete:
		fmt.Fprintf(&b, " after %d bytes read", e.Bytes)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the underlying stream or OS error.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// SocketCreationFailed reports a failed socket(2) call.
func SocketCreationFailed(errno syscall.Errno) *Error {
	return &Error{Code: ErrCodeSocketCreation, Errno: errno}
}

// BindFailed reports a failed bind(2) call.
func BindFailed(errno syscall.Errno) *Error {
	return &Error{Code: ErrCodeBind, Errno: errno}
}

// ListenFailed reports a failed listen(2) call.
func ListenFailed(errno syscall.Errno) *Error {
	return &Error{Code: ErrCodeListen, Errno: errno}
}

// ConnectFailed reports an asynchronous connect failure.
func ConnectFailed(errno syscall.Errno) *Error {
	return &Error{Code: ErrCodeConnect, Errno: errno}
}

// WriteIncomplete reports a write failing after written bytes were accepted.
func WriteIncomplete(written int, cause error) *Error {
	return &Error{Code: ErrCodeWriteIncomplete, Bytes: written, Err: cause}
}

// ReadIncomplete reports a read failing after partial was accumulated.
func ReadIncomplete(partial []byte, cause error) *Error {
	return &Error{Code: ErrCodeReadIncomplete, Bytes: len(partial), Partial: partial, Err: cause}
}

// ErrnoOf extracts an OS error code from err, or 0.
func ErrnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}
