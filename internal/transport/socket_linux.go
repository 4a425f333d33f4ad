// internal/transport/socket_linux.go
//go:build linux
// +build linux

//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket primitives over golang.org/x/sys/unix.

package transport

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/momentics/hioload-ipc/api"
	"golang.org/x/sys/unix"
)

// DefaultBacklog is the listen(2) backlog used by the server.
const DefaultBacklog = 128

func sockaddr(a api.Address) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(a.Port()), Addr: a.IP()}
}

func errnoOf(err error) syscall.Errno {
	if errno := api.ErrnoOf(err); errno != 0 {
		return errno
	}
	return syscall.EIO
}

// OpenStream creates a non-blocking IPv4 TCP socket.
func OpenStream() (api.Handle, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return api.InvalidHandle, api.SocketCreationFailed(errnoOf(err))
	}
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return api.Handle(fd), nil
}

// Connect starts an asynchronous connect. A nil error means the outcome will
// be reported by writability; otherwise the returned errno is the failure.
func Connect(h api.Handle, to api.Address) syscall.Errno {
	err := unix.Connect(int(h), sockaddr(to))
	if err == nil || errors.Is(err, unix.EINPROGRESS) {
		return 0
	}
	return errnoOf(err)
}

// Bind binds h to addr with SO_REUSEADDR set.
func Bind(h api.Handle, addr api.Address) error {
	_ = unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	if err := unix.Bind(int(h), sockaddr(addr)); err != nil {
		return api.BindFailed(errnoOf(err))
	}
	return nil
}

// Listen marks h as a listening socket.
func Listen(h api.Handle, backlog int) error {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	if err := unix.Listen(int(h), backlog); err != nil {
		return api.ListenFailed(errnoOf(err))
	}
	return nil
}

// Accept takes one pending connection off h. It returns
// (api.InvalidHandle, unix.EAGAIN) when none is pending.
func Accept(h api.Handle) (api.Handle, error) {
	for {
		nfd, _, err := unix.Accept4(int(h), unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == nil {
			_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
			return api.Handle(nfd), nil
		}
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.ECONNABORTED) {
			continue
		}
		return api.InvalidHandle, err
	}
}

// IsWouldBlock reports whether err means "try again later".
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// PendingError returns and clears SO_ERROR of h.
func PendingError(h api.Handle) syscall.Errno {
	v, err := unix.GetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errnoOf(err)
	}
	return syscall.Errno(v)
}

// ShutdownWrite half-closes h so the peer reads end-of-stream.
func ShutdownWrite(h api.Handle) error {
	if err := unix.Shutdown(int(h), unix.SHUT_WR); err != nil && !errors.Is(err, unix.ENOTCONN) {
		return fmt.Errorf("shutdown fd=%d: %w", h, err)
	}
	return nil
}

// Close releases h.
func Close(h api.Handle) error {
	if h == api.InvalidHandle {
		return nil
	}
	return unix.Close(int(h))
}

// ReadChunk performs one non-blocking read. It returns (0, io.EOF)-like
// semantics through eof=true when the peer has closed.
func ReadChunk(h api.Handle, p []byte) (n int, eof bool, err error) {
	for {
		n, err = unix.Read(int(h), p)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, false, err
		}
		return n, n == 0 && len(p) > 0, nil
	}
}

// LocalAddress returns the address h is bound to.
func LocalAddress(h api.Handle) (api.Address, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return api.Address{}, fmt.Errorf("getsockname fd=%d: %w", h, err)
	}
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return api.Address{}, fmt.Errorf("getsockname fd=%d: %w", h, api.ErrNotSupported)
	}
	return api.NewAddress(in4.Addr, uint16(in4.Port)), nil
}
