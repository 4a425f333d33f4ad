//go:build linux
// +build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// eventfd-based wakeup of a loop blocked in epoll_wait.

package concurrency

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

type waker struct {
	efd int
}

func newWaker() (waker, error) {
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return waker{}, fmt.Errorf("eventfd: %w", err)
	}
	return waker{efd: efd}, nil
}

func (w waker) fd() int { return w.efd }

func (w waker) wake() {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], 1)
	_, _ = unix.Write(w.efd, b[:])
}

func (w waker) drain() {
	var b [8]byte
	_, _ = unix.Read(w.efd, b[:])
}

func (w waker) close() error { return unix.Close(w.efd) }
