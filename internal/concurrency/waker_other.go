//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-ipc/api"

type waker struct{}

func newWaker() (waker, error) { return waker{}, api.ErrNotSupported }

func (waker) fd() int      { return -1 }
func (waker) wake()        {}
func (waker) drain()       {}
func (waker) close() error { return nil }
