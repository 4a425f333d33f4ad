//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"syscall"

	"github.com/momentics/hioload-ipc/api"
)

const DefaultBacklog = 128

func OpenStream() (api.Handle, error) { return api.InvalidHandle, api.ErrNotSupported }
func Connect(api.Handle, api.Address) syscall.Errno { return syscall.ENOSYS }
func Bind(api.Handle, api.Address) error { return api.ErrNotSupported }
func Listen(api.Handle, int) error { return api.ErrNotSupported }
func Accept(api.Handle) (api.Handle, error) { return api.InvalidHandle, api.ErrNotSupported }
func IsWouldBlock(error) bool { return false }
func PendingError(api.Handle) syscall.Errno { return syscall.ENOSYS }
func ShutdownWrite(api.Handle) error { return api.ErrNotSupported }
func Close(api.Handle) error { return nil }
func LocalAddress(api.Handle) (api.Address, error) { return api.Address{}, api.ErrNotSupported }
func ReadChunk(api.Handle, []byte) (int, bool, error) { return 0, false, api.ErrNotSupported }
