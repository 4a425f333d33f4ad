//go:build !linux
// +build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stream

import (
	"time"

	"github.com/momentics/hioload-ipc/api"
)

const DefaultWaitTimeout = 5 * time.Second

// SocketInput is unavailable on this platform; it reports an empty stream.
type SocketInput struct{}

func NewSocketInput(api.Handle, time.Duration) *SocketInput { return &SocketInput{} }
func (*SocketInput) HasBytesAvailable() bool { return false }
func (*SocketInput) Read([]byte) (int, error) { return 0, api.ErrNotSupported }

// SocketOutput is unavailable on this platform; it accepts nothing.
type SocketOutput struct{}

func NewSocketOutput(api.Handle, time.Duration) *SocketOutput { return &SocketOutput{} }
func (*SocketOutput) HasSpaceAvailable() bool { return false }
func (*SocketOutput) Write([]byte) (int, error) { return 0, api.ErrNotSupported }
