//go:build !linux

// File: internal/concurrency/pin_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import "github.com/momentics/hioload-ipc/api"

func pinCurrentThread(cpu int) (func(), error) { return nil, api.ErrNotSupported }
