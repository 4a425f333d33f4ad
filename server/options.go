// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/control"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/stream"
)

// Options configures a Server.
type Options struct {
	ReadTimeout  time.Duration // readiness wait inside read-to-exhaustion
	WriteTimeout time.Duration // readiness wait inside write-until-exhausted
	ChunkSize    int
	Backlog      int
	DataEvents   bool
	Executor     api.Executor
	Logger       *slog.Logger
	Metrics      *control.Metrics
}

// DefaultOptions returns the server defaults.
func DefaultOptions() *Options {
	return &Options{
		ReadTimeout:  stream.DefaultWaitTimeout,
		WriteTimeout: stream.DefaultWaitTimeout,
		ChunkSize:    stream.DefaultChunkSize,
		Backlog:      transport.DefaultBacklog,
		Logger:       slog.Default(),
	}
}

// ServerOption customizes server initialization.
type ServerOption func(*Options)

// WithTimeouts sets the readiness waits of the stream loops.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(o *Options) {
		o.ReadTimeout = read
		o.WriteTimeout = write
	}
}

// WithChunkSize sets the read chunk size.
func WithChunkSize(n int) ServerOption {
	return func(o *Options) {
		o.ChunkSize = n
	}
}

// WithBacklog sets the listen backlog.
func WithBacklog(n int) ServerOption {
	return func(o *Options) {
		o.Backlog = n
	}
}

// WithDataEvents watches the listening socket for data events as well.
func WithDataEvents(on bool) ServerOption {
	return func(o *Options) {
		o.DataEvents = on
	}
}

// WithExecutor runs request reads and response writes on exec.
func WithExecutor(exec api.Executor) ServerOption {
	return func(o *Options) {
		o.Executor = exec
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics records requests and responses into m.
func WithMetrics(m *control.Metrics) ServerOption {
	return func(o *Options) {
		o.Metrics = m
	}
}
