// File: client/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"log/slog"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/control"
	"github.com/momentics/hioload-ipc/stream"
)

// DefaultConnectTimeout bounds the asynchronous connect.
const DefaultConnectTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // readiness wait inside read-to-exhaustion
	WriteTimeout   time.Duration // readiness wait inside write-until-exhausted
	ChunkSize      int
	DataEvents     bool
	Executor       api.Executor
	Logger         *slog.Logger
	Metrics        *control.Metrics
}

// DefaultOptions returns the client defaults.
func DefaultOptions() *Options {
	return &Options{
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    stream.DefaultWaitTimeout,
		WriteTimeout:   stream.DefaultWaitTimeout,
		ChunkSize:      stream.DefaultChunkSize,
		Logger:         slog.Default(),
	}
}

// Option customizes client initialization.
type Option func(*Options)

// WithConnectTimeout overrides the connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithTimeouts sets the readiness waits of the stream loops.
func WithTimeouts(read, write time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = read
		o.WriteTimeout = write
	}
}

// WithChunkSize sets the read chunk size.
func WithChunkSize(n int) Option {
	return func(o *Options) {
		o.ChunkSize = n
	}
}

// WithDataEvents makes the loop deliver the first response bytes as a data event.
func WithDataEvents(on bool) Option {
	return func(o *Options) {
		o.DataEvents = on
	}
}

// WithExecutor runs stream I/O on exec instead of the loop goroutine.
func WithExecutor(exec api.Executor) Option {
	return func(o *Options) {
		o.Executor = exec
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithMetrics records exchanges into m.
func WithMetrics(m *control.Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}
