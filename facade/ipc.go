// File: facade/ipc.go
// Unified facade layer for hioload-ipc.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPC aggregates the event loop, the optional I/O executor, metrics and
// debug probes behind one value built from a control.Config, and hands out
// clients and servers bound to that loop.

package facade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/client"
	"github.com/momentics/hioload-ipc/control"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/server"
	"golang.org/x/sync/errgroup"
)

// IPC is the main facade type.
type IPC struct {
	cfg     *control.Config
	logger  *slog.Logger
	loop    *concurrency.EventLoop
	exec    *concurrency.Executor
	metrics *control.Metrics
	probes  *control.DebugProbes
}

// New builds the components described by cfg. A nil cfg selects the defaults,
// a nil logger slog.Default().
func New(cfg *control.Config, logger *slog.Logger) (*IPC, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &IPC{
		cfg:     cfg,
		logger:  logger,
		metrics: control.NewMetrics(),
		probes:  control.NewDebugProbes(),
	}

	loop, err := concurrency.NewEventLoop(
		concurrency.WithLoopLogger(logger),
		concurrency.WithBatchSize(cfg.BatchSize),
		concurrency.WithDataChunkSize(cfg.ChunkSize),
		concurrency.WithCPU(cfg.LoopCPU),
		concurrency.WithDropHook(f.metrics.Dropped),
	)
	if err != nil {
		return nil, fmt.Errorf("facade: %w", err)
	}
	f.loop = loop
	f.probes.RegisterProbe("loop", func() any { return loop.Stats() })

	if cfg.Workers > 0 {
		f.exec = concurrency.NewExecutor(cfg.Workers, logger)
		exec := f.exec
		f.probes.RegisterProbe("executor", func() any { return exec.Stats() })
	}
	return f, nil
}

// Config returns the configuration in use.
func (f *IPC) Config() *control.Config { return f.cfg }

// Metrics returns the process collectors.
func (f *IPC) Metrics() *control.Metrics { return f.metrics }

// Probes returns the debug probe registry.
func (f *IPC) Probes() *control.DebugProbes { return f.probes }

// Post schedules fn on the event loop.
func (f *IPC) Post(fn func()) error { return f.loop.Post(fn) }

func (f *IPC) executor() api.Executor {
	if f.exec == nil {
		return nil
	}
	return f.exec
}

// NewClient returns a client on the facade's loop. extra options are
// applied after the configured ones.
func (f *IPC) NewClient(extra ...client.Option) *client.Client {
	opts := []client.Option{
		client.WithConnectTimeout(f.cfg.ConnectTimeout.Duration),
		client.WithTimeouts(f.cfg.ReadTimeout.Duration, f.cfg.WriteTimeout.Duration),
		client.WithChunkSize(f.cfg.ChunkSize),
		client.WithDataEvents(f.cfg.DataEvents),
		client.WithExecutor(f.executor()),
		client.WithLogger(f.logger),
		client.WithMetrics(f.metrics),
	}
	return client.New(f.loop, append(opts, extra...)...)
}

// NewServer returns a stopped server for the configured address.
func (f *IPC) NewServer(onRequest api.RequestHandler, onResponse api.ResponseProducer, extra ...server.ServerOption) (*server.Server, error) {
	addr, err := f.cfg.Endpoint()
	if err != nil {
		return nil, err
	}
	opts := []server.ServerOption{
		server.WithTimeouts(f.cfg.ReadTimeout.Duration, f.cfg.WriteTimeout.Duration),
		server.WithChunkSize(f.cfg.ChunkSize),
		server.WithDataEvents(f.cfg.DataEvents),
		server.WithExecutor(f.executor()),
		server.WithLogger(f.logger),
		server.WithMetrics(f.metrics),
	}
	return server.New(f.loop, addr, onRequest, onResponse, append(opts, extra...)...), nil
}

// Run drives the event loop, and the metrics endpoint when configured,
// until ctx is done. Cancellation is not reported as an error.
func (f *IPC) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := f.loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if f.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", f.metrics.Handler())
		mux.Handle("/debug/probes", f.probes.Handler())
		srv := &http.Server{Addr: f.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			f.logger.Info("facade: metrics endpoint", "address", f.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

// Close stops the loop and the executor.
func (f *IPC) Close() {
	f.loop.Stop()
	if f.exec != nil {
		f.exec.Close()
	}
}
