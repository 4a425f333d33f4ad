// File: internal/concurrency/eventloop.go
// Package concurrency implements the single-goroutine socket event loop and
// the executor used to move stream I/O off it.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The loop owns a readiness reactor and an event dispatcher. Readiness of a
// watched socket is classified according to the socket's mode into connect,
// accept, readable, writable or data events, which the dispatcher routes to
// the socket's handler. All handler calls and posted tasks run on the loop
// goroutine, never concurrently with each other.

package concurrency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/dispatch"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/reactor"
	"golang.org/x/sys/cpu"
)

// Mode selects how readiness of a watched socket is classified.
type Mode uint8

const (
	// ModeStream: a connected socket producing readable/writable/data events.
	ModeStream Mode = iota
	// ModeConnecting: the first writability produces a connect event, then
	// the socket switches to ModeStream.
	ModeConnecting
	// ModeListening: readability produces one accept event per pending connection.
	ModeListening
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeConnecting:
		return "connecting"
	case ModeListening:
		return "listening"
	default:
		return "invalid"
	}
}

// Watch describes how a socket is watched.
type Watch struct {
	Mode     Mode
	Interest reactor.Interest
	// Data makes the loop read one chunk itself on readability and deliver
	// it as a data event instead of a readable event.
	Data bool
}

// Aborter is implemented by handlers that must learn about loop shutdown
// while their socket is still watched.
type Aborter interface {
	Abort(err error)
}

type watch struct {
	Watch
	polled bool // registered with the reactor
}

const (
	loopIdle int32 = iota
	loopRunning
	loopStopped
)

// EventLoop is a single-goroutine socket event loop.
type EventLoop struct {
	dispatched uint64
	_          cpu.CacheLinePad
	dropped    uint64
	_          cpu.CacheLinePad

	poller     reactor.EventReactor
	dispatcher *dispatch.Dispatcher
	waker      waker
	logger     *slog.Logger
	batchSize  int
	chunkSize  int
	cpu        int

	mu      sync.Mutex
	tasks   *queue.Queue // of func()
	watches map[api.Handle]*watch

	state    atomic.Int32
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// LoopOption customizes an EventLoop.
type LoopOption func(*loopConfig)

type loopConfig struct {
	logger    *slog.Logger
	batchSize int
	chunkSize int
	cpu       int
	onDrop    func(api.Event)
}

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(l *slog.Logger) LoopOption {
	return func(c *loopConfig) { c.logger = l }
}

// WithBatchSize sets how many readiness notifications one wait collects.
func WithBatchSize(n int) LoopOption {
	return func(c *loopConfig) { c.batchSize = n }
}

// WithDataChunkSize sets the read size used for data events.
func WithDataChunkSize(n int) LoopOption {
	return func(c *loopConfig) { c.chunkSize = n }
}

// WithCPU pins the goroutine running the loop to one CPU. Negative values
// leave scheduling to the runtime.
func WithCPU(cpu int) LoopOption {
	return func(c *loopConfig) { c.cpu = cpu }
}

// WithDropHook is called for every event dropped by the dispatcher.
func WithDropHook(fn func(api.Event)) LoopOption {
	return func(c *loopConfig) { c.onDrop = fn }
}

// NewEventLoop creates an idle loop. Call Run to start it.
func NewEventLoop(opts ...LoopOption) (*EventLoop, error) {
	cfg := loopConfig{logger: slog.Default(), batchSize: 64, chunkSize: 1024, cpu: -1}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.batchSize <= 0 {
		cfg.batchSize = 64
	}
	if cfg.chunkSize <= 0 {
		cfg.chunkSize = 1024
	}

	p, err := reactor.NewReactor()
	if err != nil {
		return nil, fmt.Errorf("event loop: %w", err)
	}
	w, err := newWaker()
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("event loop: %w", err)
	}
	if err := p.Register(w.fd(), reactor.InterestRead); err != nil {
		_ = w.close()
		_ = p.Close()
		return nil, fmt.Errorf("event loop: %w", err)
	}

	l := &EventLoop{
		poller:    p,
		waker:     w,
		logger:    cfg.logger,
		batchSize: cfg.batchSize,
		chunkSize: cfg.chunkSize,
		cpu:       cfg.cpu,
		tasks:     queue.New(),
		watches:   make(map[api.Handle]*watch),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	onDrop := cfg.onDrop
	l.dispatcher = dispatch.New(
		dispatch.WithLogger(cfg.logger),
		dispatch.WithDropHook(func(ev api.Event) {
			atomic.AddUint64(&l.dropped, 1)
			if onDrop != nil {
				onDrop(ev)
			}
		}),
	)
	return l, nil
}

// Dispatcher exposes the loop's handle registry.
func (l *EventLoop) Dispatcher() *dispatch.Dispatcher { return l.dispatcher }

// Running reports whether Run is active.
func (l *EventLoop) Running() bool { return l.state.Load() == loopRunning }

// Pending returns the number of posted tasks not yet run.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Length()
}

// Watched returns the number of watched sockets.
func (l *EventLoop) Watched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.watches)
}

// Stats returns loop counters.
func (l *EventLoop) Stats() map[string]int64 {
	return map[string]int64{
		"dispatched": int64(atomic.LoadUint64(&l.dispatched)),
		"dropped":    int64(atomic.LoadUint64(&l.dropped)),
		"watched":    int64(l.Watched()),
		"pending":    int64(l.Pending()),
	}
}

// Post schedules fn to run on the loop goroutine.
func (l *EventLoop) Post(fn func()) error {
	if l.state.Load() == loopStopped {
		return api.ErrLoopClosed
	}
	l.mu.Lock()
	l.tasks.Add(fn)
	l.mu.Unlock()
	l.waker.wake()
	return nil
}

// Inject posts ev for dispatch on the loop goroutine as if the socket had
// produced it.
func (l *EventLoop) Inject(ev api.Event) error {
	return l.Post(func() { l.dispatch(ev) })
}

// AfterFunc posts fn onto the loop once d has elapsed. Stopping the
// returned timer cancels it.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, func() { _ = l.Post(fn) })
}

// Watch starts delivering events of h to handler.
func (l *EventLoop) Watch(h api.Handle, w Watch, handler api.ConnectionHandler) error {
	if l.state.Load() == loopStopped {
		return api.ErrLoopClosed
	}
	if err := l.dispatcher.Register(h, handler); err != nil {
		return err
	}
	entry := &watch{Watch: w}
	if w.Interest != 0 {
		if err := l.poller.Register(int(h), w.Interest); err != nil {
			l.dispatcher.Unregister(h)
			return err
		}
		entry.polled = true
	}
	l.mu.Lock()
	l.watches[h] = entry
	l.mu.Unlock()
	return nil
}

// SetInterest changes the readiness conditions watched for h. An empty
// interest parks the socket: no event of any kind is produced for it.
func (l *EventLoop) SetInterest(h api.Handle, interest reactor.Interest) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.watches[h]
	if !ok {
		return fmt.Errorf("set interest fd=%d: %w", h, api.ErrInvalidArgument)
	}
	var err error
	switch {
	case interest == 0 && w.polled:
		err = l.poller.Unregister(int(h))
		w.polled = false
	case interest != 0 && !w.polled:
		err = l.poller.Register(int(h), interest)
		w.polled = err == nil
	case interest != 0:
		err = l.poller.Modify(int(h), interest)
	}
	if err == nil {
		w.Interest = interest
	}
	return err
}

// Invalidate stops all routing for h and closes it. Routing stops
// immediately; the descriptor is released on the loop goroutine so a stale
// readiness for it can never reach a recycled descriptor. Invalidating an
// unknown handle is a no-op.
func (l *EventLoop) Invalidate(h api.Handle) {
	l.dispatcher.Unregister(h)
	l.mu.Lock()
	_, ok := l.watches[h]
	delete(l.watches, h)
	l.mu.Unlock()
	if !ok {
		return
	}
	release := func() {
		_ = l.poller.Unregister(int(h))
		_ = transport.Close(h)
	}
	if l.state.Load() != loopRunning || l.Post(release) != nil {
		release()
	}
}

// Run drives the loop until ctx is done or Stop is called. On exit every
// watched socket is aborted and closed.
func (l *EventLoop) Run(ctx context.Context) error {
	if !l.state.CompareAndSwap(loopIdle, loopRunning) {
		if l.state.Load() == loopStopped {
			return api.ErrLoopClosed
		}
		return fmt.Errorf("event loop run: %w", api.ErrAlreadyActive)
	}
	defer close(l.doneCh)
	defer l.shutdown()

	if l.cpu >= 0 {
		unpin, err := pinCurrentThread(l.cpu)
		if err != nil {
			return err
		}
		defer unpin()
	}

	stopWatch := context.AfterFunc(ctx, l.waker.wake)
	defer stopWatch()

	ready := make([]reactor.Readiness, l.batchSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopCh:
			return nil
		default:
		}
		l.runTasks()

		n, err := l.poller.Wait(ready, -1)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if ready[i].Fd == l.waker.fd() {
				l.waker.drain()
				continue
			}
			l.handleReady(ready[i])
		}
	}
}

// Stop ends Run and waits for it to return. It must not be called from the
// loop goroutine.
func (l *EventLoop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.waker.wake()
	})
	if l.state.Load() == loopIdle {
		if l.state.CompareAndSwap(loopIdle, loopStopped) {
			l.shutdownIdle()
		}
		return
	}
	<-l.doneCh
}

func (l *EventLoop) runTasks() {
	for {
		l.mu.Lock()
		if l.tasks.Length() == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.tasks.Remove().(func())
		l.mu.Unlock()
		l.safely("task", fn)
	}
}

// safely runs fn and recovers handler panics so one faulty handler cannot
// take the loop down. Unknown event kinds still panic through Dispatch.
func (l *EventLoop) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.As(err, new(*dispatch.UnknownEventError)) {
				panic(r)
			}
			l.logger.Error("event loop: recovered panic", "in", what, "panic", r)
		}
	}()
	fn()
}

func (l *EventLoop) lookup(h api.Handle) (Watch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	w, ok := l.watches[h]
	if !ok {
		return Watch{}, false
	}
	return w.Watch, true
}

func (l *EventLoop) setMode(h api.Handle, m Mode) {
	l.mu.Lock()
	if w, ok := l.watches[h]; ok {
		w.Mode = m
	}
	l.mu.Unlock()
}

func (l *EventLoop) dispatch(ev api.Event) bool {
	var delivered bool
	l.safely(ev.Kind.String(), func() { delivered = l.dispatcher.Dispatch(ev) })
	if delivered {
		atomic.AddUint64(&l.dispatched, 1)
	}
	return delivered
}

func (l *EventLoop) handleReady(r reactor.Readiness) {
	h := api.Handle(r.Fd)
	w, ok := l.lookup(h)
	if !ok {
		return // invalidated, release pending
	}

	switch w.Mode {
	case ModeConnecting:
		if !r.Writable && !r.Hangup {
			return
		}
		status := transport.PendingError(h)
		l.setMode(h, ModeStream)
		l.dispatch(api.ConnectEvent(h, status))

	case ModeListening:
		if !r.Readable && !r.Hangup {
			return
		}
		for i := 0; i < l.batchSize; i++ {
			child, err := transport.Accept(h)
			if err != nil {
				if !transport.IsWouldBlock(err) {
					l.logger.Warn("event loop: accept failed", "handle", int(h), "error", err)
				}
				return
			}
			if !l.dispatch(api.AcceptEvent(h, child)) {
				_ = transport.Close(child)
				return
			}
			if _, ok := l.lookup(h); !ok {
				return
			}
		}

	case ModeStream:
		readable := (r.Readable || r.Hangup) && w.Interest.Has(reactor.InterestRead)
		writable := w.Interest.Has(reactor.InterestWrite) &&
			(r.Writable || (r.Hangup && !w.Interest.Has(reactor.InterestRead)))
		if readable {
			if w.Data {
				l.deliverData(h)
			} else {
				l.dispatch(api.Event{Kind: api.EventReadable, Handle: h})
			}
		}
		if writable {
			if cur, ok := l.lookup(h); ok && cur.Interest.Has(reactor.InterestWrite) {
				l.dispatch(api.Event{Kind: api.EventWritable, Handle: h})
			}
		}
	}
}

func (l *EventLoop) deliverData(h api.Handle) {
	buf := make([]byte, l.chunkSize)
	n, _, err := transport.ReadChunk(h, buf)
	if err != nil {
		if transport.IsWouldBlock(err) {
			return
		}
		l.dispatch(api.Event{Kind: api.EventData, Handle: h, Err: err})
		return
	}
	l.dispatch(api.DataEvent(h, buf[:n]))
}

func (l *EventLoop) shutdown() {
	l.state.Store(loopStopped)
	l.runTasks()

	l.mu.Lock()
	handles := make([]api.Handle, 0, len(l.watches))
	for h := range l.watches {
		handles = append(handles, h)
	}
	l.mu.Unlock()

	for _, h := range handles {
		if handler, ok := l.dispatcher.Lookup(h); ok {
			if a, ok := handler.(Aborter); ok {
				l.safely("abort", func() { a.Abort(api.ErrLoopClosed) })
			}
		}
		l.Invalidate(h)
	}
	_ = l.poller.Close()
	_ = l.waker.close()
}

func (l *EventLoop) shutdownIdle() {
	close(l.doneCh)
	l.shutdown()
}
