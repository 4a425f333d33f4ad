//go:build linux

package concurrency_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/fake"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/reactor"
	"golang.org/x/sys/unix"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startLoop(t *testing.T, opts ...concurrency.LoopOption) *concurrency.EventLoop {
	t.Helper()
	opts = append([]concurrency.LoopOption{concurrency.WithLoopLogger(quietLogger())}, opts...)
	loop, err := concurrency.NewEventLoop(opts...)
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()
	t.Cleanup(func() {
		loop.Stop()
		if err := <-errCh; err != nil {
			t.Errorf("Run returned %v", err)
		}
	})
	return loop
}

func waitEvent(t *testing.T, h *fake.Handler) api.Event {
	t.Helper()
	select {
	case ev := <-h.C():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return api.Event{}
	}
}

func pipe(t *testing.T) (r, w api.Handle) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	return api.Handle(fds[0]), api.Handle(fds[1])
}

func TestPostRunsOnLoop(t *testing.T) {
	loop := startLoop(t)
	done := make(chan struct{})
	if err := loop.Post(func() { close(done) }); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("posted task never ran")
	}
}

func TestAfterFuncRunsOnLoop(t *testing.T) {
	loop := startLoop(t)
	done := make(chan time.Time, 1)
	start := time.Now()
	loop.AfterFunc(20*time.Millisecond, func() { done <- time.Now() })
	select {
	case at := <-done:
		if at.Sub(start) < 20*time.Millisecond {
			t.Fatalf("timer fired early after %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestReadableEventsAreRouted(t *testing.T) {
	loop := startLoop(t)
	r, w := pipe(t)
	defer unix.Close(int(w))

	h := fake.NewHandler()
	if err := loop.Watch(r, concurrency.Watch{Mode: concurrency.ModeStream, Interest: reactor.InterestRead}, h); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if _, err := unix.Write(int(w), []byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := waitEvent(t, h)
	if ev.Kind != api.EventReadable || ev.Handle != r {
		t.Fatalf("unexpected event %+v", ev)
	}
	// Park the descriptor so the unread byte stops producing events.
	if err := loop.SetInterest(r, 0); err != nil {
		t.Fatalf("SetInterest: %v", err)
	}
	loop.Invalidate(r)
}

func TestDataEventsCarryChunks(t *testing.T) {
	loop := startLoop(t, concurrency.WithDataChunkSize(16))
	r, w := pipe(t)

	h := fake.NewHandler()
	watch := concurrency.Watch{Mode: concurrency.ModeStream, Interest: reactor.InterestRead, Data: true}
	if err := loop.Watch(r, watch, h); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if _, err := unix.Write(int(w), []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := waitEvent(t, h)
	if ev.Kind != api.EventData || string(ev.Chunk) != "hello" {
		t.Fatalf("unexpected event %+v", ev)
	}

	unix.Close(int(w))
	ev = waitEvent(t, h)
	if ev.Kind != api.EventData || len(ev.Chunk) != 0 || ev.Err != nil {
		t.Fatalf("expected an empty end-of-stream chunk, got %+v", ev)
	}
	_ = loop.SetInterest(r, 0)
	loop.Invalidate(r)
}

func TestInvalidateStopsDelivery(t *testing.T) {
	var dropped int
	loop := startLoop(t)
	r, w := pipe(t)
	defer unix.Close(int(w))

	h := fake.NewHandler()
	_ = loop.Watch(r, concurrency.Watch{Mode: concurrency.ModeStream, Interest: reactor.InterestRead}, h)
	loop.Invalidate(r)
	if loop.Dispatcher().Len() != 0 {
		t.Fatalf("handle still registered after Invalidate")
	}

	if err := loop.Inject(api.Event{Kind: api.EventReadable, Handle: r}); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	synced := make(chan struct{})
	_ = loop.Post(func() { dropped = int(loop.Stats()["dropped"]); close(synced) })
	<-synced
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if n := len(h.Events()); n != 0 {
		t.Fatalf("handler saw %d events after Invalidate", n)
	}
	if loop.Watched() != 0 {
		t.Errorf("Watched = %d after Invalidate", loop.Watched())
	}
}

type abortRecorder struct {
	*fake.Handler
	aborted chan error
}

func (a abortRecorder) Abort(err error) { a.aborted <- err }

func TestStopAbortsWatchedHandlers(t *testing.T) {
	loop, err := concurrency.NewEventLoop(concurrency.WithLoopLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(context.Background()) }()

	r, w := pipe(t)
	defer unix.Close(int(w))
	rec := abortRecorder{Handler: fake.NewHandler(), aborted: make(chan error, 1)}
	if err := loop.Watch(r, concurrency.Watch{Mode: concurrency.ModeStream}, rec); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	loop.Stop()
	if err := <-errCh; err != nil {
		t.Fatalf("Run: %v", err)
	}
	select {
	case err := <-rec.aborted:
		if !errors.Is(err, api.ErrLoopClosed) {
			t.Fatalf("Abort got %v", err)
		}
	default:
		t.Fatal("handler was not aborted")
	}
	if err := loop.Post(func() {}); !errors.Is(err, api.ErrLoopClosed) {
		t.Fatalf("Post after Stop: %v", err)
	}
	if err := loop.Run(context.Background()); !errors.Is(err, api.ErrLoopClosed) {
		t.Fatalf("Run after Stop: %v", err)
	}
}

func TestRunEndsWithContext(t *testing.T) {
	loop, err := concurrency.NewEventLoop(concurrency.WithLoopLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStopIdleLoop(t *testing.T) {
	loop, err := concurrency.NewEventLoop(concurrency.WithLoopLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	loop.Stop()
	loop.Stop()
	if loop.Running() {
		t.Fatal("idle loop reports running")
	}
}
