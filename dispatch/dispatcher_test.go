package dispatch_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/dispatch"
	"github.com/momentics/hioload-ipc/fake"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	h := fake.NewHandler()
	if err := d.Register(5, h); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if !d.Dispatch(api.ConnectEvent(5, 0)) {
		t.Fatal("event was not delivered")
	}
	if !d.Dispatch(api.DataEvent(5, []byte("x"))) {
		t.Fatal("data event was not delivered")
	}
	got := h.Events()
	if len(got) != 2 || got[0].Kind != api.EventConnect || got[1].Kind != api.EventData {
		t.Fatalf("unexpected events %+v", got)
	}
	if string(got[1].Chunk) != "x" {
		t.Errorf("chunk = %q", got[1].Chunk)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	if err := d.Register(7, fake.NewHandler()); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := d.Register(7, fake.NewHandler()); !errors.Is(err, api.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	if err := d.Register(api.InvalidHandle, fake.NewHandler()); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := d.Register(8, nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for nil handler, got %v", err)
	}
	if d.Len() != 1 {
		t.Errorf("Len = %d, want 1", d.Len())
	}
}

func TestDispatchAfterUnregisterIsDropped(t *testing.T) {
	var dropped []api.Event
	d := dispatch.New(
		dispatch.WithLogger(quietLogger()),
		dispatch.WithDropHook(func(ev api.Event) { dropped = append(dropped, ev) }),
	)
	h := fake.NewHandler()
	_ = d.Register(9, h)
	if !d.Unregister(9) {
		t.Fatal("Unregister reported an unknown handle")
	}
	if d.Unregister(9) {
		t.Fatal("second Unregister must report false")
	}

	if d.Dispatch(api.Event{Kind: api.EventReadable, Handle: 9}) {
		t.Fatal("event delivered to an unregistered handle")
	}
	if len(h.Events()) != 0 {
		t.Fatalf("handler saw %d events after Unregister", len(h.Events()))
	}
	if len(dropped) != 1 || dropped[0].Kind != api.EventReadable {
		t.Fatalf("drop hook saw %+v", dropped)
	}
	if _, ok := d.Lookup(9); ok {
		t.Error("Lookup found an unregistered handle")
	}
}

func TestDispatchUnknownKindPanics(t *testing.T) {
	d := dispatch.New(dispatch.WithLogger(quietLogger()))
	_ = d.Register(1, fake.NewHandler())

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		err, ok := r.(error)
		var unknown *dispatch.UnknownEventError
		if !ok || !errors.As(err, &unknown) {
			t.Fatalf("unexpected panic value %v", r)
		}
		if unknown.Handle != 1 || unknown.Kind != api.EventKind(42) {
			t.Errorf("unexpected error %+v", unknown)
		}
	}()
	d.Dispatch(api.Event{Kind: 42, Handle: 1})
}

// selfRemoving unregisters its own handle on the first event it sees.
type selfRemoving struct {
	d    *dispatch.Dispatcher
	seen int
}

func (h *selfRemoving) HandleEvent(ev api.Event) {
	h.seen++
	h.d.Unregister(ev.Handle)
}

func TestHandlerUnregistersItselfDuringDispatch(t *testing.T) {
	var dropped int
	d := dispatch.New(dispatch.WithLogger(quietLogger()), dispatch.WithDropHook(func(api.Event) { dropped++ }))
	h := &selfRemoving{d: d}
	if err := d.Register(11, h); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	if !d.Dispatch(api.Event{Kind: api.EventReadable, Handle: 11}) {
		t.Fatal("first event was not delivered")
	}
	if d.Dispatch(api.Event{Kind: api.EventReadable, Handle: 11}) {
		t.Fatal("event delivered after the handler unregistered itself")
	}
	if h.seen != 1 || dropped != 1 {
		t.Fatalf("seen = %d, dropped = %d", h.seen, dropped)
	}
	if _, ok := d.Lookup(11); ok {
		t.Error("Lookup still finds the removed handler")
	}
}
