package server

import (
	"errors"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/momentics/hioload-ipc/api"
)

func TestListenerReportsConnectFailure(t *testing.T) {
	var got []api.Result[api.Payload]
	s := New(nil, api.Loopback(0), func(res api.Result[api.Payload]) { got = append(got, res) }, nil,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	l := &listener{server: s, handle: 3}

	l.HandleEvent(api.ConnectEvent(3, 0))
	if len(got) != 0 {
		t.Fatalf("successful connect status reported as a request: %+v", got)
	}

	l.HandleEvent(api.ConnectEvent(3, syscall.ECONNRESET))
	if len(got) != 1 {
		t.Fatalf("got %d request outcomes, want 1", len(got))
	}
	if !errors.Is(got[0].Err, api.ErrConnectFailed) || api.ErrnoOf(got[0].Err) != syscall.ECONNRESET {
		t.Fatalf("unexpected outcome %v", got[0].Err)
	}
}
