// File: client/exchange.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"errors"
	"log/slog"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/control"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/reactor"
	"github.com/momentics/hioload-ipc/stream"
)

// State is the position of one exchange in its lifecycle.
type State uint8

const (
	StateCreated State = iota
	StateConnecting
	StateWriting
	StateReading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConnecting:
		return "connecting"
	case StateWriting:
		return "writing"
	case StateReading:
		return "reading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// exchange is the connection handler of one Send call. All fields are
// owned by the loop goroutine once the socket is watched.
type exchange struct {
	id       uuid.UUID
	client   *Client
	handle   api.Handle
	payload  []byte
	onResult api.ResultHandler
	state    State
	timer    *time.Timer
	received []byte // bytes delivered by data events
	busy     bool   // stream I/O in flight on the executor
	logger   *slog.Logger
}

func (x *exchange) HandleEvent(ev api.Event) {
	switch ev.Kind {
	case api.EventConnect:
		x.onConnect(ev)
	case api.EventWritable:
		x.onWritable()
	case api.EventReadable:
		x.onReadable()
	case api.EventData:
		x.onData(ev)
	case api.EventAccept:
		x.logger.Warn("client: unexpected accept on client socket", "child", int(ev.Child))
		_ = transport.Close(ev.Child)
	}
}

// Abort is called when the loop shuts down under a pending exchange.
func (x *exchange) Abort(err error) {
	x.finish(api.Fail[api.Payload](err))
}

func (x *exchange) transition(to State) {
	x.logger.Debug("client: state", "from", x.state.String(), "to", to.String())
	x.state = to
}

func (x *exchange) connectTimedOut() {
	if x.state != StateConnecting {
		return
	}
	x.logger.Debug("client: connect timed out")
	x.finish(api.Fail[api.Payload](api.ConnectFailed(syscall.ETIMEDOUT)))
}

func (x *exchange) onConnect(ev api.Event) {
	if x.state != StateConnecting {
		return
	}
	if x.timer != nil {
		x.timer.Stop()
	}
	if !ev.Connected() {
		x.finish(api.Fail[api.Payload](api.ConnectFailed(ev.Status)))
		return
	}
	x.transition(StateWriting)
	if err := x.client.loop.SetInterest(x.handle, reactor.InterestWrite); err != nil {
		x.finish(api.Fail[api.Payload](err))
	}
}

func (x *exchange) onWritable() {
	if x.state != StateWriting || x.busy {
		return
	}
	opts := x.client.opts
	var (
		n   int
		err error
	)
	x.offload(func() {
		start := time.Now()
		n, err = stream.WriteAll(stream.NewSocketOutput(x.handle, opts.WriteTimeout), x.payload)
		opts.Metrics.StreamIO(control.RoleClient, "write", time.Since(start))
	}, func() {
		opts.Metrics.Written(control.RoleClient, n)
		switch {
		case err != nil:
			x.finish(api.Fail[api.Payload](err))
		case n < len(x.payload):
			x.finish(api.Fail[api.Payload](api.WriteIncomplete(n, nil)))
		default:
			if err := transport.ShutdownWrite(x.handle); err != nil {
				x.logger.Debug("client: half-close failed", "error", err)
			}
			x.transition(StateReading)
			if err := x.client.loop.SetInterest(x.handle, reactor.InterestRead); err != nil {
				x.finish(api.Fail[api.Payload](err))
			}
		}
	})
}

func (x *exchange) onData(ev api.Event) {
	if x.state != StateReading || x.busy {
		return
	}
	if ev.Err != nil {
		x.finish(api.Fail[api.Payload](api.ReadIncomplete(x.received, ev.Err)))
		return
	}
	x.received = append(x.received, ev.Chunk...)
	if len(ev.Chunk) == 0 {
		x.finish(api.Ok[api.Payload](x.received))
		return
	}
	x.onReadable()
}

func (x *exchange) onReadable() {
	if x.state != StateReading || x.busy {
		return
	}
	opts := x.client.opts
	var (
		data []byte
		err  error
	)
	x.offload(func() {
		start := time.Now()
		data, err = stream.ReadAll(stream.NewSocketInput(x.handle, opts.ReadTimeout), opts.ChunkSize)
		opts.Metrics.StreamIO(control.RoleClient, "read", time.Since(start))
	}, func() {
		var rerr *api.Error
		if errors.As(err, &rerr) && rerr.Code == api.ErrCodeReadIncomplete {
			partial := append(append([]byte(nil), x.received...), rerr.Partial...)
			x.finish(api.Fail[api.Payload](api.ReadIncomplete(partial, rerr.Err)))
			return
		}
		if err != nil {
			x.finish(api.Fail[api.Payload](err))
			return
		}
		x.finish(api.Ok[api.Payload](append(x.received, data...)))
	})
}

// offload runs work inline or on the executor. While it runs on the
// executor the socket is parked so no event re-enters the handler.
func (x *exchange) offload(work, done func()) {
	loop := x.client.loop
	exec := x.client.opts.Executor
	if exec != nil {
		x.busy = true
		_ = loop.SetInterest(x.handle, 0)
	}
	concurrency.Offload(loop, exec, work, func() {
		x.busy = false
		if x.state.Terminal() {
			return
		}
		done()
	})
}

// abandon retires an exchange that never started; onResult is not called.
func (x *exchange) abandon() {
	if x.timer != nil {
		x.timer.Stop()
	}
	x.state = StateFailed
	x.client.inFlight.Add(-1)
}

// finish delivers the single result of the exchange and releases its socket.
func (x *exchange) finish(res api.Result[api.Payload]) {
	if x.state.Terminal() {
		return
	}
	if res.IsOk() {
		x.transition(StateDone)
		x.client.opts.Metrics.Read(control.RoleClient, len(res.Value))
	} else {
		x.transition(StateFailed)
		x.logger.Debug("client: exchange failed", "error", res.Err)
	}
	if x.timer != nil {
		x.timer.Stop()
	}
	x.client.loop.Invalidate(x.handle)
	x.client.inFlight.Add(-1)
	x.client.opts.Metrics.Exchange(control.RoleClient, res.Err)
	x.onResult(res)
}
