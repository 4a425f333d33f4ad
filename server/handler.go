// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/control"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/reactor"
	"github.com/momentics/hioload-ipc/stream"
)

// listener is the connection handler of the listening socket.
type listener struct {
	server *Server
	handle api.Handle
}

func (l *listener) HandleEvent(ev api.Event) {
	s := l.server
	switch ev.Kind {
	case api.EventAccept:
		s.accept(ev.Child)
	case api.EventConnect:
		s.connectStatus(ev)
	default:
		s.opts.Logger.Debug("server: ignored event on listening socket", "kind", ev.Kind.String())
	}
}

func (s *Server) connectStatus(ev api.Event) {
	if !ev.Connected() {
		s.request(api.Fail[api.Payload](api.ConnectFailed(ev.Status)))
	}
}

func (s *Server) request(res api.Result[api.Payload]) {
	if res.IsOk() {
		s.opts.Metrics.Read(control.RoleServer, len(res.Value))
	}
	s.onRequest(res)
}

// accept reads the whole request of child, reports it, then waits for the
// child to become writable to answer.
func (s *Server) accept(child api.Handle) {
	c := &conn{
		server: s,
		handle: child,
		logger: s.opts.Logger.With("conn", uuid.NewString(), "handle", int(child)),
	}
	c.logger.Debug("server: accepted connection")

	if s.opts.DataEvents {
		// Chunks are reported as they arrive; end of stream switches to answering.
		watch := concurrency.Watch{Mode: concurrency.ModeStream, Interest: reactor.InterestRead, Data: true}
		if err := s.loop.Watch(child, watch, c); err != nil {
			c.logger.Warn("server: cannot watch connection", "error", err)
			_ = transport.Close(child)
		}
		return
	}

	// Parked while the request is read, so loop shutdown still closes it.
	if err := s.loop.Watch(child, concurrency.Watch{Mode: concurrency.ModeStream}, c); err != nil {
		c.logger.Warn("server: cannot watch connection", "error", err)
		_ = transport.Close(child)
		return
	}

	var (
		data []byte
		err  error
	)
	concurrency.Offload(s.loop, s.opts.Executor, func() {
		start := time.Now()
		data, err = stream.ReadAll(stream.NewSocketInput(child, s.opts.ReadTimeout), s.opts.ChunkSize)
		s.opts.Metrics.StreamIO(control.RoleServer, "read", time.Since(start))
	}, func() {
		if err != nil {
			c.logger.Debug("server: request read failed", "error", err)
			s.request(api.Fail[api.Payload](err))
		} else {
			c.logger.Debug("server: request received", "bytes", len(data))
			s.request(api.Ok[api.Payload](data))
		}
		if err := s.loop.SetInterest(child, reactor.InterestWrite); err != nil {
			c.logger.Warn("server: cannot wait for writability", "error", err)
			s.loop.Invalidate(child)
		}
	})
}

// conn is the connection handler of one accepted socket.
type conn struct {
	server    *Server
	handle    api.Handle
	logger    *slog.Logger
	responded bool
}

func (c *conn) HandleEvent(ev api.Event) {
	switch ev.Kind {
	case api.EventWritable:
		c.respond()
	case api.EventData:
		c.onData(ev)
	case api.EventConnect:
		c.server.connectStatus(ev)
	case api.EventAccept:
		_ = transport.Close(ev.Child)
	default:
		c.logger.Debug("server: ignored event on connection", "kind", ev.Kind.String())
	}
}

func (c *conn) onData(ev api.Event) {
	s := c.server
	switch {
	case ev.Err != nil:
		c.logger.Debug("server: request read failed", "error", ev.Err)
		s.request(api.Fail[api.Payload](api.ReadIncomplete(nil, ev.Err)))
		s.opts.Metrics.Exchange(control.RoleServer, ev.Err)
		s.loop.Invalidate(c.handle)
	case len(ev.Chunk) > 0:
		s.request(api.Ok[api.Payload](ev.Chunk))
	default:
		if err := s.loop.SetInterest(c.handle, reactor.InterestWrite); err != nil {
			c.logger.Warn("server: cannot wait for writability", "error", err)
			s.loop.Invalidate(c.handle)
		}
	}
}

// respond asks the producer for a reply, writes it when there is one and
// closes the connection, which ends the peer's read.
func (c *conn) respond() {
	if c.responded {
		return
	}
	c.responded = true
	s := c.server

	payload := s.onResponse()
	if payload == nil {
		c.logger.Debug("server: no response for connection")
		s.opts.Metrics.Exchange(control.RoleServer, nil)
		s.loop.Invalidate(c.handle)
		return
	}

	if s.opts.Executor != nil {
		_ = s.loop.SetInterest(c.handle, 0)
	}
	var (
		n   int
		err error
	)
	concurrency.Offload(s.loop, s.opts.Executor, func() {
		start := time.Now()
		n, err = stream.WriteAll(stream.NewSocketOutput(c.handle, s.opts.WriteTimeout), payload)
		s.opts.Metrics.StreamIO(control.RoleServer, "write", time.Since(start))
	}, func() {
		s.opts.Metrics.Written(control.RoleServer, n)
		if err == nil && n < len(payload) {
			err = api.WriteIncomplete(n, nil)
		}
		if err != nil {
			var e *api.Error
			if errors.As(err, &e) {
				c.logger.Error("server: response write failed", "code", e.Code.String(), "written", e.Bytes, "error", err)
			} else {
				c.logger.Error("server: response write failed", "error", err)
			}
		} else {
			c.logger.Debug("server: response sent", "bytes", n)
		}
		s.opts.Metrics.Exchange(control.RoleServer, err)
		s.loop.Invalidate(c.handle)
	})
}
