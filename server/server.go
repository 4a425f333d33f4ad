// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server accepts connections on an injected event loop, reads one request
// per connection and answers with whatever the response producer supplies.

package server

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/reactor"
)

// Server is Stopped until Start succeeds and again after Stop.
type Server struct {
	loop       *concurrency.EventLoop
	address    api.Address
	onRequest  api.RequestHandler
	onResponse api.ResponseProducer
	opts       *Options

	mu     sync.Mutex
	handle api.Handle
	bound  api.Address
}

// New creates a stopped server. onRequest sees every request outcome;
// onResponse is asked for the reply of each connection and may return nil
// to send none. Both run on the loop goroutine.
func New(loop *concurrency.EventLoop, address api.Address, onRequest api.RequestHandler, onResponse api.ResponseProducer, options ...ServerOption) *Server {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}
	if onRequest == nil {
		onRequest = func(api.Result[api.Payload]) {}
	}
	if onResponse == nil {
		onResponse = func() api.Payload { return nil }
	}
	return &Server{
		loop:       loop,
		address:    address,
		onRequest:  onRequest,
		onResponse: onResponse,
		opts:       opts,
		handle:     api.InvalidHandle,
	}
}

// Start binds the configured address and begins accepting. Creation, bind
// and listen failures are returned with their OS error code and leave the
// server stopped. Starting a started server returns api.ErrAlreadyActive.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != api.InvalidHandle {
		return api.ErrAlreadyActive
	}

	h, err := transport.OpenStream()
	if err != nil {
		return err
	}
	if err := transport.Bind(h, s.address); err != nil {
		_ = transport.Close(h)
		return err
	}
	if err := transport.Listen(h, s.opts.Backlog); err != nil {
		_ = transport.Close(h)
		return err
	}
	bound, err := transport.LocalAddress(h)
	if err != nil {
		bound = s.address
	}

	l := &listener{server: s, handle: h}
	watch := concurrency.Watch{Mode: concurrency.ModeListening, Interest: reactor.InterestRead, Data: s.opts.DataEvents}
	if err := s.loop.Watch(h, watch, l); err != nil {
		_ = transport.Close(h)
		return fmt.Errorf("server start: %w", err)
	}

	s.handle = h
	s.bound = bound
	s.opts.Logger.Info("server: listening", "address", bound.String(), "handle", int(h))
	return nil
}

// Stop invalidates the listening socket. No event for it reaches the
// server afterwards. Stopping a stopped server is a no-op.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == api.InvalidHandle {
		return
	}
	s.loop.Invalidate(s.handle)
	s.opts.Logger.Info("server: stopped", "address", s.bound.String())
	s.handle = api.InvalidHandle
}

// Active reports whether the server is started.
func (s *Server) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != api.InvalidHandle
}

// Addr returns the bound address while started (the real port when 0 was
// configured), the configured address otherwise.
func (s *Server) Addr() api.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == api.InvalidHandle {
		return s.address
	}
	return s.bound
}
