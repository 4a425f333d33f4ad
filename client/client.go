// File: client/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Client sends one payload per call and receives one response, driven by
// socket events of an injected event loop.

package client

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/momentics/hioload-ipc/api"
	"github.com/momentics/hioload-ipc/internal/concurrency"
	"github.com/momentics/hioload-ipc/internal/transport"
	"github.com/momentics/hioload-ipc/reactor"
)

// Client opens one connection per Send. Sends may overlap; each owns its
// socket and handler.
type Client struct {
	loop     *concurrency.EventLoop
	opts     *Options
	inFlight atomic.Int64
}

// New creates a client bound to loop.
func New(loop *concurrency.EventLoop, options ...Option) *Client {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}
	return &Client{loop: loop, opts: opts}
}

// InFlight returns the number of exchanges whose result is still pending.
func (c *Client) InFlight() int {
	return int(c.inFlight.Load())
}

// Send connects to addr, writes payload once the socket is writable, reads
// the response once it is readable and calls onResult exactly once, on the
// loop goroutine.
//
// Send returns an error only when no exchange was started: socket
// allocation failed or the loop is closed. In that case onResult is never
// called. Every later failure, connect failures included, goes to onResult.
func (c *Client) Send(payload api.Payload, addr api.Address, onResult api.ResultHandler) error {
	if onResult == nil {
		return fmt.Errorf("client send: %w", api.ErrInvalidArgument)
	}
	h, err := transport.OpenStream()
	if err != nil {
		return err
	}

	x := &exchange{
		id:       uuid.New(),
		client:   c,
		handle:   h,
		payload:  payload,
		onResult: onResult,
		state:    StateConnecting,
	}
	x.logger = c.opts.Logger.With("exchange", x.id.String(), "handle", int(h))

	interest := reactor.InterestWrite
	errno := transport.Connect(h, addr)
	if errno != 0 {
		// Reported through the dispatcher like any other connect outcome.
		interest = 0
	} else if c.opts.ConnectTimeout > 0 {
		x.timer = c.loop.AfterFunc(c.opts.ConnectTimeout, x.connectTimedOut)
	}

	c.inFlight.Add(1)
	watch := concurrency.Watch{Mode: concurrency.ModeConnecting, Interest: interest, Data: c.opts.DataEvents}
	if err := c.loop.Watch(h, watch, x); err != nil {
		x.abandon()
		_ = transport.Close(h)
		return fmt.Errorf("client send: %w", err)
	}
	x.logger.Debug("client: connecting", "address", addr.String())

	if errno != 0 {
		if err := c.loop.Inject(api.ConnectEvent(h, errno)); err != nil {
			c.loop.Invalidate(h)
			x.abandon()
			return fmt.Errorf("client send: %w", err)
		}
	}
	return nil
}
