// Package transport
// Author: momentics <momentics@gmail.com>
//
// Raw non-blocking IPv4 TCP socket primitives used by the event loop,
// client and server. Only Linux is supported; other platforms get stubs
// returning api.ErrNotSupported.
package transport
