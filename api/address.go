// File: api/address.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// IPv4 endpoint shared by client and server.

package api

import (
	"fmt"
	"net/netip"
	"strconv"
)

// DefaultPort is the port used by the demo programs.
const DefaultPort = 50505

// Address is an immutable IPv4 endpoint.
type Address struct {
	ip   [4]byte
	port uint16
}

// NewAddress builds an endpoint from raw octets and a port.
func NewAddress(ip [4]byte, port uint16) Address {
	return Address{ip: ip, port: port}
}

// Loopback returns 127.0.0.1:port.
func Loopback(port uint16) Address {
	return Address{ip: [4]byte{127, 0, 0, 1}, port: port}
}

// ParseAddress parses "a.b.c.d:port". IPv6 endpoints are rejected.
func ParseAddress(s string) (Address, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	addr := ap.Addr().Unmap()
	if !addr.Is4() {
		return Address{}, fmt.Errorf("parse address %q: %w", s, ErrInvalidArgument)
	}
	return Address{ip: addr.As4(), port: ap.Port()}, nil
}

// IP returns the four address octets.
func (a Address) IP() [4]byte { return a.ip }

// Port returns the TCP port.
func (a Address) Port() uint16 { return a.port }

// WithPort returns a copy of a bound to another port.
func (a Address) WithPort(port uint16) Address {
	a.port = port
	return a
}

func (a Address) String() string {
	return netip.AddrFrom4(a.ip).String() + ":" + strconv.Itoa(int(a.port))
}
