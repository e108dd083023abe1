// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// Addr identifies a remote node by the endpoint its websocket listener is
// reachable at.  It is a comparable value type and is suitable for use as a
// map key.
type Addr struct {
	Host string
	Port uint16
	Path string
}

// String returns the address as a websocket URL.
func (a Addr) String() string {
	return "ws://" + net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port))) +
		a.Path
}

// parsePort parses a non-zero TCP port.
func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return uint16(port), nil
}

// ParseAddr parses a peer address given as a websocket URL such as
// ws://127.0.0.1:6001.  The port is required.
func ParseAddr(s string) (Addr, error) {
	u, err := url.Parse(s)
	if err != nil {
		str := fmt.Sprintf("malformed peer address %q: %v", s, err)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	if u.Scheme != "ws" {
		str := fmt.Sprintf("peer address %q does not use the ws scheme", s)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		str := fmt.Sprintf("peer address %q must only specify a host, "+
			"port and path", s)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	host := u.Hostname()
	if host == "" {
		str := fmt.Sprintf("peer address %q does not specify a host", s)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		str := fmt.Sprintf("peer address %q: %v", s, err)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	return Addr{Host: host, Port: port, Path: u.Path}, nil
}

// AddrFromRemote returns the address of an inbound peer given the remote
// address of its connection in host:port form.
func AddrFromRemote(remote string) (Addr, error) {
	host, portStr, err := net.SplitHostPort(remote)
	if err != nil {
		str := fmt.Sprintf("malformed remote address %q: %v", remote, err)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	port, err := parsePort(portStr)
	if err != nil {
		str := fmt.Sprintf("remote address %q: %v", remote, err)
		return Addr{}, makeError(ErrInvalidAddr, str)
	}
	return Addr{Host: host, Port: port}, nil
}
