// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"sync/atomic"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/decred/ledgerd/wire"
)

// Transport is a duplex channel that carries discrete text frames to and from
// exactly one remote node.
//
// ReadFrame blocks until the next frame arrives and returns io.EOF once the
// remote end has closed the channel.  WriteFrame may be called concurrently
// with ReadFrame.  Close unblocks any pending reads and may be called more
// than once.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Conn is an open connection to a single peer.  It pairs the transport with the
// address of the peer and a random session id that distinguishes connections
// to the same address in logs.
type Conn struct {
	// The following fields are only accessed atomically.
	closed atomic.Bool

	addr      Addr
	id        uint64
	inbound   bool
	transport Transport
}

// NewConn returns a new connection to the peer at addr over the passed
// transport.
func NewConn(addr Addr, transport Transport, inbound bool) *Conn {
	return &Conn{
		addr:      addr,
		id:        rand.Uint64(),
		inbound:   inbound,
		transport: transport,
	}
}

// Addr returns the address of the remote peer.
func (c *Conn) Addr() Addr {
	return c.addr
}

// ID returns the session id of the connection.
func (c *Conn) ID() uint64 {
	return c.id
}

// Inbound returns whether the connection was initiated by the remote peer.
func (c *Conn) Inbound() bool {
	return c.inbound
}

// String returns the peer address along with the direction and session id of
// the connection.
func (c *Conn) String() string {
	return fmt.Sprintf("%s (%s, session %016x)", c.addr,
		directionString(c.inbound), c.id)
}

// ReadFrame blocks until the next frame is received from the peer.
func (c *Conn) ReadFrame() ([]byte, error) {
	return c.transport.ReadFrame()
}

// SendRaw writes an already encoded frame to the peer.
func (c *Conn) SendRaw(frame []byte) error {
	if c.closed.Load() {
		str := fmt.Sprintf("connection %s is closed", c)
		return makeError(ErrConnClosed, str)
	}
	return c.transport.WriteFrame(frame)
}

// Send encodes the passed message and writes it to the peer.
func (c *Conn) Send(msg wire.Message) error {
	frame, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	log.Debugf("Sending %v%s to %s", msg.Command(), summarySuffix(msg), c)
	return c.SendRaw(frame)
}

// Close closes the underlying transport.  Only the first call has any effect.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	log.Tracef("Closing connection %s", c)
	return c.transport.Close()
}

// Closed returns whether Close has been called on the connection.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// summarySuffix returns the message summary formatted for appending to a log
// line, or an empty string when the message has none.
func summarySuffix(msg wire.Message) string {
	summary := messageSummary(msg)
	if summary == "" {
		return ""
	}
	return " (" + summary + ")"
}
