// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"

	"github.com/decred/ledgerd/wire"
)

// Dispatcher sends messages to registered peers.  Connections that fail a
// write are unregistered and closed.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher returns a dispatcher that sends to the connections in the
// passed registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Broadcast sends the message to every connection registered at the time of
// the call.  The message is encoded once and the writes run concurrently.  It
// returns the number of connections the message was written to.  An error is
// only returned when the message can not be encoded.
func (d *Dispatcher) Broadcast(msg wire.Message) (int, error) {
	frame, err := wire.Encode(msg)
	if err != nil {
		return 0, err
	}

	var wg sync.WaitGroup
	var mtx sync.Mutex
	var sent, targets int
	for _, conn := range d.registry.AllLive() {
		targets++
		wg.Add(1)
		go func(conn *Conn) {
			defer wg.Done()
			if err := conn.SendRaw(frame); err != nil {
				log.Debugf("Failed to send %s to %s: %v", msg.Command(),
					conn, err)
				d.registry.Disconnect(conn)
				return
			}
			mtx.Lock()
			sent++
			mtx.Unlock()
		}(conn)
	}
	wg.Wait()

	log.Debugf("Broadcast %s%s to %d of %d peers", msg.Command(),
		summarySuffix(msg), sent, targets)
	return sent, nil
}

// SendTo sends the message to a single connection.  The connection is
// unregistered and closed when the write fails.
func (d *Dispatcher) SendTo(conn *Conn, msg wire.Message) error {
	frame, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	log.Debugf("Sending %s%s to %s", msg.Command(), summarySuffix(msg), conn)
	if err := conn.SendRaw(frame); err != nil {
		log.Debugf("Failed to send %s to %s: %v", msg.Command(), conn, err)
		d.registry.Disconnect(conn)
		return err
	}
	return nil
}
