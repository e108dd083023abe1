// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"iter"
	"sort"
	"sync"
)

// Registry tracks the live connection for each known peer.  There is at most
// one registered connection per address.
type Registry struct {
	sync.Mutex
	conns map[Addr]*Conn
}

// NewRegistry returns an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[Addr]*Conn)}
}

// Register adds the connection under its address, replacing any existing
// entry.  The replaced connection, if any, is returned.  It is not closed and
// unregistering it later has no effect on the registry.
func (r *Registry) Register(conn *Conn) *Conn {
	r.Lock()
	replaced := r.conns[conn.addr]
	r.conns[conn.addr] = conn
	r.Unlock()

	if replaced != nil && replaced != conn {
		log.Debugf("Replaced connection %s with %s", replaced, conn)
		return replaced
	}
	return nil
}

// Unregister removes the entry for the connection's address when it still
// holds the passed connection.  It returns whether an entry was removed.
func (r *Registry) Unregister(conn *Conn) bool {
	r.Lock()
	defer r.Unlock()

	if cur, ok := r.conns[conn.addr]; ok && cur == conn {
		delete(r.conns, conn.addr)
		return true
	}
	return false
}

// Disconnect unregisters and closes the passed connection.
func (r *Registry) Disconnect(conn *Conn) {
	if r.Unregister(conn) {
		log.Debugf("Unregistered %s", conn)
	}
	conn.Close()
}

// AllLive returns a sequence over the registered address and connection pairs
// at the time of the call.  Later changes to the registry are not reflected and
// the sequence may be iterated any number of times.
func (r *Registry) AllLive() iter.Seq2[Addr, *Conn] {
	r.Lock()
	addrs := make([]Addr, 0, len(r.conns))
	conns := make([]*Conn, 0, len(r.conns))
	for addr, conn := range r.conns {
		addrs = append(addrs, addr)
		conns = append(conns, conn)
	}
	r.Unlock()

	return func(yield func(Addr, *Conn) bool) {
		for i := range addrs {
			if !yield(addrs[i], conns[i]) {
				return
			}
		}
	}
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.Lock()
	defer r.Unlock()
	return len(r.conns)
}

// Peers returns the registered addresses sorted by their string form.
func (r *Registry) Peers() []Addr {
	r.Lock()
	addrs := make([]Addr, 0, len(r.conns))
	for addr := range r.conns {
		addrs = append(addrs, addr)
	}
	r.Unlock()

	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
	return addrs
}
