// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/wire"
)

// MessageHandler is the interface that receives every message decoded by the
// receive loop of a connection.  OnMessage is called from the receive loop of
// the connection the message arrived on, so it is invoked concurrently for
// different connections and sequentially for a single connection.
type MessageHandler interface {
	OnMessage(conn *peer.Conn, msg wire.Message)
}

// Config holds the configuration options related to the connection manager.
type Config struct {
	// Registry is where every established connection is registered for
	// lookup and broadcast.
	Registry *peer.Registry

	// Handler is handed every decoded message.
	Handler MessageHandler

	// Dial opens an outbound transport to the passed peer address.
	Dial func(ctx context.Context, addr peer.Addr) (peer.Transport, error)

	// DialTimeout specifies the amount of time to wait for an outbound
	// connection to complete before giving up.  Zero means no timeout.
	DialTimeout time.Duration
}

// ConnManager establishes outbound connections to peers, accepts inbound ones
// and runs the receive loop of each until its connection closes.  It does not
// retry failed or lost connections.
type ConnManager struct {
	cfg Config

	// mtx protects the following fields.
	mtx          sync.Mutex
	conns        map[*peer.Conn]struct{}
	shuttingDown bool

	wg sync.WaitGroup
}

// New returns a new connection manager with the provided configuration.
func New(cfg *Config) (*ConnManager, error) {
	switch {
	case cfg.Registry == nil:
		return nil, makeError(ErrRegistryNil, "config: registry cannot be nil")
	case cfg.Handler == nil:
		return nil, makeError(ErrHandlerNil, "config: handler cannot be nil")
	case cfg.Dial == nil:
		return nil, makeError(ErrDialNil, "config: dial cannot be nil")
	}
	return &ConnManager{
		cfg:   *cfg,
		conns: make(map[*peer.Conn]struct{}),
	}, nil
}

// ConnectToPeers attempts to connect to every passed address.  Each attempt
// runs independently in its own goroutine and a failed attempt is logged
// without affecting the others.
func (cm *ConnManager) ConnectToPeers(ctx context.Context, addrs []peer.Addr) {
	for _, addr := range addrs {
		go func(addr peer.Addr) {
			if err := cm.Connect(ctx, addr); err != nil {
				log.Warnf("%v", err)
			}
		}(addr)
	}
}

// Connect dials the passed address and, once connected, starts serving the
// connection.  It returns once the connection is established and the initial
// latest block query has been sent.
func (cm *ConnManager) Connect(ctx context.Context, addr peer.Addr) error {
	if cm.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cm.cfg.DialTimeout)
		defer cancel()
	}

	log.Debugf("Attempting to connect to %s", addr)
	transport, err := cm.cfg.Dial(ctx, addr)
	if err != nil {
		str := fmt.Sprintf("failed to connect to %s: %v", addr, err)
		return Error{Description: str, Err: errors.Join(ErrDialFailed, err)}
	}
	return cm.initConnection(peer.NewConn(addr, transport, false))
}

// AcceptInbound starts serving a connection accepted from the peer at origin.
func (cm *ConnManager) AcceptInbound(transport peer.Transport, origin peer.Addr) error {
	return cm.initConnection(peer.NewConn(origin, transport, true))
}

// initConnection registers the connection, sends the initial latest block
// query and starts the receive loop.
func (cm *ConnManager) initConnection(conn *peer.Conn) error {
	cm.mtx.Lock()
	if cm.shuttingDown {
		cm.mtx.Unlock()
		conn.Close()
		str := fmt.Sprintf("not accepting connection %s while shutting "+
			"down", conn)
		return makeError(ErrShuttingDown, str)
	}
	cm.conns[conn] = struct{}{}
	cm.wg.Add(1)
	cm.mtx.Unlock()

	cm.cfg.Registry.Register(conn)
	log.Infof("New peer %s", conn)

	if err := conn.Send(wire.NewMsgQueryLatest()); err != nil {
		cm.disconnect(conn)
		cm.wg.Done()
		str := fmt.Sprintf("failed to query latest block from %s: %v",
			conn, err)
		return Error{Description: str, Err: errors.Join(ErrProbeFailed, err)}
	}

	go cm.inHandler(conn)
	return nil
}

// disconnect unregisters and closes the connection and stops tracking it.
func (cm *ConnManager) disconnect(conn *peer.Conn) {
	cm.cfg.Registry.Disconnect(conn)
	cm.mtx.Lock()
	delete(cm.conns, conn)
	cm.mtx.Unlock()
}

// inHandler handles all incoming frames for the connection.  Frames that do
// not decode are logged and skipped.  It must be run as a goroutine.
func (cm *ConnManager) inHandler(conn *peer.Conn) {
	defer cm.wg.Done()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			// Log the error if it's not due to disconnecting.
			if !errors.Is(err, io.EOF) && !conn.Closed() {
				log.Warnf("Read error from %s: %v", conn, err)
			}
			break
		}

		msg, err := wire.Decode(frame)
		if err != nil {
			log.Warnf("Dropping invalid message from %s: %v", conn, err)
			continue
		}
		log.Tracef("Received %s from %s", msg.Command(), conn)
		cm.cfg.Handler.OnMessage(conn, msg)
	}

	cm.disconnect(conn)
	log.Infof("Peer %s disconnected", conn)
}

// Count returns the number of connections being served.
func (cm *ConnManager) Count() int {
	cm.mtx.Lock()
	defer cm.mtx.Unlock()
	return len(cm.conns)
}

// Run starts the connection manager and blocks until the provided context is
// cancelled.  All connections are then closed and Run waits for their receive
// loops to finish.
func (cm *ConnManager) Run(ctx context.Context) {
	log.Trace("Connection manager started")
	<-ctx.Done()

	cm.mtx.Lock()
	cm.shuttingDown = true
	conns := make([]*peer.Conn, 0, len(cm.conns))
	for conn := range cm.conns {
		conns = append(conns, conn)
	}
	cm.mtx.Unlock()

	for _, conn := range conns {
		cm.cfg.Registry.Disconnect(conn)
	}
	cm.wg.Wait()
	log.Trace("Connection manager stopped")
}
