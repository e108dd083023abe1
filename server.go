// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/decred/ledgerd/connmgr"
	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/internal/netsync"
	"github.com/decred/ledgerd/internal/progresslog"
	"github.com/decred/ledgerd/internal/rpcserver"
	"github.com/decred/ledgerd/peer"
	"github.com/decred/slog"
	"github.com/gorilla/websocket"
)

const (
	// p2pReadHeaderTimeout bounds how long a peer may take to send the
	// request headers of its websocket handshake.
	p2pReadHeaderTimeout = 10 * time.Second

	// p2pShutdownTimeout bounds how long in-flight websocket handshakes are
	// given to complete on shutdown.
	p2pShutdownTimeout = 5 * time.Second
)

// server provides a ledger node that synchronizes its chain with a set of
// websocket peers.
type server struct {
	chain       *ledger.Ledger
	registry    *peer.Registry
	dispatcher  *peer.Dispatcher
	syncManager *netsync.Manager
	connManager *connmgr.ConnManager
	blockLogger *progresslog.BlockLogger
	rpcServer   *rpcserver.Server

	p2pListener  net.Listener
	p2pServer    *http.Server
	startupPeers []peer.Addr
}

// handleLedgerNotification handles notifications from the ledger.  It logs
// the progress of the local chain towards the highest index announced by
// peers.
func (s *server) handleLedgerNotification(n *ledger.Notification) {
	switch n.Type {
	case ledger.NTBlockAppended:
		block, ok := n.Data.(*ledger.Block)
		if !ok {
			srvrLog.Warnf("Block appended notification is not a block")
			break
		}
		s.blockLogger.LogBlockIndex(block, s.syncManager.SyncIndex())

	case ledger.NTChainReplaced:
		blocks, ok := n.Data.([]*ledger.Block)
		if !ok || len(blocks) == 0 {
			srvrLog.Warnf("Chain replaced notification is not a chain")
			break
		}
		tip := blocks[len(blocks)-1]
		srvrLog.Infof("Replaced local chain with %d blocks (tip %s)",
			len(blocks), tip.Hash)
		s.blockLogger.LogBlockIndex(tip, s.syncManager.SyncIndex())
	}
}

// newServer returns a new ledgerd server configured to listen on the
// addresses in the passed configuration.  Use Run to start it.
func newServer(cfg *config) (*server, error) {
	s := &server{
		registry:     peer.NewRegistry(),
		blockLogger:  progresslog.New("Processed", syncLog),
		startupPeers: cfg.peerAddrs,
	}
	s.dispatcher = peer.NewDispatcher(s.registry)
	s.chain = ledger.New(&ledger.Config{
		Genesis:       ledger.Genesis(cfg.GenesisData),
		Notifications: s.handleLedgerNotification,
	})
	s.syncManager = netsync.New(&netsync.Config{
		Chain:        s.chain,
		PeerNotifier: s.dispatcher,
	})

	wsCfg := &connmgr.WebsocketConfig{
		WriteTimeout:  cfg.WriteTimeout,
		MaxFrameSize:  cfg.MaxFrameSize,
		Proxy:         cfg.Proxy,
		ProxyUser:     cfg.ProxyUser,
		ProxyPassword: cfg.ProxyPass,
	}
	dial, err := connmgr.WebsocketDialer(wsCfg)
	if err != nil {
		return nil, err
	}
	s.connManager, err = connmgr.New(&connmgr.Config{
		Registry:    s.registry,
		Handler:     s.syncManager,
		Dial:        dial,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}

	var rpcListeners []net.Listener
	if !cfg.DisableRPC {
		rpcListeners, err = listen(cfg.RPCListeners)
		if err != nil {
			return nil, err
		}
		s.rpcServer, err = rpcserver.New(&rpcserver.Config{
			Listeners: rpcListeners,
			Chain:     s.chain,
			SyncMgr:   s.syncManager,
			ConnMgr: &rpcConnManager{
				connMgr:  s.connManager,
				registry: s.registry,
			},
		})
		if err != nil {
			closeListeners(rpcListeners)
			return nil, err
		}
	}

	s.p2pListener, err = net.Listen("tcp", cfg.Listen)
	if err != nil {
		closeListeners(rpcListeners)
		return nil, fmt.Errorf("unable to listen on %s: %w", cfg.Listen, err)
	}
	upgrader := &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	s.p2pServer = &http.Server{
		Handler:           s.connManager.WebsocketHandler(upgrader, wsCfg),
		ReadHeaderTimeout: p2pReadHeaderTimeout,
		ErrorLog:          stdlog.New(&logForwarder{srvrLog}, "", 0),
	}

	return s, nil
}

// listen returns a listener for every passed address.  Already opened
// listeners are closed when one of them fails.
func listen(addrs []string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			closeListeners(listeners)
			return nil, fmt.Errorf("unable to listen on %s: %w", addr, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

// closeListeners closes all of the passed listeners.
func closeListeners(listeners []net.Listener) {
	for _, l := range listeners {
		l.Close()
	}
}

// logForwarder forwards the standard library logs of the peer listener to the
// server subsystem logger.
type logForwarder struct {
	logger slog.Logger
}

// Write forwards the data to the logger.
func (l *logForwarder) Write(p []byte) (n int, err error) {
	n = len(p)
	if n > 0 && p[n-1] == '\n' {
		p = p[:n-1]
	}
	l.logger.Debug(string(p))
	return n, nil
}

// servePeers accepts websocket peer connections until the provided context is
// cancelled.
func (s *server) servePeers(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		srvrLog.Infof("P2P server listening on %s", s.p2pListener.Addr())
		err := s.p2pServer.Serve(s.p2pListener)
		if !errors.Is(err, http.ErrServerClosed) {
			srvrLog.Errorf("P2P listener %s failed: %v", s.p2pListener.Addr(),
				err)
		}
		wg.Done()
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		p2pShutdownTimeout)
	defer cancel()
	if err := s.p2pServer.Shutdown(shutdownCtx); err != nil {
		srvrLog.Errorf("Problem shutting down P2P listener: %v", err)
	}
	wg.Wait()
}

// Run starts the server and blocks until the provided context is cancelled.
// This entails accepting peer connections, connecting to the startup peers and
// serving the control API.
func (s *server) Run(ctx context.Context) {
	srvrLog.Trace("Starting server")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		s.servePeers(ctx)
		wg.Done()
	}()
	go func() {
		s.connManager.Run(ctx)
		wg.Done()
	}()

	if s.rpcServer != nil {
		wg.Add(1)
		go func() {
			s.rpcServer.Run(ctx)
			wg.Done()
		}()
	}

	genesis := s.chain.GenesisBlock()
	srvrLog.Infof("Genesis block %s", genesis.Hash)
	if len(s.startupPeers) > 0 {
		s.connManager.ConnectToPeers(ctx, s.startupPeers)
	}

	// Shutdown the server when the context is cancelled.
	<-ctx.Done()
	srvrLog.Warnf("Server shutting down")
	wg.Wait()
	srvrLog.Trace("Server stopped")
}
