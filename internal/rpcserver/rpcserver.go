// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
)

const (
	// defaultMaxRequestSize is the default maximum size of a request body.
	defaultMaxRequestSize = 1024 * 1024

	// readHeaderTimeout bounds how long a client may take to send the
	// request headers.
	readHeaderTimeout = 10 * time.Second

	// shutdownTimeout bounds how long in-flight requests are given to
	// finish on shutdown.
	shutdownTimeout = 5 * time.Second
)

// Config is a descriptor containing the RPC server configuration.
type Config struct {
	// Listeners defines a slice of listeners for which the RPC server will
	// take ownership of and accept connections.  Since the RPC server takes
	// ownership of these listeners, they will be closed when the RPC server
	// is stopped.
	Listeners []net.Listener

	// Chain provides access to the local chain.
	Chain Chain

	// SyncMgr defines the sync manager used to add new blocks.
	SyncMgr SyncManager

	// ConnMgr defines the connection manager used to list and connect to
	// peers.
	ConnMgr ConnManager

	// MaxRequestSize is the largest request body accepted.  Defaults to
	// 1 MiB.
	MaxRequestSize int64
}

// Server provides the HTTP control API of a node.
type Server struct {
	cfg Config
	wg  sync.WaitGroup
}

// New returns a new instance of the Server struct.
func New(config *Config) (*Server, error) {
	switch {
	case config.Chain == nil:
		return nil, errors.New("rpcserver: chain cannot be nil")
	case config.SyncMgr == nil:
		return nil, errors.New("rpcserver: sync manager cannot be nil")
	case config.ConnMgr == nil:
		return nil, errors.New("rpcserver: connection manager cannot be nil")
	}
	cfg := *config
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaultMaxRequestSize
	}
	return &Server{cfg: cfg}, nil
}

// BlockResult models a block returned by the server.
type BlockResult struct {
	Index        uint64 `json:"index"`
	PreviousHash string `json:"previousHash"`
	Timestamp    int64  `json:"timestamp"`
	Data         string `json:"data"`
	Hash         string `json:"hash"`
}

// newBlockResult converts a ledger block to its result form.
func newBlockResult(b *ledger.Block) *BlockResult {
	return &BlockResult{
		Index:        b.Index,
		PreviousHash: b.PreviousHash.String(),
		Timestamp:    b.Timestamp,
		Data:         b.Data,
		Hash:         b.Hash.String(),
	}
}

// MineBlockCmd models the body of a mineBlock request.
type MineBlockCmd struct {
	Data string `json:"data"`
}

// AddPeerCmd models the body of an addPeer request.
type AddPeerCmd struct {
	Peer string `json:"peer"`
}

// ErrorResult models the body of a failed request.
type ErrorResult struct {
	Error string `json:"error"`
}

// writeJSON writes v as the JSON body of the response with the passed status
// code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to marshal reply: %v", err)
		http.Error(w, "500 Internal Server Error",
			http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Debugf("Failed to write reply: %v", err)
	}
}

// writeError writes an error result with the passed status code.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &ErrorResult{Error: err.Error()})
}

// readCmd decodes the JSON request body into cmd.  Unknown fields are
// rejected.
func (s *Server) readCmd(w http.ResponseWriter, r *http.Request, cmd interface{}) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxRequestSize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cmd); err != nil {
		return fmt.Errorf("malformed request: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("malformed request: unexpected data after object")
	}
	return nil
}

// handleBlocks returns the entire local chain.
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	blocks := s.cfg.Chain.Blocks()
	results := make([]*BlockResult, 0, len(blocks))
	for _, block := range blocks {
		results = append(results, newBlockResult(block))
	}
	writeJSON(w, http.StatusOK, results)
}

// handleMineBlock adds a block carrying the requested data to the local chain.
func (s *Server) handleMineBlock(w http.ResponseWriter, r *http.Request) {
	var cmd MineBlockCmd
	if err := s.readCmd(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	block, err := s.cfg.SyncMgr.SubmitBlock(cmd.Data)
	if err != nil {
		log.Errorf("Failed to add block: %v", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.Debugf("Added block %d via mineBlock", block.Index)
	writeJSON(w, http.StatusOK, newBlockResult(block))
}

// handlePeers returns the addresses of the connected peers.
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	addrs := s.cfg.ConnMgr.ConnectedPeers()
	results := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		results = append(results, addr.String())
	}
	writeJSON(w, http.StatusOK, results)
}

// handleAddPeer connects to the requested peer.
func (s *Server) handleAddPeer(w http.ResponseWriter, r *http.Request) {
	var cmd AddPeerCmd
	if err := s.readCmd(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := peer.ParseAddr(cmd.Peer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.cfg.ConnMgr.Connect(r.Context(), addr); err != nil {
		log.Warnf("addPeer %s: %v", addr, err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, &AddPeerCmd{Peer: addr.String()})
}

// route sets up the endpoints of the RPC server.
func (s *Server) route(ctx context.Context) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /blocks", s.handleBlocks)
	mux.HandleFunc("POST /mineBlock", s.handleMineBlock)
	mux.HandleFunc("GET /peers", s.handlePeers)
	mux.HandleFunc("POST /addPeer", s.handleAddPeer)

	return &http.Server{
		Handler: mux,

		// Use the provided context as the parent context for all requests to
		// ensure handlers are able to react to both client disconnects as well
		// as shutdown via the provided context.
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},

		ReadHeaderTimeout: readHeaderTimeout,

		// Reroute http server error logging through the rpcserver
		// logger.
		ErrorLog: stdlog.New(logForwarder{}, "", 0),
	}
}

// Run starts the RPC server and blocks until the provided context is
// cancelled.
func (s *Server) Run(ctx context.Context) {
	log.Trace("Starting RPC server")
	server := s.route(ctx)
	for _, listener := range s.cfg.Listeners {
		s.wg.Add(1)
		go func(listener net.Listener) {
			log.Infof("RPC server listening on %s", listener.Addr())
			err := server.Serve(listener)
			if !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("RPC listener %s failed: %v", listener.Addr(), err)
			}
			log.Tracef("RPC listener done for %s", listener.Addr())
			s.wg.Done()
		}(listener)
	}

	<-ctx.Done()
	log.Warnf("RPC server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Problem shutting down rpc: %v", err)
	}
	s.wg.Wait()
	log.Infof("RPC server shutdown complete")
}
