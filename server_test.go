// Copyright (c) 2024-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
)

// testConfig returns a config for a server that listens on random loopback
// ports and connects to the passed peers.
func testConfig(genesisData string, peers ...peer.Addr) *config {
	return &config{
		Listen:       "127.0.0.1:0",
		RPCListeners: []string{"127.0.0.1:0"},
		GenesisData:  genesisData,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxFrameSize: defaultMaxFrameSize,
		peerAddrs:    peers,
	}
}

// waitFor polls the passed condition until it is true or fails the test once
// the timeout expires.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// startServer creates a server from the passed config and runs it until the
// test finishes.
func startServer(t *testing.T, cfg *config) *server {
	t.Helper()

	s, err := newServer(cfg)
	if err != nil {
		t.Fatalf("unable to create server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return s
}

// p2pAddr returns the websocket address the passed server accepts peers on.
func p2pAddr(t *testing.T, s *server) peer.Addr {
	t.Helper()

	addr, err := peer.AddrFromRemote(s.p2pListener.Addr().String())
	if err != nil {
		t.Fatalf("unexpected listener address: %v", err)
	}
	return addr
}

// TestServerSync ensures two nodes connected over websockets converge on the
// same chain when blocks are submitted to either of them.
func TestServerSync(t *testing.T) {
	a := startServer(t, testConfig("sync test"))
	b := startServer(t, testConfig("sync test", p2pAddr(t, a)))

	waitFor(t, "peers to connect", func() bool {
		return a.registry.Count() == 1 && b.registry.Count() == 1
	})

	blockA, err := a.syncManager.SubmitBlock("from a")
	if err != nil {
		t.Fatalf("unable to submit block: %v", err)
	}
	waitFor(t, "block to reach b", func() bool {
		return b.chain.LatestBlock().Hash == blockA.Hash
	})

	blockB, err := b.syncManager.SubmitBlock("from b")
	if err != nil {
		t.Fatalf("unable to submit block: %v", err)
	}
	waitFor(t, "block to reach a", func() bool {
		return a.chain.LatestBlock().Hash == blockB.Hash
	})
	if a.chain.Len() != 3 || b.chain.Len() != 3 {
		t.Fatalf("unexpected chain lengths: a %d, b %d", a.chain.Len(),
			b.chain.Len())
	}
}

// TestServerCatchUp ensures a node that connects to a peer with a longer chain
// replaces its own chain with the peer's.
func TestServerCatchUp(t *testing.T) {
	a := startServer(t, testConfig("catch up test"))
	for _, data := range []string{"one", "two", "three"} {
		if _, err := a.syncManager.SubmitBlock(data); err != nil {
			t.Fatalf("unable to submit block: %v", err)
		}
	}

	b := startServer(t, testConfig("catch up test", p2pAddr(t, a)))
	waitFor(t, "chain replacement", func() bool {
		return b.chain.Len() == a.chain.Len()
	})
	if b.chain.LatestBlock().Hash != a.chain.LatestBlock().Hash {
		t.Fatalf("chain tips differ: a %s, b %s", a.chain.LatestBlock().Hash,
			b.chain.LatestBlock().Hash)
	}
}

// TestNewServerErrors ensures a server is not created when its peer listener
// address is already in use or its proxy is invalid.
func TestNewServerErrors(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to listen: %v", err)
	}
	defer l.Close()

	cfg := testConfig("listen test")
	cfg.Listen = l.Addr().String()
	if _, err := newServer(cfg); err == nil {
		t.Fatal("did not receive expected error")
	}

	// An invalid proxy is rejected before any listener is opened.
	cfg = testConfig("listen test")
	cfg.DisableRPC = true
	cfg.Proxy = "not a host port"
	if _, err := newServer(cfg); err == nil {
		t.Fatal("did not receive expected error for invalid proxy")
	}
}

// TestHandleLedgerNotification ensures malformed notifications are ignored.
func TestHandleLedgerNotification(t *testing.T) {
	s, err := newServer(func() *config {
		cfg := testConfig("notification test")
		cfg.DisableRPC = true
		return cfg
	}())
	if err != nil {
		t.Fatalf("unable to create server: %v", err)
	}
	defer s.p2pListener.Close()

	genesis := s.chain.GenesisBlock()
	notifications := []*ledger.Notification{
		{Type: ledger.NTBlockAppended, Data: genesis},
		{Type: ledger.NTBlockAppended, Data: "bogus"},
		{Type: ledger.NTChainReplaced, Data: []*ledger.Block{genesis}},
		{Type: ledger.NTChainReplaced, Data: []*ledger.Block{}},
		{Type: ledger.NTChainReplaced, Data: nil},
	}
	for _, n := range notifications {
		s.handleLedgerNotification(n)
	}
}
