// Copyright (c) 2019-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"context"

	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
)

// Chain represents the local chain for use with the RPC server.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type Chain interface {
	// Blocks returns the entire chain ordered by ascending index.
	Blocks() []*ledger.Block
}

// SyncManager represents a sync manager for use with the RPC server.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type SyncManager interface {
	// SubmitBlock adds a block carrying the passed data to the local chain
	// and announces it to all peers.
	SubmitBlock(data string) (*ledger.Block, error)
}

// ConnManager represents a connection manager for use with the RPC server.
//
// The interface contract requires that all of these methods are safe for
// concurrent access.
type ConnManager interface {
	// Connect establishes a connection to the peer at the passed address.
	Connect(ctx context.Context, addr peer.Addr) error

	// ConnectedPeers returns the addresses of all connected peers.
	ConnectedPeers() []peer.Addr
}
