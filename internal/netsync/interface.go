// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/wire"
)

// Chain provides access to the local chain of blocks.  Append and ReplaceChain
// validate their input and must be atomic with respect to each other.
type Chain interface {
	// LatestBlock returns the head of the chain.
	LatestBlock() *ledger.Block

	// Blocks returns the entire chain ordered by ascending index.
	Blocks() []*ledger.Block

	// GenerateNextBlock returns a block carrying the passed data that extends
	// the current head without adding it to the chain.
	GenerateNextBlock(data string) *ledger.Block

	// Append adds the block to the chain when it extends the current head.
	Append(block *ledger.Block) error

	// ReplaceChain replaces the chain with the candidate when it is a valid
	// chain that is longer than the current one.
	ReplaceChain(candidate []*ledger.Block) error
}

// PeerNotifier provides an interface to send messages to connected peers.
type PeerNotifier interface {
	// Broadcast sends the message to every connected peer and returns the
	// number of peers it was written to.
	Broadcast(msg wire.Message) (int, error)

	// SendTo sends the message to a single peer.  The peer is disconnected
	// when the write fails.
	SendTo(conn *peer.Conn, msg wire.Message) error
}
