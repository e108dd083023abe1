// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/decred/ledgerd/connmgr"
	"github.com/decred/ledgerd/internal/rpcserver"
	"github.com/decred/ledgerd/peer"
)

// rpcConnManager provides a connection manager for use with the RPC server and
// implements the rpcserver.ConnManager interface.
type rpcConnManager struct {
	connMgr  *connmgr.ConnManager
	registry *peer.Registry
}

// Ensure rpcConnManager implements the rpcserver.ConnManager interface.
var _ rpcserver.ConnManager = (*rpcConnManager)(nil)

// Connect establishes a connection to the peer at the passed address.  It
// returns once the connection has been registered and queried for its latest
// block, or the attempt failed.
//
// This function is safe for concurrent access and is part of the
// rpcserver.ConnManager interface implementation.
func (cm *rpcConnManager) Connect(ctx context.Context, addr peer.Addr) error {
	return cm.connMgr.Connect(ctx, addr)
}

// ConnectedPeers returns the addresses of all registered peers sorted by their
// URL.
//
// This function is safe for concurrent access and is part of the
// rpcserver.ConnManager interface implementation.
func (cm *rpcConnManager) ConnectedPeers() []peer.Addr {
	return cm.registry.Peers()
}
