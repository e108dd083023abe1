// Copyright (c) 2019-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package rpcserver implements the HTTP control API of a node.

Overview

The server exposes a small JSON over HTTP interface to inspect the local chain,
add blocks to it, list the connected peers and connect to new peers:

	GET  /blocks     the entire local chain
	POST /mineBlock  {"data": "..."} adds a block carrying the data
	GET  /peers      the addresses of all connected peers
	POST /addPeer    {"peer": "ws://host:port"} connects to a peer

The interfaces in this package allow the systems the server interacts with to
be loosely coupled.
*/
package rpcserver
