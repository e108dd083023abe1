// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package netsync implements a concurrency safe chain syncing protocol.

The provided implementation of Manager handles every message received from
connected peers.  Queries are answered directly on the connection they arrived
on.  Blocks and chains announced by peers are resolved against the local chain
using the longest valid chain rule:

  - A received view that is not ahead of the local chain is ignored
  - A received head that directly extends the local head is appended
  - A single received block that does not link to the local head causes the
    entire chain to be requested from every peer
  - A longer received chain replaces the local chain

Every change to the local chain is announced to all peers by broadcasting the
new head.
*/
package netsync
