// Copyright (c) 2015-2016 The btcsuite developers
// Copyright (c) 2016-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"

	"github.com/decred/ledgerd/wire"
	"github.com/decred/slog"
)

// log is a logger that is initialized with no output filters.  This
// means the package will not perform any logging by default until the caller
// requests it.
// The default amount of logging is none.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// directionString is a helper function that returns a string that represents
// the direction of a connection (inbound or outbound).
func directionString(inbound bool) string {
	if inbound {
		return "inbound"
	}
	return "outbound"
}

// messageSummary returns a human-readable string which summarizes a message.
// Not all messages have or need a summary.  This is used for debug logging.
func messageSummary(msg wire.Message) string {
	switch msg := msg.(type) {
	case *wire.MsgQueryLatest:
		// No summary.

	case *wire.MsgQueryAll:
		// No summary.

	case *wire.MsgBlock:
		if msg.Block == nil {
			return "no block"
		}
		return fmt.Sprintf("index %d, hash %s", msg.Block.Index,
			msg.Block.Hash)

	case *wire.MsgBlockchain:
		summary := fmt.Sprintf("num %d", len(msg.Blocks))
		if len(msg.Blocks) > 0 && msg.Blocks[len(msg.Blocks)-1] != nil {
			head := msg.Blocks[len(msg.Blocks)-1]
			summary = fmt.Sprintf("%s, head index %d, head hash %s",
				summary, head.Index, head.Hash)
		}
		return summary
	}

	// No summary for other messages.
	return ""
}
