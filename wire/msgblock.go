// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/decred/ledgerd/internal/ledger"
)

// MsgBlock implements the Message interface and represents a response carrying
// the newest block of the sending node.
type MsgBlock struct {
	Block *ledger.Block
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgBlock) Command() string {
	return CmdBlock
}

// MsgType returns the discriminator of the message.  This is part of the
// Message interface implementation.
func (msg *MsgBlock) MsgType() MessageType {
	return TypeResponseBlock
}

func (msg *MsgBlock) encodePayload(env *envelope) error {
	const op = "MsgBlock.encodePayload"
	if msg.Block == nil {
		return messageError(op, ErrMissingPayload, "block message "+
			"does not contain a block")
	}
	env.Block = newJSONBlock(msg.Block)
	return nil
}

// NewMsgBlock returns a new block message that carries the passed block.
func NewMsgBlock(block *ledger.Block) *MsgBlock {
	return &MsgBlock{Block: block}
}
