// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"

	"github.com/decred/ledgerd/internal/ledger"
)

// MsgBlockchain implements the Message interface and represents a response
// carrying the entire chain of the sending node ordered by ascending index.
type MsgBlockchain struct {
	Blocks []*ledger.Block
}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgBlockchain) Command() string {
	return CmdBlockchain
}

// MsgType returns the discriminator of the message.  This is part of the
// Message interface implementation.
func (msg *MsgBlockchain) MsgType() MessageType {
	return TypeResponseBlockchain
}

func (msg *MsgBlockchain) encodePayload(env *envelope) error {
	const op = "MsgBlockchain.encodePayload"
	blocks := make([]*jsonBlock, 0, len(msg.Blocks))
	for i, block := range msg.Blocks {
		if block == nil {
			str := fmt.Sprintf("blockchain message entry %d is nil", i)
			return messageError(op, ErrMissingPayload, str)
		}
		blocks = append(blocks, newJSONBlock(block))
	}
	env.Blockchain = &blocks
	return nil
}

// NewMsgBlockchain returns a new blockchain message that carries the passed
// chain.
func NewMsgBlockchain(blocks []*ledger.Block) *MsgBlockchain {
	return &MsgBlockchain{Blocks: blocks}
}
