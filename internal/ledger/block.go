// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/crypto/blake256"
)

// genesisTimestamp is the fixed creation time of every genesis block so that
// independently started nodes agree on the first block of the chain.
var genesisTimestamp = time.Date(2016, time.July, 16, 0, 0, 0, 0, time.UTC).Unix()

// DefaultGenesisData is the payload of the genesis block used when no other
// payload is configured.
const DefaultGenesisData = "my genesis block!!"

// Block is a single entry of the ledger.  Blocks are linked together by the
// hash of their predecessor and identified by their own hash which commits to
// all other fields.
type Block struct {
	Index        uint64
	PreviousHash chainhash.Hash
	Timestamp    int64
	Data         string
	Hash         chainhash.Hash
}

// String returns a short human-readable summary of the block.
func (b *Block) String() string {
	return fmt.Sprintf("%v (index %d)", b.Hash, b.Index)
}

// CalcHash returns the hash that commits to the provided block fields.
func CalcHash(index uint64, prevHash *chainhash.Hash, timestamp int64, data string) chainhash.Hash {
	hasher := blake256.NewHasher256()
	hasher.WriteUint64BE(index)
	hasher.WriteBytes(prevHash[:])
	hasher.WriteUint64BE(uint64(timestamp))
	hasher.WriteString(data)
	return chainhash.Hash(hasher.Sum256())
}

// BlockHash returns the hash calculated from the contents of the block, which
// differs from the stored Hash field when the block has been tampered with.
func (b *Block) BlockHash() chainhash.Hash {
	return CalcHash(b.Index, &b.PreviousHash, b.Timestamp, b.Data)
}

// NewBlock returns a block that extends prev with the provided data and
// timestamp.
func NewBlock(prev *Block, timestamp int64, data string) *Block {
	index := prev.Index + 1
	return &Block{
		Index:        index,
		PreviousHash: prev.Hash,
		Timestamp:    timestamp,
		Data:         data,
		Hash:         CalcHash(index, &prev.Hash, timestamp, data),
	}
}

// Genesis returns the deterministic first block of a ledger with the given
// payload.
func Genesis(data string) *Block {
	var zero chainhash.Hash
	return &Block{
		Index:     0,
		Timestamp: genesisTimestamp,
		Data:      data,
		Hash:      CalcHash(0, &zero, genesisTimestamp, data),
	}
}

// CheckNewBlock ensures block is a valid direct successor of prev.
func CheckNewBlock(block, prev *Block) error {
	if block.Index != prev.Index+1 {
		str := fmt.Sprintf("block index %d does not follow previous "+
			"index %d", block.Index, prev.Index)
		return ruleError(ErrInvalidIndex, str)
	}
	if block.PreviousHash != prev.Hash {
		str := fmt.Sprintf("block %d references previous hash %v "+
			"instead of %v", block.Index, block.PreviousHash, prev.Hash)
		return ruleError(ErrBadPrevHash, str)
	}
	if calcHash := block.BlockHash(); calcHash != block.Hash {
		str := fmt.Sprintf("block %d has hash %v, but its contents "+
			"hash to %v", block.Index, block.Hash, calcHash)
		return ruleError(ErrBadBlockHash, str)
	}
	return nil
}

// CheckChain ensures the passed chain starts with the given genesis block and
// every subsequent block is a valid successor of the one before it.
func CheckChain(chain []*Block, genesis *Block) error {
	if len(chain) == 0 {
		return ruleError(ErrEmptyChain, "chain does not contain any blocks")
	}
	if *chain[0] != *genesis {
		str := fmt.Sprintf("chain starts with %v instead of genesis "+
			"block %v", chain[0].Hash, genesis.Hash)
		return ruleError(ErrBadGenesis, str)
	}
	for i := 1; i < len(chain); i++ {
		if err := CheckNewBlock(chain[i], chain[i-1]); err != nil {
			return err
		}
	}
	return nil
}
