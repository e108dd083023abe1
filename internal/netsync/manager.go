// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/container/lru"
	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/ledgerd/peer"
	"github.com/decred/ledgerd/wire"
)

const (
	// defaultMaxForeignGenesis is the default number of foreign genesis
	// blocks to remember.
	defaultMaxForeignGenesis = 100
)

// genesisKey identifies the first block of a received chain by both its
// stored hash and the hash of its contents, so two blocks only share a key
// when every field matches.
type genesisKey struct {
	hash      chainhash.Hash
	blockHash chainhash.Hash
}

// newGenesisKey returns the key of the passed block.
func newGenesisKey(block *ledger.Block) genesisKey {
	return genesisKey{hash: block.Hash, blockHash: block.BlockHash()}
}

// resolution describes the outcome of resolving a received chain against the
// local chain.
type resolution int

const (
	// resolveIgnored indicates the received view was not ahead of the local
	// chain.
	resolveIgnored resolution = iota

	// resolveAppended indicates the received head was appended.
	resolveAppended

	// resolveQueriedAll indicates the received block did not link to the
	// local head and the entire chain was requested from all peers.
	resolveQueriedAll

	// resolveReplaced indicates the local chain was replaced.
	resolveReplaced

	// resolveRejected indicates the chain rejected the received view.
	resolveRejected

	// resolveEmpty indicates there was nothing to resolve.
	resolveEmpty
)

// resolutionStrings is a map of resolutions back to their constant names for
// pretty printing.
var resolutionStrings = map[resolution]string{
	resolveIgnored:    "ignored",
	resolveAppended:   "appended",
	resolveQueriedAll: "queried all",
	resolveReplaced:   "replaced",
	resolveRejected:   "rejected",
	resolveEmpty:      "empty",
}

// String returns the resolution in human-readable form.
func (r resolution) String() string {
	if s, ok := resolutionStrings[r]; ok {
		return s
	}
	return "unknown"
}

// Config holds the configuration options related to the network chain
// synchronization manager.
type Config struct {
	// Chain specifies the chain instance blocks received from peers are
	// resolved against.
	Chain Chain

	// PeerNotifier specifies an implementation to use for sending messages
	// to peers.
	PeerNotifier PeerNotifier

	// MaxForeignGenesis is the number of recently seen foreign genesis
	// blocks to remember.  Chains starting with one of them are dropped
	// without being validated again.  Defaults to 100.
	MaxForeignGenesis uint32
}

// Manager handles every message received from peers and keeps the local chain
// in sync with the longest valid chain known to them.
//
// It is safe for concurrent access.
type Manager struct {
	// cfg specifies the configuration of the manager and is set at creation
	// time and treated as immutable after that.
	cfg Config

	// mtx serializes chain resolution and local block submission so
	// concurrent responses can not interleave an append and a replacement.
	mtx            sync.Mutex
	foreignGenesis *lru.Set[genesisKey]

	// syncIndex is the highest block index announced by any peer.
	syncIndex atomic.Uint64
}

// New returns a new network chain synchronization manager.
func New(cfg *Config) *Manager {
	maxForeign := cfg.MaxForeignGenesis
	if maxForeign == 0 {
		maxForeign = defaultMaxForeignGenesis
	}
	return &Manager{
		cfg:            *cfg,
		foreignGenesis: lru.NewSet[genesisKey](maxForeign),
	}
}

// SyncIndex returns the highest block index announced by any peer.
func (m *Manager) SyncIndex() uint64 {
	return m.syncIndex.Load()
}

// maybeUpdateSyncIndex potentially updates the highest block index announced
// by peers.
//
// This function is safe for concurrent access.
func (m *Manager) maybeUpdateSyncIndex(index uint64) {
	for {
		cur := m.syncIndex.Load()
		if index <= cur || m.syncIndex.CompareAndSwap(cur, index) {
			return
		}
	}
}

// OnMessage handles a message received from the passed connection.  It is
// called from the receive loop of the connection.
func (m *Manager) OnMessage(conn *peer.Conn, msg wire.Message) {
	switch msg := msg.(type) {
	case *wire.MsgQueryLatest:
		m.handleQueryLatestMsg(conn)

	case *wire.MsgQueryAll:
		m.handleQueryAllMsg(conn)

	case *wire.MsgBlock:
		m.handleBlockMsg(conn, msg)

	case *wire.MsgBlockchain:
		m.handleBlockchainMsg(conn, msg)

	default:
		log.Warnf("Received unhandled message of type %T from %s", msg, conn)
	}
}

// handleQueryLatestMsg replies with the head of the local chain.
func (m *Manager) handleQueryLatestMsg(conn *peer.Conn) {
	head := m.cfg.Chain.LatestBlock()
	if err := m.cfg.PeerNotifier.SendTo(conn, wire.NewMsgBlock(head)); err != nil {
		log.Debugf("Unable to send latest block to %s: %v", conn, err)
	}
}

// handleQueryAllMsg replies with the entire local chain.
func (m *Manager) handleQueryAllMsg(conn *peer.Conn) {
	chain := m.cfg.Chain.Blocks()
	if err := m.cfg.PeerNotifier.SendTo(conn, wire.NewMsgBlockchain(chain)); err != nil {
		log.Debugf("Unable to send chain to %s: %v", conn, err)
	}
}

// handleBlockMsg resolves the head announced by a peer.
func (m *Manager) handleBlockMsg(conn *peer.Conn, msg *wire.MsgBlock) {
	if msg.Block == nil {
		log.Warnf("Protocol violation: %s sent %s without a block", conn,
			msg.Command())
		return
	}
	m.resolveChain(conn, []*ledger.Block{msg.Block})
}

// handleBlockchainMsg resolves the chain sent by a peer.
func (m *Manager) handleBlockchainMsg(conn *peer.Conn, msg *wire.MsgBlockchain) {
	if len(msg.Blocks) == 0 {
		log.Warnf("Protocol violation: %s sent an empty %s", conn,
			msg.Command())
		return
	}
	m.resolveChain(conn, msg.Blocks)
}

// resolveChain decides whether the received blocks are ignored, extend the
// local chain, require the entire chain to be requested or replace the local
// chain.  Any change to the local chain is broadcast to all peers.
func (m *Manager) resolveChain(conn *peer.Conn, received []*ledger.Block) resolution {
	if len(received) == 0 {
		log.Warnf("Protocol violation: %s sent no blocks", conn)
		return resolveEmpty
	}
	receivedHead := received[len(received)-1]
	m.maybeUpdateSyncIndex(receivedHead.Index)

	var announce wire.Message
	result := func() resolution {
		m.mtx.Lock()
		defer m.mtx.Unlock()

		localHead := m.cfg.Chain.LatestBlock()
		if receivedHead.Index <= localHead.Index {
			log.Tracef("Received head %d from %s is not ahead of local "+
				"head %d", receivedHead.Index, conn, localHead.Index)
			return resolveIgnored
		}

		log.Debugf("Received head %d from %s is ahead of local head %d",
			receivedHead.Index, conn, localHead.Index)

		switch {
		case localHead.Hash == receivedHead.PreviousHash:
			if err := m.cfg.Chain.Append(receivedHead); err != nil {
				log.Debugf("Rejected block %d (%s) from %s: %v",
					receivedHead.Index, receivedHead.Hash, conn, err)
				return resolveRejected
			}
			log.Infof("Appended block %d (%s) from %s", receivedHead.Index,
				receivedHead.Hash, conn)
			announce = wire.NewMsgBlock(receivedHead)
			return resolveAppended

		case len(received) == 1:
			log.Debugf("Block %d from %s does not link to local head, "+
				"querying full chain", receivedHead.Index, conn)
			announce = wire.NewMsgQueryAll()
			return resolveQueriedAll

		default:
			key := newGenesisKey(received[0])
			if m.foreignGenesis.Contains(key) {
				log.Debugf("Ignoring chain from %s starting with foreign "+
					"genesis block %s", conn, received[0].Hash)
				return resolveRejected
			}
			if err := m.cfg.Chain.ReplaceChain(received); err != nil {
				m.noteRejected(conn, received, err)
				return resolveRejected
			}
			log.Infof("Replaced local chain with %d blocks from %s (head "+
				"%s)", len(received), conn, receivedHead.Hash)
			announce = wire.NewMsgBlock(receivedHead)
			return resolveReplaced
		}
	}()

	if announce != nil {
		if _, err := m.cfg.PeerNotifier.Broadcast(announce); err != nil {
			log.Errorf("Unable to broadcast %s: %v", announce.Command(), err)
		}
	}
	return result
}

// noteRejected logs a rejected chain and remembers its first block when the
// chain does not start with the local genesis block.  Every chain starting
// with that exact block fails the same way, no matter what follows it.
//
// This function MUST be called with the manager lock held.
func (m *Manager) noteRejected(conn *peer.Conn, received []*ledger.Block, err error) {
	head := received[len(received)-1]
	log.Debugf("Rejected chain from %s with head %d (%s): %v", conn,
		head.Index, head.Hash, err)

	if errors.Is(err, ledger.ErrBadGenesis) {
		m.foreignGenesis.Put(newGenesisKey(received[0]))
	}
}

// SubmitBlock builds a block carrying the passed data on top of the local
// head, appends it and announces it to all peers.
func (m *Manager) SubmitBlock(data string) (*ledger.Block, error) {
	m.mtx.Lock()
	block := m.cfg.Chain.GenerateNextBlock(data)
	err := m.cfg.Chain.Append(block)
	m.mtx.Unlock()
	if err != nil {
		return nil, err
	}

	log.Infof("Added block %d (%s)", block.Index, block.Hash)
	if _, err := m.cfg.PeerNotifier.Broadcast(wire.NewMsgBlock(block)); err != nil {
		log.Errorf("Unable to broadcast %s: %v", wire.CmdBlock, err)
	}
	return block, nil
}
