// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"fmt"
	"sync"
	"time"
)

// NotificationType represents the type of a ledger notification.
type NotificationType int

const (
	// NTBlockAppended indicates a block was appended to the chain.  The
	// notification data is the appended *Block.
	NTBlockAppended NotificationType = iota

	// NTChainReplaced indicates the entire chain was replaced.  The
	// notification data is the new []*Block.
	NTChainReplaced
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockAppended: "NTBlockAppended",
	NTChainReplaced: "NTChainReplaced",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification defines a notification that is sent to the caller via the
// callback function provided during the call to New.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is used for a caller to provide a callback for
// notifications about various ledger events.
type NotificationCallback func(*Notification)

// Config houses the configuration of a Ledger.
type Config struct {
	// Genesis is the first block of the chain.  It must be the same for every
	// node participating in the network.
	Genesis *Block

	// Notifications is an optional callback invoked after every successful
	// mutation of the chain.  It is invoked with the ledger lock released.
	Notifications NotificationCallback

	// Now returns the current time.  It defaults to time.Now.
	Now func() time.Time
}

// Ledger is an in-memory append-only chain of blocks.  Append and ReplaceChain
// are the only mutation points and are atomic with respect to each other.
//
// It is safe for concurrent access.
type Ledger struct {
	genesis       *Block
	notifications NotificationCallback
	now           func() time.Time

	mtx    sync.RWMutex
	blocks []*Block
}

// New returns a ledger that only contains the configured genesis block.
func New(cfg *Config) *Ledger {
	genesis := cfg.Genesis
	if genesis == nil {
		genesis = Genesis(DefaultGenesisData)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		genesis:       genesis,
		notifications: cfg.Notifications,
		now:           now,
		blocks:        []*Block{genesis},
	}
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications.
func (l *Ledger) sendNotification(typ NotificationType, data interface{}) {
	if l.notifications == nil {
		return
	}
	l.notifications(&Notification{Type: typ, Data: data})
}

// GenesisBlock returns the first block of the chain.
func (l *Ledger) GenesisBlock() *Block {
	return l.genesis
}

// LatestBlock returns the head of the chain.
func (l *Ledger) LatestBlock() *Block {
	l.mtx.RLock()
	head := l.blocks[len(l.blocks)-1]
	l.mtx.RUnlock()
	return head
}

// Blocks returns a copy of the current chain ordered by ascending index.
func (l *Ledger) Blocks() []*Block {
	l.mtx.RLock()
	blocks := make([]*Block, len(l.blocks))
	copy(blocks, l.blocks)
	l.mtx.RUnlock()
	return blocks
}

// Len returns the number of blocks in the chain.
func (l *Ledger) Len() int {
	l.mtx.RLock()
	n := len(l.blocks)
	l.mtx.RUnlock()
	return n
}

// Append adds block to the end of the chain when it validly extends the
// current head.
func (l *Ledger) Append(block *Block) error {
	l.mtx.Lock()
	head := l.blocks[len(l.blocks)-1]
	if err := CheckNewBlock(block, head); err != nil {
		l.mtx.Unlock()
		return err
	}
	l.blocks = append(l.blocks, block)
	l.mtx.Unlock()

	log.Debugf("Appended block %v", block)
	l.sendNotification(NTBlockAppended, block)
	return nil
}

// ReplaceChain replaces the current chain with candidate when candidate is a
// validly linked chain starting at the genesis block that is strictly longer
// than the current chain.
func (l *Ledger) ReplaceChain(candidate []*Block) error {
	if err := CheckChain(candidate, l.genesis); err != nil {
		return err
	}

	l.mtx.Lock()
	if len(candidate) <= len(l.blocks) {
		str := fmt.Sprintf("candidate chain length %d is not longer than "+
			"current length %d", len(candidate), len(l.blocks))
		l.mtx.Unlock()
		return ruleError(ErrChainTooShort, str)
	}
	blocks := make([]*Block, len(candidate))
	copy(blocks, candidate)
	l.blocks = blocks
	l.mtx.Unlock()

	log.Infof("Replaced chain with received chain of length %d (head %v)",
		len(blocks), blocks[len(blocks)-1])
	l.sendNotification(NTChainReplaced, blocks)
	return nil
}

// GenerateNextBlock returns a block with the provided data that extends the
// current head.  The block is not added to the chain.
func (l *Ledger) GenerateNextBlock(data string) *Block {
	return NewBlock(l.LatestBlock(), l.now().Unix(), data)
}
