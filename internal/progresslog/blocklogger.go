// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/decred/ledgerd/internal/ledger"
	"github.com/decred/slog"
)

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// BlockLogger provides periodic logging for other services in order to show
// users progress of certain "actions" involving some or all current blocks.
// For example, syncing to the longest chain known to peers.
type BlockLogger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string

	receivedLogBlocks int64
	receivedLogBytes  int64
	lastBlockLogTime  time.Time
}

// New returns a new block progress logger.
//
// The progress message is templated as follows:
//  {progressAction} {numProcessed} {blocks|block} in the last {timePeriod}
//  ({numBytes} {bytes|byte} of data, index {lastBlockIndex},
//  {lastBlockTimeStamp})
func New(progressMessage string, logger slog.Logger) *BlockLogger {
	return &BlockLogger{
		lastBlockLogTime: time.Now(),
		progressAction:   progressMessage,
		subsystemLogger:  logger,
	}
}

// LogBlockIndex logs a new block index as an information message to show
// progress to the user.  In order to prevent spam, it limits logging to one
// message every 10 seconds with duration and totals included unless the block
// reaches the passed sync index.
func (b *BlockLogger) LogBlockIndex(block *ledger.Block, syncIndex uint64) {
	b.Lock()
	defer b.Unlock()

	b.receivedLogBlocks++
	b.receivedLogBytes += int64(len(block.Data))
	now := time.Now()
	duration := now.Sub(b.lastBlockLogTime)
	if block.Index < syncIndex && duration < time.Second*10 {
		return
	}

	// Truncate the duration to 10s of milliseconds.
	durationMillis := int64(duration / time.Millisecond)
	tDuration := 10 * time.Millisecond * time.Duration(durationMillis/10)

	// Log information about new block index.
	b.subsystemLogger.Infof("%s %d %s in the last %s (%d %s of data, "+
		"index %d, %s)", b.progressAction, b.receivedLogBlocks,
		pickNoun(b.receivedLogBlocks, "block", "blocks"), tDuration,
		b.receivedLogBytes, pickNoun(b.receivedLogBytes, "byte", "bytes"),
		block.Index, time.Unix(block.Timestamp, 0).UTC())

	b.receivedLogBlocks = 0
	b.receivedLogBytes = 0
	b.lastBlockLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (b *BlockLogger) SetLastLogTime(time time.Time) {
	b.Lock()
	b.lastBlockLogTime = time
	b.Unlock()
}
