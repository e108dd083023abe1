// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific RuleError.
const (
	// ErrEmptyChain indicates a candidate chain does not contain any blocks.
	ErrEmptyChain = ErrorKind("ErrEmptyChain")

	// ErrBadGenesis indicates the first block of a candidate chain does not
	// match the genesis block of the ledger.
	ErrBadGenesis = ErrorKind("ErrBadGenesis")

	// ErrInvalidIndex indicates a block does not have the index directly
	// following its predecessor.
	ErrInvalidIndex = ErrorKind("ErrInvalidIndex")

	// ErrBadPrevHash indicates a block does not reference the hash of its
	// predecessor.
	ErrBadPrevHash = ErrorKind("ErrBadPrevHash")

	// ErrBadBlockHash indicates the hash stored in a block does not match the
	// hash calculated from its contents.
	ErrBadBlockHash = ErrorKind("ErrBadBlockHash")

	// ErrChainTooShort indicates a candidate chain is not strictly longer than
	// the current chain and therefore can not replace it.
	ErrChainTooShort = ErrorKind("ErrChainTooShort")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or chain failed due to one of the many validation
// rules.  It has full support for errors.Is and errors.As, so the caller can
// ascertain the specific reason for the error by checking the underlying
// error.
type RuleError struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates a RuleError given a set of arguments.
func ruleError(kind ErrorKind, desc string) RuleError {
	return RuleError{Err: kind, Description: desc}
}
