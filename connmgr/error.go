// Copyright (c) 2020-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string { return string(e) }

// Error identifies an error related to the connection manager.  It has full
// support for errors.Is and errors.As, so the caller can ascertain the
// specific reason for the error by checking the underlying error.
type Error struct {
	Description string
	Err         error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string { return e.Description }

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error { return e.Err }

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

const (
	// ErrRegistryNil is used to indicate that Registry cannot be nil in
	// the configuration.
	ErrRegistryNil = ErrorKind("ErrRegistryNil")

	// ErrHandlerNil is used to indicate that Handler cannot be nil in
	// the configuration.
	ErrHandlerNil = ErrorKind("ErrHandlerNil")

	// ErrDialNil is used to indicate that Dial cannot be nil in
	// the configuration.
	ErrDialNil = ErrorKind("ErrDialNil")

	// ErrDialFailed indicates an outbound connection could not be
	// established.
	ErrDialFailed = ErrorKind("ErrDialFailed")

	// ErrProbeFailed indicates the initial latest block query could not be
	// sent on a new connection.
	ErrProbeFailed = ErrorKind("ErrProbeFailed")

	// ErrShuttingDown indicates a connection was offered after the
	// connection manager started shutting down.
	ErrShuttingDown = ErrorKind("ErrShuttingDown")

	// ErrInvalidProxy indicates the configured proxy address is invalid.
	ErrInvalidProxy = ErrorKind("ErrInvalidProxy")
)
