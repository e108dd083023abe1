// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// ErrorKind identifies a kind of error.  It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrMalformedMsg is returned when a frame is not a well-formed message
	// envelope, such as invalid JSON, unknown fields, trailing data, or
	// invalid hashes.
	ErrMalformedMsg = ErrorKind("ErrMalformedMsg")

	// ErrUnknownType is returned when a message specifies a type that is not
	// part of the protocol.
	ErrUnknownType = ErrorKind("ErrUnknownType")

	// ErrMissingPayload is returned when a message type that requires a
	// payload does not carry one.
	ErrMissingPayload = ErrorKind("ErrMissingPayload")

	// ErrUnexpectedPayload is returned when a message carries a payload that
	// its type does not allow.
	ErrUnexpectedPayload = ErrorKind("ErrUnexpectedPayload")

	// ErrMsgTooLarge is returned when a frame exceeds the maximum message
	// size allowed.
	ErrMsgTooLarge = ErrorKind("ErrMsgTooLarge")

	// ErrInvalidMsg is returned for an invalid message structure.
	ErrInvalidMsg = ErrorKind("ErrInvalidMsg")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// MessageError identifies an error related to wire messages. It has
// full support for errors.Is and errors.As, so the caller can
// ascertain the specific reason for the error by checking the
// underlying error.
type MessageError struct {
	Func        string
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e MessageError) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e MessageError) Unwrap() error {
	return e.Err
}

// messageError creates a MessageError given a set of arguments.
func messageError(fn string, kind ErrorKind, desc string) MessageError {
	return MessageError{Func: fn, Err: kind, Description: desc}
}
