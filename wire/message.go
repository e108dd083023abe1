// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
)

// MaxMessagePayload is the maximum bytes a message frame can be regardless of
// the kind of message it carries.
const MaxMessagePayload = (1024 * 1024 * 32) // 32MB

// MessageType is the discriminator carried in the type field of every encoded
// message.
type MessageType uint8

// These constants define the message types understood by the protocol.  The
// numeric values are part of the wire format.
const (
	TypeQueryLatest MessageType = iota
	TypeQueryAll
	TypeResponseBlock
	TypeResponseBlockchain
)

// messageTypeStrings is a map of message types back to their protocol names
// for pretty printing.
var messageTypeStrings = map[MessageType]string{
	TypeQueryLatest:        "QUERY_LATEST",
	TypeQueryAll:           "QUERY_ALL",
	TypeResponseBlock:      "RESPONSE_BLOCK",
	TypeResponseBlockchain: "RESPONSE_BLOCKCHAIN",
}

// String returns the MessageType in human-readable form.
func (t MessageType) String() string {
	if s, ok := messageTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown MessageType (%d)", uint8(t))
}

// Commands used in logs to describe the type of message.
const (
	CmdQueryLatest = "querylatest"
	CmdQueryAll    = "queryall"
	CmdBlock       = "block"
	CmdBlockchain  = "blockchain"
)

// Message is an interface that describes a ledger protocol message.  The set
// of implementations is closed: the only messages are MsgQueryLatest,
// MsgQueryAll, MsgBlock and MsgBlockchain, each carrying exactly the payload
// its type requires.
type Message interface {
	// Command returns the short name of the message.
	Command() string

	// MsgType returns the discriminator written to the type field.
	MsgType() MessageType

	// encodePayload populates the payload fields of the envelope.
	encodePayload(env *envelope) error
}
