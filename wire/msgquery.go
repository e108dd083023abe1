// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// MsgQueryLatest implements the Message interface and represents a request for
// the newest block of the receiving node.
//
// This message has no payload.
type MsgQueryLatest struct{}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgQueryLatest) Command() string {
	return CmdQueryLatest
}

// MsgType returns the discriminator of the message.  This is part of the
// Message interface implementation.
func (msg *MsgQueryLatest) MsgType() MessageType {
	return TypeQueryLatest
}

func (msg *MsgQueryLatest) encodePayload(env *envelope) error {
	return nil
}

// NewMsgQueryLatest returns a new querylatest message.
func NewMsgQueryLatest() *MsgQueryLatest {
	return &MsgQueryLatest{}
}

// MsgQueryAll implements the Message interface and represents a request for
// the entire chain of the receiving node.
//
// This message has no payload.
type MsgQueryAll struct{}

// Command returns the protocol command string for the message.  This is part
// of the Message interface implementation.
func (msg *MsgQueryAll) Command() string {
	return CmdQueryAll
}

// MsgType returns the discriminator of the message.  This is part of the
// Message interface implementation.
func (msg *MsgQueryAll) MsgType() MessageType {
	return TypeQueryAll
}

func (msg *MsgQueryAll) encodePayload(env *envelope) error {
	return nil
}

// NewMsgQueryAll returns a new queryall message.
func NewMsgQueryAll() *MsgQueryAll {
	return &MsgQueryAll{}
}
