// Copyright (c) 2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/ledgerd/internal/ledger"
)

// envelope is the textual frame every message is encoded to.  Exactly one of
// the payload fields is populated and only when the type calls for it.
type envelope struct {
	Type       MessageType   `json:"type"`
	Block      *jsonBlock    `json:"block,omitempty"`
	Blockchain *[]*jsonBlock `json:"blockchain,omitempty"`
}

// jsonBlock is the encoded form of a ledger block.  Hashes are encoded as
// byte-reversed hex strings as is customary for hashes.
type jsonBlock struct {
	Index        uint64 `json:"index"`
	PreviousHash string `json:"previousHash"`
	Timestamp    int64  `json:"timestamp"`
	Data         string `json:"data"`
	Hash         string `json:"hash"`
}

// newJSONBlock converts a ledger block to its encoded form.
func newJSONBlock(b *ledger.Block) *jsonBlock {
	return &jsonBlock{
		Index:        b.Index,
		PreviousHash: b.PreviousHash.String(),
		Timestamp:    b.Timestamp,
		Data:         b.Data,
		Hash:         b.Hash.String(),
	}
}

// parseHash decodes a hash string that must be exactly the length of a fully
// encoded hash.
func parseHash(field, s string) (chainhash.Hash, error) {
	const op = "parseHash"
	if len(s) != chainhash.MaxHashStringSize {
		str := fmt.Sprintf("%s hash has length %d instead of %d", field,
			len(s), chainhash.MaxHashStringSize)
		return chainhash.Hash{}, messageError(op, ErrMalformedMsg, str)
	}
	hash, err := chainhash.NewHashFromStr(s)
	if err != nil {
		str := fmt.Sprintf("%s hash %q is invalid: %v", field, s, err)
		return chainhash.Hash{}, messageError(op, ErrMalformedMsg, str)
	}
	return *hash, nil
}

// toLedger converts the encoded block back to a ledger block.
func (b *jsonBlock) toLedger() (*ledger.Block, error) {
	prevHash, err := parseHash("previous", b.PreviousHash)
	if err != nil {
		return nil, err
	}
	hash, err := parseHash("block", b.Hash)
	if err != nil {
		return nil, err
	}
	return &ledger.Block{
		Index:        b.Index,
		PreviousHash: prevHash,
		Timestamp:    b.Timestamp,
		Data:         b.Data,
		Hash:         hash,
	}, nil
}

// Encode returns the textual encoding of the passed message.  The encoding is
// deterministic.
func Encode(msg Message) ([]byte, error) {
	const op = "Encode"
	if msg == nil {
		return nil, messageError(op, ErrInvalidMsg, "nil message")
	}
	env := envelope{Type: msg.MsgType()}
	if err := msg.encodePayload(&env); err != nil {
		return nil, err
	}
	text, err := json.Marshal(&env)
	if err != nil {
		str := fmt.Sprintf("failed to encode %s message: %v", msg.Command(),
			err)
		return nil, messageError(op, ErrInvalidMsg, str)
	}
	return text, nil
}

// strictUnmarshal decodes exactly one JSON value from data into v rejecting
// unknown fields and trailing data.
func strictUnmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after message")
	}
	return nil
}

// envelopeFields and blockFields are the exact keys of the encoded message
// envelope and of an encoded block.
var (
	envelopeFields = []string{"type", "block", "blockchain"}
	blockFields    = []string{"index", "previousHash", "timestamp", "data",
		"hash"}
)

// isNull returns whether the raw value is the JSON null literal.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// objectFields decodes exactly one JSON object into its raw fields.  Every key
// must be one of the passed names with the exact same case.
func objectFields(data []byte, names []string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := strictUnmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("value is not an object")
	}
	for key := range fields {
		if !slices.Contains(names, key) {
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	return fields, nil
}

// Decode parses a textual frame into the message it carries.  Malformed input
// and input that violates the type/payload pairing results in a MessageError
// and a nil message.  A payload field that is present is unexpected for a type
// that carries no such payload even when it is null, while a null required
// payload is missing.
func Decode(text []byte) (Message, error) {
	const op = "Decode"
	if len(text) > MaxMessagePayload {
		str := fmt.Sprintf("message size %d exceeds max %d", len(text),
			MaxMessagePayload)
		return nil, messageError(op, ErrMsgTooLarge, str)
	}

	fields, err := objectFields(text, envelopeFields)
	if err != nil {
		str := fmt.Sprintf("malformed message: %v", err)
		return nil, messageError(op, ErrMalformedMsg, str)
	}
	rawType, ok := fields["type"]
	if !ok || isNull(rawType) {
		return nil, messageError(op, ErrMalformedMsg, "message does not "+
			"specify a type")
	}
	var typ MessageType
	if err := json.Unmarshal(rawType, &typ); err != nil {
		str := fmt.Sprintf("malformed message type: %v", err)
		return nil, messageError(op, ErrMalformedMsg, str)
	}

	rawBlock, hasBlock := fields["block"]
	rawChain, hasChain := fields["blockchain"]
	switch typ {
	case TypeQueryLatest, TypeQueryAll:
		if hasBlock || hasChain {
			str := fmt.Sprintf("%v message must not carry a payload", typ)
			return nil, messageError(op, ErrUnexpectedPayload, str)
		}
		if typ == TypeQueryLatest {
			return NewMsgQueryLatest(), nil
		}
		return NewMsgQueryAll(), nil

	case TypeResponseBlock:
		if hasChain {
			str := fmt.Sprintf("%v message must not carry a blockchain", typ)
			return nil, messageError(op, ErrUnexpectedPayload, str)
		}
		if !hasBlock || isNull(rawBlock) {
			str := fmt.Sprintf("%v message does not carry a block", typ)
			return nil, messageError(op, ErrMissingPayload, str)
		}
		block, err := decodeBlock(rawBlock)
		if err != nil {
			return nil, err
		}
		return NewMsgBlock(block), nil

	case TypeResponseBlockchain:
		if hasBlock {
			str := fmt.Sprintf("%v message must not carry a block", typ)
			return nil, messageError(op, ErrUnexpectedPayload, str)
		}
		if !hasChain || isNull(rawChain) {
			str := fmt.Sprintf("%v message does not carry a blockchain", typ)
			return nil, messageError(op, ErrMissingPayload, str)
		}
		blocks, err := decodeBlockchain(rawChain)
		if err != nil {
			return nil, err
		}
		return NewMsgBlockchain(blocks), nil
	}

	str := fmt.Sprintf("unknown message type %d", uint8(typ))
	return nil, messageError(op, ErrUnknownType, str)
}

// decodeBlock parses a single encoded block.  Every field must be present and
// not null.
func decodeBlock(raw json.RawMessage) (*ledger.Block, error) {
	const op = "decodeBlock"
	fields, err := objectFields(raw, blockFields)
	if err != nil {
		str := fmt.Sprintf("malformed block: %v", err)
		return nil, messageError(op, ErrMalformedMsg, str)
	}
	for _, name := range blockFields {
		value, ok := fields[name]
		if !ok || isNull(value) {
			str := fmt.Sprintf("block does not specify %s", name)
			return nil, messageError(op, ErrMalformedMsg, str)
		}
	}

	var jb jsonBlock
	if err := strictUnmarshal(raw, &jb); err != nil {
		str := fmt.Sprintf("malformed block: %v", err)
		return nil, messageError(op, ErrMalformedMsg, str)
	}
	return jb.toLedger()
}

// decodeBlockchain parses an encoded chain.  Null entries are rejected.
func decodeBlockchain(raw json.RawMessage) ([]*ledger.Block, error) {
	const op = "decodeBlockchain"
	var entries []json.RawMessage
	if err := strictUnmarshal(raw, &entries); err != nil {
		str := fmt.Sprintf("malformed blockchain: %v", err)
		return nil, messageError(op, ErrMalformedMsg, str)
	}
	blocks := make([]*ledger.Block, 0, len(entries))
	for i, entry := range entries {
		if isNull(entry) {
			str := fmt.Sprintf("blockchain entry %d is null", i)
			return nil, messageError(op, ErrMalformedMsg, str)
		}
		block, err := decodeBlock(entry)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}
