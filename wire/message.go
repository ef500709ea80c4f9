// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"
)

// SignerMessageType identifies a signer message variant on the wire.  The
// values are consensus-critical and double as the per-writer slot offsets
// used by the replicated-slot medium.
type SignerMessageType uint8

// Signer message type constants.
const (
	TypeBlockProposal SignerMessageType = 0
	TypeBlockResponse SignerMessageType = 1
	TypeBlockPushed   SignerMessageType = 2
	TypeMockProposal  SignerMessageType = 3
	TypeMockSignature SignerMessageType = 4
	TypeMockBlock     SignerMessageType = 5
)

// String returns the message type as a human-readable string.
func (t SignerMessageType) String() string {
	switch t {
	case TypeBlockProposal:
		return "block-proposal"
	case TypeBlockResponse:
		return "block-response"
	case TypeBlockPushed:
		return "block-pushed"
	case TypeMockProposal:
		return "mock-proposal"
	case TypeMockSignature:
		return "mock-signature"
	case TypeMockBlock:
		return "mock-block"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// SignerMessage is the interface every message exchanged through the signer
// StackerDB contracts implements.
type SignerMessage interface {
	// Type returns the variant tag of the message.
	Type() SignerMessageType

	// Encode serializes the message payload (without the tag byte) to w.
	Encode(w io.Writer) error

	// Decode deserializes the message payload (without the tag byte) from r.
	Decode(r io.Reader) error
}

// WriteSignerMessage serializes a signer message to w as a type byte followed
// by the variant payload.
func WriteSignerMessage(w io.Writer, msg SignerMessage) error {
	if err := writeUint8(w, uint8(msg.Type())); err != nil {
		return err
	}
	return msg.Encode(w)
}

// ReadSignerMessage reads one signer message from r, dispatching on the
// leading type byte.
func ReadSignerMessage(r io.Reader) (SignerMessage, error) {
	tag, err := readUint8(r)
	if err != nil {
		return nil, err
	}

	var msg SignerMessage
	switch SignerMessageType(tag) {
	case TypeBlockProposal:
		msg = &BlockProposal{}
	case TypeBlockResponse:
		msg = &BlockResponse{}
	case TypeBlockPushed:
		msg = &BlockPushed{}
	case TypeMockProposal:
		msg = &MockProposal{}
	case TypeMockSignature:
		msg = &MockSignature{}
	case TypeMockBlock:
		msg = &MockBlock{}
	default:
		str := fmt.Sprintf("unknown signer message type %d", tag)
		return nil, messageError("ReadSignerMessage", str)
	}
	if err := msg.Decode(r); err != nil {
		return nil, err
	}
	return msg, nil
}

// SerializeSignerMessage returns the full wire encoding of a signer message.
func SerializeSignerMessage(msg SignerMessage) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteSignerMessage(&buf, msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeserializeSignerMessage decodes a signer message from its full wire
// encoding.
func DeserializeSignerMessage(b []byte) (SignerMessage, error) {
	return ReadSignerMessage(bytes.NewReader(b))
}
