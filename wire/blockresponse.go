// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

// BlockResponseKind discriminates the accept and reject arms of a
// BlockResponse.
type BlockResponseKind uint8

// Block response kinds.
const (
	ResponseAccepted BlockResponseKind = 0
	ResponseRejected BlockResponseKind = 1
)

// RejectCode classifies why a signer rejected a proposal.
type RejectCode uint8

// Reject codes.
const (
	// RejectValidationFailed indicates the block failed node validation.
	RejectValidationFailed RejectCode = iota

	// RejectConnectivity indicates the signer could not reach its node to
	// validate the proposal.
	RejectConnectivity

	// RejectInvalidMiner indicates the proposal was not signed by the
	// expected miner.
	RejectInvalidMiner

	// RejectSortitionView indicates the proposal conflicts with the signer's
	// view of the burn chain.
	RejectSortitionView
)

// BlockAccepted is the accept arm of a block response: the digest that was
// signed and the signer's recoverable signature over it.
type BlockAccepted struct {
	SignerSignatureHash chainhash.Hash
	Signature           MessageSignature
}

// BlockRejected is the reject arm of a block response.
type BlockRejected struct {
	// SignerSignatureHash identifies the proposal being rejected.
	SignerSignatureHash chainhash.Hash

	// Code classifies the rejection.
	Code RejectCode

	// Reason is a human-readable explanation.
	Reason string
}

// BlockResponse is a signer's answer to a block proposal.  Exactly one of
// Accepted and Rejected is set, per Kind.
type BlockResponse struct {
	Kind     BlockResponseKind
	Accepted BlockAccepted
	Rejected BlockRejected
}

// AcceptedResponse builds an accept response.
func AcceptedResponse(sigHash chainhash.Hash, sig MessageSignature) *BlockResponse {
	return &BlockResponse{
		Kind:     ResponseAccepted,
		Accepted: BlockAccepted{SignerSignatureHash: sigHash, Signature: sig},
	}
}

// RejectedResponse builds a reject response.
func RejectedResponse(sigHash chainhash.Hash, code RejectCode, reason string) *BlockResponse {
	return &BlockResponse{
		Kind: ResponseRejected,
		Rejected: BlockRejected{
			SignerSignatureHash: sigHash,
			Code:                code,
			Reason:              reason,
		},
	}
}

// Type returns the variant tag of the message.
func (m *BlockResponse) Type() SignerMessageType {
	return TypeBlockResponse
}

// Encode serializes the message payload to w.
func (m *BlockResponse) Encode(w io.Writer) error {
	if err := writeUint8(w, uint8(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case ResponseAccepted:
		if _, err := w.Write(m.Accepted.SignerSignatureHash[:]); err != nil {
			return err
		}
		return writeMessageSignature(w, &m.Accepted.Signature)
	case ResponseRejected:
		if _, err := w.Write(m.Rejected.SignerSignatureHash[:]); err != nil {
			return err
		}
		if err := writeUint8(w, uint8(m.Rejected.Code)); err != nil {
			return err
		}
		return WriteVarString(w, m.Rejected.Reason)
	}
	str := fmt.Sprintf("unknown block response kind %d", uint8(m.Kind))
	return messageError("BlockResponse.Encode", str)
}

// Decode deserializes the message payload from r.
func (m *BlockResponse) Decode(r io.Reader) error {
	kind, err := readUint8(r)
	if err != nil {
		return err
	}
	m.Kind = BlockResponseKind(kind)
	switch m.Kind {
	case ResponseAccepted:
		if _, err := io.ReadFull(r, m.Accepted.SignerSignatureHash[:]); err != nil {
			return err
		}
		return readMessageSignature(r, &m.Accepted.Signature)
	case ResponseRejected:
		if _, err := io.ReadFull(r, m.Rejected.SignerSignatureHash[:]); err != nil {
			return err
		}
		code, err := readUint8(r)
		if err != nil {
			return err
		}
		m.Rejected.Code = RejectCode(code)
		m.Rejected.Reason, err = ReadVarString(r, "reject reason")
		return err
	}
	str := fmt.Sprintf("unknown block response kind %d", kind)
	return messageError("BlockResponse.Decode", str)
}
