// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// Mock messages let signers exercise the full message path during the epoch
// in which blocks are still produced without committee signatures.  The
// signing coordinator ignores all of them.

// MockProposal is a stand-in proposal tied to a burn chain view rather than
// a real block.
type MockProposal struct {
	// BurnHeight is the burn chain height the mock proposal refers to.
	BurnHeight uint64

	// ConsensusHash identifies the burn chain view.
	ConsensusHash ConsensusHash

	// MinerSignature is the miner's signature over the two fields above.
	MinerSignature MessageSignature
}

// Type returns the variant tag of the message.
func (m *MockProposal) Type() SignerMessageType {
	return TypeMockProposal
}

// Encode serializes the message payload to w.
func (m *MockProposal) Encode(w io.Writer) error {
	if err := writeUint64(w, m.BurnHeight); err != nil {
		return err
	}
	if err := writeConsensusHash(w, &m.ConsensusHash); err != nil {
		return err
	}
	return writeMessageSignature(w, &m.MinerSignature)
}

// Decode deserializes the message payload from r.
func (m *MockProposal) Decode(r io.Reader) error {
	var err error
	if m.BurnHeight, err = readUint64(r); err != nil {
		return err
	}
	if err = readConsensusHash(r, &m.ConsensusHash); err != nil {
		return err
	}
	return readMessageSignature(r, &m.MinerSignature)
}

// MockSignature is a signer's answer to a mock proposal.
type MockSignature struct {
	// Proposal is the mock proposal being answered.
	Proposal MockProposal

	// Signature is the signer's signature over the proposal.
	Signature MessageSignature
}

// Type returns the variant tag of the message.
func (m *MockSignature) Type() SignerMessageType {
	return TypeMockSignature
}

// Encode serializes the message payload to w.
func (m *MockSignature) Encode(w io.Writer) error {
	if err := m.Proposal.Encode(w); err != nil {
		return err
	}
	return writeMessageSignature(w, &m.Signature)
}

// Decode deserializes the message payload from r.
func (m *MockSignature) Decode(r io.Reader) error {
	if err := m.Proposal.Decode(r); err != nil {
		return err
	}
	return readMessageSignature(r, &m.Signature)
}

// MockBlock ties a mock proposal to the mock signatures gathered for it.
type MockBlock struct {
	Proposal   MockProposal
	Signatures []MockSignature
}

// Type returns the variant tag of the message.
func (m *MockBlock) Type() SignerMessageType {
	return TypeMockBlock
}

// Encode serializes the message payload to w.
func (m *MockBlock) Encode(w io.Writer) error {
	if err := m.Proposal.Encode(w); err != nil {
		return err
	}
	if len(m.Signatures) > MaxSignerSignatures {
		return messageError("MockBlock.Encode", "too many mock signatures")
	}
	if err := writeUint32(w, uint32(len(m.Signatures))); err != nil {
		return err
	}
	for i := range m.Signatures {
		if err := m.Signatures[i].Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Decode deserializes the message payload from r.
func (m *MockBlock) Decode(r io.Reader) error {
	if err := m.Proposal.Decode(r); err != nil {
		return err
	}
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	if count > MaxSignerSignatures {
		return messageError("MockBlock.Decode", "too many mock signatures")
	}
	m.Signatures = make([]MockSignature, count)
	for i := range m.Signatures {
		if err := m.Signatures[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}
