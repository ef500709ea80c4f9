// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// BlockProposal is the message a block producer publishes to the signer
// committee to open a signing round.
type BlockProposal struct {
	// Block is the proposed block.  Its header carries no signer signatures
	// yet.
	Block Block

	// BurnHeight is the burn chain height the block was mined under.
	BurnHeight uint64

	// RewardCycle is the reward cycle whose committee is being asked to
	// sign.
	RewardCycle uint64
}

// Type returns the variant tag of the message.
func (m *BlockProposal) Type() SignerMessageType {
	return TypeBlockProposal
}

// Encode serializes the message payload to w.
func (m *BlockProposal) Encode(w io.Writer) error {
	if err := m.Block.Serialize(w); err != nil {
		return err
	}
	if err := writeUint64(w, m.BurnHeight); err != nil {
		return err
	}
	return writeUint64(w, m.RewardCycle)
}

// Decode deserializes the message payload from r.
func (m *BlockProposal) Decode(r io.Reader) error {
	if err := m.Block.Deserialize(r); err != nil {
		return err
	}
	var err error
	if m.BurnHeight, err = readUint64(r); err != nil {
		return err
	}
	m.RewardCycle, err = readUint64(r)
	return err
}
