// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "io"

// BlockPushed announces a fully signed block.  Signers broadcast it once a
// proposal has gathered threshold weight, so nodes can store the block even
// when the producing miner has gone away.
type BlockPushed struct {
	Block Block
}

// Type returns the variant tag of the message.
func (m *BlockPushed) Type() SignerMessageType {
	return TypeBlockPushed
}

// Encode serializes the message payload to w.
func (m *BlockPushed) Encode(w io.Writer) error {
	return m.Block.Serialize(w)
}

// Decode deserializes the message payload from r.
func (m *BlockPushed) Decode(r io.Reader) error {
	return m.Block.Deserialize(r)
}
