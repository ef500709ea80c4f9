// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

// SlotsPerUser is the number of contiguous StackerDB slots allocated to each
// writer of a signer contract, one per message type with room to grow.
const SlotsPerUser uint32 = 10

// MinerSlotID selects the slot, relative to the start of the miner's slot
// range, that a miner message is written to.
type MinerSlotID uint32

// Miner slot identifiers.
const (
	// MinerSlotBlockProposal carries block proposals and, for now, every
	// other outbound coordinator message.
	MinerSlotBlockProposal MinerSlotID = 0

	// MinerSlotBlockPushed carries fully signed blocks.
	MinerSlotBlockPushed MinerSlotID = 1
)

// MessageSlot returns the absolute StackerDB slot a signer-contract writer
// uses for a given message type.  Each writer owns a contiguous range of
// SlotsPerUser slots indexed by the message type value.
func MessageSlot(writerID uint32, msgType SignerMessageType) uint32 {
	return SlotsPerUser*writerID + uint32(msgType)
}
