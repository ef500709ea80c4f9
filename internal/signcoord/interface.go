// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import (
	"github.com/decred/dcrd/chaincfg/chainhash"

	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/wire"
)

// BurnSnapshot is the coordinator's view of the burn chain tip at the start
// of the signing round.
type BurnSnapshot struct {
	// BlockHeight is the burn chain height of the tip.
	BlockHeight uint64

	// ConsensusHash identifies the tip's burn chain view.
	ConsensusHash wire.ConsensusHash
}

// SortitionView is the narrow window into the sortition database the
// coordinator needs: the StackerDB slot range assigned to the miner elected
// under a given consensus hash.
type SortitionView interface {
	// MinerSlotRange returns the half-open slot range [start, end) the
	// elected miner writes into, or ok=false when the election has no slot.
	MinerSlotRange(election *wire.ConsensusHash) (start, end uint32, ok bool, err error)
}

// StackerDBView reports the last stored version of a slot.  Unknown slots
// report version zero.
type StackerDBView interface {
	SlotVersion(contract stackerdb.ContractID, slotID uint32) (uint32, error)
}

// BlockStore is the read-only window into chain state the coordinator polls
// while gathering signatures.  GetBlock returns (nil, nil) when the block is
// not stored.
type BlockStore interface {
	GetBlock(id *chainhash.Hash) (*wire.Block, error)
}

// ChunkPutter submits signed chunks to a StackerDB instance.  It is
// implemented by nodeclient.Client.
type ChunkPutter interface {
	PutChunk(contract stackerdb.ContractID, chunk *stackerdb.ChunkData) (*stackerdb.ChunkAck, error)
}
