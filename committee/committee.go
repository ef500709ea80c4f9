// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package committee

import (
	"errors"
	"fmt"
	"math"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/stxsuite/stxd/wire"
)

// ErrInvalidReward describes an error where a reward set cannot be used to
// form a signer committee.  This may occur if the set is empty, a signing
// key is malformed, a weight is zero, or a count overflows uint32.
var ErrInvalidReward = errors.New("invalid reward set")

// SignerEntry is one member of the reward set.  Its slot id is its position
// in the set and is stable for the life of the reward cycle.
type SignerEntry struct {
	// SigningKey is the signer's compressed secp256k1 public key.
	SigningKey [wire.CompressedPubKeySize]byte

	// Weight is the signer's voting weight.  It is never zero.
	Weight uint32
}

// RewardSet is the ordered signer set of one reward cycle.
type RewardSet struct {
	Signers []SignerEntry
}

// SigningParams describes the committee in the terms the threshold signing
// scheme consumes.
type SigningParams struct {
	// NumSigners is the total number of signers.
	NumSigners uint32

	// NumKeys is the total number of key ids across all signers.  Each
	// signer controls one key id per unit of weight.
	NumKeys uint32

	// Threshold is the number of key ids that must participate to form a
	// valid signature under the underlying scheme.
	Threshold uint32

	// SignerKeyIDs maps a signer id to the key ids it controls.
	SignerKeyIDs map[uint32][]uint32

	// SignerPublicKeys maps a signer id to its parsed public key.
	SignerPublicKeys map[uint32]*secp256k1.PublicKey
}

// ParseSigningParams parses a reward set into signing parameters, validating
// every entry.
func ParseSigningParams(rs *RewardSet) (*SigningParams, error) {
	if rs == nil || len(rs.Signers) == 0 {
		return nil, fmt.Errorf("%w: no signers", ErrInvalidReward)
	}
	if uint64(len(rs.Signers)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: signer count overflows uint32",
			ErrInvalidReward)
	}

	params := &SigningParams{
		NumSigners:       uint32(len(rs.Signers)),
		SignerKeyIDs:     make(map[uint32][]uint32, len(rs.Signers)),
		SignerPublicKeys: make(map[uint32]*secp256k1.PublicKey, len(rs.Signers)),
	}

	var keyID uint32
	for i := range rs.Signers {
		entry := &rs.Signers[i]
		signerID := uint32(i)
		if entry.Weight == 0 {
			return nil, fmt.Errorf("%w: signer %d has zero weight",
				ErrInvalidReward, signerID)
		}
		pubKey, err := secp256k1.ParsePubKey(entry.SigningKey[:])
		if err != nil {
			return nil, fmt.Errorf("%w: signer %d signing key: %v",
				ErrInvalidReward, signerID, err)
		}
		params.SignerPublicKeys[signerID] = pubKey

		// Key ids are 1-indexed and dealt contiguously, one per unit of
		// weight.
		keyIDs := make([]uint32, 0, entry.Weight)
		for j := uint32(0); j < entry.Weight; j++ {
			if keyID == math.MaxUint32 {
				return nil, fmt.Errorf("%w: key count overflows uint32",
					ErrInvalidReward)
			}
			keyID++
			keyIDs = append(keyIDs, keyID)
		}
		params.SignerKeyIDs[signerID] = keyIDs
	}
	params.NumKeys = keyID
	params.Threshold = VotingWeightThreshold(params.NumKeys)
	return params, nil
}

// Entries returns the reward set as a map keyed by slot id.
func (rs *RewardSet) Entries() (map[uint32]SignerEntry, error) {
	if uint64(len(rs.Signers)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: signer count overflows uint32",
			ErrInvalidReward)
	}
	entries := make(map[uint32]SignerEntry, len(rs.Signers))
	for i := range rs.Signers {
		entries[uint32(i)] = rs.Signers[i]
	}
	return entries, nil
}

// TotalSigningWeight sums the voting weight of every signer, rejecting
// overflow of the uint32 tally space.
func (rs *RewardSet) TotalSigningWeight() (uint32, error) {
	var total uint64
	for i := range rs.Signers {
		total += uint64(rs.Signers[i].Weight)
		if total > math.MaxUint32 {
			return 0, fmt.Errorf("%w: total weight overflows uint32",
				ErrInvalidReward)
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: no signing weight", ErrInvalidReward)
	}
	return uint32(total), nil
}

// VotingWeightThreshold returns the minimum accept weight that finalizes a
// block: 70% of the total weight, rounded up, computed in 64-bit arithmetic
// so the product cannot overflow.
func VotingWeightThreshold(totalWeight uint32) uint32 {
	ceil := (uint64(totalWeight)*7 + 9) / 10
	return uint32(ceil)
}
