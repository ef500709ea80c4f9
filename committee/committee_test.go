// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package committee

import (
	"errors"
	"math"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// testRewardSet builds a reward set of len(weights) signers with distinct
// valid signing keys.
func testRewardSet(t *testing.T, weights []uint32) *RewardSet {
	t.Helper()
	rs := &RewardSet{}
	for i, weight := range weights {
		keyBytes := make([]byte, 32)
		keyBytes[31] = byte(i + 1)
		priv := secp256k1.PrivKeyFromBytes(keyBytes)
		var entry SignerEntry
		copy(entry.SigningKey[:], priv.PubKey().SerializeCompressed())
		entry.Weight = weight
		rs.Signers = append(rs.Signers, entry)
	}
	return rs
}

// TestVotingWeightThreshold verifies the 70% ceiling arithmetic.
func TestVotingWeightThreshold(t *testing.T) {
	tests := []struct {
		total uint32
		want  uint32
	}{
		{10, 7},
		{50, 35},
		{3, 3},      // ceil(2.1)
		{100, 70},
		{101, 71},   // ceil(70.7)
		{1, 1},
		{math.MaxUint32, 3006477107}, // ceil(0.7 * (2^32 - 1))
	}
	for _, test := range tests {
		if got := VotingWeightThreshold(test.total); got != test.want {
			t.Errorf("VotingWeightThreshold(%d): got %d, want %d", test.total,
				got, test.want)
		}
	}
}

// TestTotalSigningWeight verifies the overflow-checked weight sum.
func TestTotalSigningWeight(t *testing.T) {
	rs := testRewardSet(t, []uint32{10, 10, 10, 10, 10})
	total, err := rs.TotalSigningWeight()
	if err != nil {
		t.Fatalf("TotalSigningWeight: %v", err)
	}
	if total != 50 {
		t.Fatalf("TotalSigningWeight: got %d, want 50", total)
	}

	overflow := testRewardSet(t, []uint32{math.MaxUint32, 1})
	if _, err := overflow.TotalSigningWeight(); !errors.Is(err, ErrInvalidReward) {
		t.Fatalf("TotalSigningWeight(overflow): got %v, want ErrInvalidReward",
			err)
	}
}

// TestParseSigningParams verifies reward set parsing and its failure modes.
func TestParseSigningParams(t *testing.T) {
	rs := testRewardSet(t, []uint32{3, 2, 1})
	params, err := ParseSigningParams(rs)
	if err != nil {
		t.Fatalf("ParseSigningParams: %v", err)
	}
	if params.NumSigners != 3 {
		t.Errorf("NumSigners: got %d, want 3", params.NumSigners)
	}
	if params.NumKeys != 6 {
		t.Errorf("NumKeys: got %d, want 6", params.NumKeys)
	}
	// Key ids are dealt contiguously, one per unit of weight.
	wantKeyIDs := map[uint32][]uint32{
		0: {1, 2, 3},
		1: {4, 5},
		2: {6},
	}
	for signerID, want := range wantKeyIDs {
		got := params.SignerKeyIDs[signerID]
		if len(got) != len(want) {
			t.Fatalf("SignerKeyIDs[%d]: got %v, want %v", signerID, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("SignerKeyIDs[%d]: got %v, want %v", signerID, got, want)
			}
		}
	}
	if len(params.SignerPublicKeys) != 3 {
		t.Errorf("SignerPublicKeys: got %d entries, want 3",
			len(params.SignerPublicKeys))
	}

	// Empty sets are rejected.
	if _, err := ParseSigningParams(&RewardSet{}); !errors.Is(err, ErrInvalidReward) {
		t.Errorf("ParseSigningParams(empty): got %v, want ErrInvalidReward", err)
	}

	// Zero weights are rejected.
	zero := testRewardSet(t, []uint32{1, 0})
	if _, err := ParseSigningParams(zero); !errors.Is(err, ErrInvalidReward) {
		t.Errorf("ParseSigningParams(zero weight): got %v, want ErrInvalidReward",
			err)
	}

	// Malformed signing keys are rejected.
	bad := testRewardSet(t, []uint32{1})
	bad.Signers[0].SigningKey = [33]byte{}
	if _, err := ParseSigningParams(bad); !errors.Is(err, ErrInvalidReward) {
		t.Errorf("ParseSigningParams(bad key): got %v, want ErrInvalidReward",
			err)
	}
}

// TestEntries verifies the slot-id keyed view of the reward set.
func TestEntries(t *testing.T) {
	rs := testRewardSet(t, []uint32{5, 7})
	entries, err := rs.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries: got %d, want 2", len(entries))
	}
	if entries[0].Weight != 5 || entries[1].Weight != 7 {
		t.Fatalf("Entries: wrong weights: %+v", entries)
	}
}
