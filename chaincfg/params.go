// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"

	"github.com/stxsuite/stxd/stxutil"
)

// ErrBeforeFirstBlock describes an error where a burn chain height predates
// the first burn block the chain recognizes, so no reward cycle can be
// computed for it.
var ErrBeforeFirstBlock = errors.New("burn height before first burn block")

// Boot contract names.  Every network deploys these under the boot address.
const (
	// SignersName is the name prefix of the signer StackerDB contracts.  The
	// full contract name carries the signer set parity and message type, e.g.
	// "signers-1-3".
	SignersName = "signers"

	// MinersName is the name of the miner StackerDB contract.
	MinersName = "miners"
)

// Params defines a Stacks network by its parameters.  These parameters may be
// used by applications to differentiate networks as well as addresses and
// keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// ChainID differentiates transactions intended for this network from
	// those of other networks.
	ChainID uint32

	// AddressVersion is the version byte of single-signature addresses.
	AddressVersion byte

	// MultisigAddressVersion is the version byte of multi-signature
	// addresses.
	MultisigAddressVersion byte

	// BootAddressVersion is the version byte of the boot principal that owns
	// the boot contracts.  Its payload hash is all zero bytes.
	BootAddressVersion byte

	// FirstBurnBlockHeight is the burn chain height the chain started at.
	// Reward cycles are anchored to this height.
	FirstBurnBlockHeight uint64

	// RewardCycleLength is the number of burn chain blocks in one reward
	// cycle.  Signer committee membership is stable within a cycle.
	RewardCycleLength uint64

	// SigningRoundWindow is the default number of burn chain blocks a signing
	// round is expected to complete within.  It is informational: no timeout
	// is derived from it, and consensus does not depend on it.
	SigningRoundWindow uint64
}

// BootAddress returns the principal that owns the boot contracts on this
// network.
func (p *Params) BootAddress() stxutil.Address {
	return stxutil.Address{Version: p.BootAddressVersion}
}

// RewardCycleIndex returns the index of the reward cycle that contains the
// given burn chain height.
func (p *Params) RewardCycleIndex(burnHeight uint64) (uint64, error) {
	if burnHeight < p.FirstBurnBlockHeight {
		return 0, ErrBeforeFirstBlock
	}
	return (burnHeight - p.FirstBurnBlockHeight) / p.RewardCycleLength, nil
}

// mainNetParams defines the network parameters for the main network.
var mainNetParams = Params{
	Name:                   "mainnet",
	ChainID:                0x00000001,
	AddressVersion:         22, // 'P'
	MultisigAddressVersion: 20, // 'M'
	BootAddressVersion:     22,
	FirstBurnBlockHeight:   666050,
	RewardCycleLength:      2100,
	SigningRoundWindow:     5,
}

// testNetParams defines the network parameters for the test network.
var testNetParams = Params{
	Name:                   "testnet",
	ChainID:                0x80000000,
	AddressVersion:         26, // 'T'
	MultisigAddressVersion: 21, // 'N'
	BootAddressVersion:     26,
	FirstBurnBlockHeight:   2000000,
	RewardCycleLength:      1050,
	SigningRoundWindow:     5,
}

// simNetParams defines the network parameters for the simulation network.
// The short reward cycle keeps integration tests fast.
var simNetParams = Params{
	Name:                   "simnet",
	ChainID:                0x80000100,
	AddressVersion:         26,
	MultisigAddressVersion: 21,
	BootAddressVersion:     26,
	FirstBurnBlockHeight:   0,
	RewardCycleLength:      10,
	SigningRoundWindow:     5,
}

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	return &mainNetParams
}

// TestNetParams returns the network parameters for the test network.
func TestNetParams() *Params {
	return &testNetParams
}

// SimNetParams returns the network parameters for the simulation network.
func SimNetParams() *Params {
	return &simNetParams
}
