// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stxutil

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/stxsuite/stxd/c32"
)

// Hash160Size is the byte length of an address payload.
const Hash160Size = 20

// ErrMalformedAddress describes an error where an address payload does not
// have the expected 20-byte length.
var ErrMalformedAddress = errors.New("malformed address payload")

// Address is a Stacks principal: a single version byte paired with the
// RIPEMD-160 of the SHA-256 of the owning public key.
type Address struct {
	Version byte
	Hash160 [Hash160Size]byte
}

// NewAddressPubKeyHash returns an address for an already-computed public key
// hash under the given version byte.
func NewAddressPubKeyHash(version byte, pkHash []byte) (Address, error) {
	if len(pkHash) != Hash160Size {
		return Address{}, ErrMalformedAddress
	}
	addr := Address{Version: version}
	copy(addr.Hash160[:], pkHash)
	return addr, nil
}

// NewAddressFromPubKey derives an address from a secp256k1 public key by
// hashing its compressed serialization.
func NewAddressFromPubKey(version byte, pubKey *secp256k1.PublicKey) Address {
	addr := Address{Version: version}
	copy(addr.Hash160[:], Hash160(pubKey.SerializeCompressed()))
	return addr
}

// DecodeAddress parses the textual form of an address.
func DecodeAddress(encoded string) (Address, error) {
	version, data, err := c32.DecodeAddress(encoded)
	if err != nil {
		return Address{}, err
	}
	return NewAddressPubKeyHash(version, data)
}

// String returns the canonical textual form of the address.
func (a Address) String() string {
	encoded, err := c32.Address(a.Version, a.Hash160[:])
	if err != nil {
		// Only a version byte of 32 or more fails to encode.  Decoding from
		// text and every network parameter set stay below that, but
		// NewAddressPubKeyHash and NewAddressFromPubKey accept any version.
		return "<invalid address>"
	}
	return encoded
}

// IsZero returns whether the address payload is all zero bytes, which is the
// form reserved for boot contract principals.
func (a Address) IsZero() bool {
	return a.Hash160 == [Hash160Size]byte{}
}
