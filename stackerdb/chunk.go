// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stackerdb

import (
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SignatureSize is the byte length of a chunk's recoverable signature.
const SignatureSize = 65

// ErrUnsignedChunk describes an error where a chunk's signature could not be
// interpreted at all.
var ErrUnsignedChunk = errors.New("chunk carries no recoverable signature")

// ChunkData is one versioned write into a StackerDB slot.
type ChunkData struct {
	// SlotID addresses the slot within the contract's slot space.
	SlotID uint32

	// SlotVersion is the monotonically increasing version of this write.
	// The store only accepts a version strictly greater than the one it
	// currently holds for the slot.
	SlotVersion uint32

	// Data is the chunk payload.
	Data []byte

	// Sig is the writer's recoverable signature over the authentication
	// digest.
	Sig [SignatureSize]byte
}

// NewChunkData returns an unsigned chunk for the given slot, version, and
// payload.
func NewChunkData(slotID, slotVersion uint32, data []byte) *ChunkData {
	return &ChunkData{SlotID: slotID, SlotVersion: slotVersion, Data: data}
}

// authDigest computes the digest the writer signs: the hash of the slot id,
// the slot version, and the hash of the payload, all in wire order.
func (c *ChunkData) authDigest() chainhash.Hash {
	dataHash := chainhash.HashH(c.Data)
	var buf [8 + chainhash.HashSize]byte
	binary.BigEndian.PutUint32(buf[0:4], c.SlotID)
	binary.BigEndian.PutUint32(buf[4:8], c.SlotVersion)
	copy(buf[8:], dataHash[:])
	return chainhash.HashH(buf[:])
}

// Sign signs the chunk with the writer's private key.  The signature commits
// to the slot id, version, and payload.
func (c *ChunkData) Sign(privKey *secp256k1.PrivateKey) {
	digest := c.authDigest()
	sig := secpecdsa.SignCompact(privKey, digest[:], true)
	copy(c.Sig[:], sig)
}

// RecoverPubKey recovers the public key that signed the chunk.
func (c *ChunkData) RecoverPubKey() (*secp256k1.PublicKey, error) {
	digest := c.authDigest()
	pubKey, _, err := secpecdsa.RecoverCompact(c.Sig[:], digest[:])
	if err != nil {
		return nil, ErrUnsignedChunk
	}
	return pubKey, nil
}

// VerifiedBy returns whether the chunk's signature was produced by the given
// public key.
func (c *ChunkData) VerifiedBy(pubKey *secp256k1.PublicKey) bool {
	recovered, err := c.RecoverPubKey()
	if err != nil {
		return false
	}
	return recovered.IsEqual(pubKey)
}

// ChunkAck is the store's reply to a chunk write.
type ChunkAck struct {
	// Accepted reports whether the chunk was stored.
	Accepted bool `json:"accepted"`

	// Reason explains a rejection.  The store reports a version conflict
	// with the exact reason string tested by VersionConflict.
	Reason string `json:"reason,omitempty"`

	// Metadata optionally echoes the stored chunk's metadata.
	Metadata *SlotMetadata `json:"metadata,omitempty"`
}

// versionConflictReason is the reason string the store uses to report a
// write at an already-occupied version.  The wording is part of the wire
// contract with independently implemented stores.
const versionConflictReason = "Data for this slot and version already exist"

// VersionConflict returns whether the ack is a rejection that can be
// recovered by retrying the write at a higher slot version.
func (a *ChunkAck) VersionConflict() bool {
	return !a.Accepted && a.Reason == versionConflictReason
}

// SlotMetadata describes the chunk a store currently holds for one slot.
type SlotMetadata struct {
	SlotID      uint32 `json:"slot_id"`
	SlotVersion uint32 `json:"slot_version"`
	DataHash    string `json:"data_hash"`
	Signature   string `json:"signature"`
}
