// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/decred/dcrd/chaincfg/chainhash"
)

const (
	// MaxSignerSignatures is the maximum number of signer signatures a block
	// header may carry.  It matches the capacity of the signer slot space.
	MaxSignerSignatures = 4000

	// MaxTransactionsPerBlock is the maximum number of transactions a block
	// may carry over the wire.
	MaxTransactionsPerBlock = 1 << 16

	// maxTransactionSize is the maximum serialized size of one transaction.
	maxTransactionSize = 2 * 1024 * 1024
)

// signerSigHashTag domain-separates the digest signers sign over from every
// other digest computed over header bytes.
var signerSigHashTag = []byte("stx-block-signer-digest")

// BlockHeader defines information about a block and is used in block
// proposals and in the block itself.
type BlockHeader struct {
	// Version is the block protocol version.
	Version uint8

	// ChainLength is the total number of ancestor blocks, including this
	// one.
	ChainLength uint64

	// BurnSpent is the cumulative burn chain commitment spent producing this
	// chain.
	BurnSpent uint64

	// ConsensusHash identifies the burn chain view this block was mined
	// under.
	ConsensusHash ConsensusHash

	// ParentBlockID is the identifier of the parent block.
	ParentBlockID chainhash.Hash

	// TxMerkleRoot commits to the block's transactions.
	TxMerkleRoot chainhash.Hash

	// StateIndexRoot commits to the materialized chain state after this
	// block is applied.
	StateIndexRoot chainhash.Hash

	// Timestamp is the miner-asserted creation time in Unix seconds.
	Timestamp uint64

	// MinerSignature is the producing miner's recoverable signature over the
	// header.
	MinerSignature MessageSignature

	// SignerSignature holds the signer committee signatures gathered by the
	// signing coordinator.  It is empty in proposals.
	SignerSignature []MessageSignature

	// PoxTreatmentBits and PoxTreatment encode the bit vector of reward
	// slots affected by this block's PoX treatment.
	PoxTreatmentBits uint16
	PoxTreatment     []byte
}

// serializeCore writes every header field up to and including the miner
// signature.  This prefix is common to the block hash, the signer signature
// digest, and the full wire form.
func (h *BlockHeader) serializeCore(w io.Writer) error {
	if err := writeUint8(w, h.Version); err != nil {
		return err
	}
	if err := writeUint64(w, h.ChainLength); err != nil {
		return err
	}
	if err := writeUint64(w, h.BurnSpent); err != nil {
		return err
	}
	if err := writeConsensusHash(w, &h.ConsensusHash); err != nil {
		return err
	}
	for _, hash := range []*chainhash.Hash{&h.ParentBlockID, &h.TxMerkleRoot,
		&h.StateIndexRoot} {
		if _, err := w.Write(hash[:]); err != nil {
			return err
		}
	}
	if err := writeUint64(w, h.Timestamp); err != nil {
		return err
	}
	return writeMessageSignature(w, &h.MinerSignature)
}

// Serialize encodes the header to w using the consensus codec.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if len(h.SignerSignature) > MaxSignerSignatures {
		str := fmt.Sprintf("too many signer signatures [count %d, max %d]",
			len(h.SignerSignature), MaxSignerSignatures)
		return messageError("BlockHeader.Serialize", str)
	}
	if err := h.serializeCore(w); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(len(h.SignerSignature))); err != nil {
		return err
	}
	for i := range h.SignerSignature {
		if err := writeMessageSignature(w, &h.SignerSignature[i]); err != nil {
			return err
		}
	}
	if err := writeUint16(w, h.PoxTreatmentBits); err != nil {
		return err
	}
	return WriteVarBytes(w, h.PoxTreatment)
}

// Deserialize decodes the header from r using the consensus codec.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var err error
	if h.Version, err = readUint8(r); err != nil {
		return err
	}
	if h.ChainLength, err = readUint64(r); err != nil {
		return err
	}
	if h.BurnSpent, err = readUint64(r); err != nil {
		return err
	}
	if err = readConsensusHash(r, &h.ConsensusHash); err != nil {
		return err
	}
	for _, hash := range []*chainhash.Hash{&h.ParentBlockID, &h.TxMerkleRoot,
		&h.StateIndexRoot} {
		if _, err = io.ReadFull(r, hash[:]); err != nil {
			return err
		}
	}
	if h.Timestamp, err = readUint64(r); err != nil {
		return err
	}
	if err = readMessageSignature(r, &h.MinerSignature); err != nil {
		return err
	}

	count, err := readUint32(r)
	if err != nil {
		return err
	}
	if count > MaxSignerSignatures {
		str := fmt.Sprintf("too many signer signatures [count %d, max %d]",
			count, MaxSignerSignatures)
		return messageError("BlockHeader.Deserialize", str)
	}
	h.SignerSignature = make([]MessageSignature, count)
	for i := range h.SignerSignature {
		if err = readMessageSignature(r, &h.SignerSignature[i]); err != nil {
			return err
		}
	}
	if h.PoxTreatmentBits, err = readUint16(r); err != nil {
		return err
	}
	h.PoxTreatment, err = ReadVarBytes(r, (MaxSignerSignatures+7)/8,
		"pox treatment")
	return err
}

// BlockHash computes the hash of the header.  Signer signatures are excluded
// so the hash is stable across signature gathering.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_ = h.serializeCore(&buf)
	return chainhash.HashH(buf.Bytes())
}

// SignerSignatureHash computes the digest the signer committee signs over.
// It is domain-separated from the block hash.
func (h *BlockHeader) SignerSignatureHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Write(signerSigHashTag)
	_ = h.serializeCore(&buf)
	return chainhash.HashH(buf.Bytes())
}

// BlockID computes the globally unique identifier of the block: the hash of
// the consensus hash and the block hash.
func (h *BlockHeader) BlockID() chainhash.Hash {
	blockHash := h.BlockHash()
	buf := make([]byte, 0, ConsensusHashSize+chainhash.HashSize)
	buf = append(buf, h.ConsensusHash[:]...)
	buf = append(buf, blockHash[:]...)
	return chainhash.HashH(buf)
}

// Block is a full block: a header plus serialized transactions.  Transaction
// contents are opaque to the signing subsystem.
type Block struct {
	Header       BlockHeader
	Transactions [][]byte
}

// Serialize encodes the block to w using the consensus codec.
func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if len(b.Transactions) > MaxTransactionsPerBlock {
		str := fmt.Sprintf("too many transactions [count %d, max %d]",
			len(b.Transactions), MaxTransactionsPerBlock)
		return messageError("Block.Serialize", str)
	}
	if err := writeUint32(w, uint32(len(b.Transactions))); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if err := WriteVarBytes(w, tx); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize decodes the block from r using the consensus codec.
func (b *Block) Deserialize(r io.Reader) error {
	if err := b.Header.Deserialize(r); err != nil {
		return err
	}
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	if count > MaxTransactionsPerBlock {
		str := fmt.Sprintf("too many transactions [count %d, max %d]",
			count, MaxTransactionsPerBlock)
		return messageError("Block.Deserialize", str)
	}
	b.Transactions = make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		tx, err := ReadVarBytes(r, maxTransactionSize, "transaction")
		if err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, tx)
	}
	return nil
}

// BlockID returns the globally unique identifier of the block.
func (b *Block) BlockID() chainhash.Hash {
	return b.Header.BlockID()
}
