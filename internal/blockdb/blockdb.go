// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockdb implements the staging block store.  The signing
// coordinator treats presence in this store as proof that signature
// gathering finished elsewhere.  The store itself does not check a block's
// signer signatures.
package blockdb

import (
	"bytes"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"

	"github.com/stxsuite/stxd/wire"
)

// blockKeyPrefix namespaces block records within the store.
var blockKeyPrefix = []byte("blk-")

// Store is a staging block store backed by leveldb.  It is safe for
// concurrent use.
type Store struct {
	db *leveldb.DB
}

// Open opens, creating if necessary, the staging block store at the given
// directory.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if ldberrors.IsCorrupted(err) {
		log.Warnf("Staging block store at %s is corrupted, attempting "+
			"recovery", path)
		db, err = leveldb.RecoverFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func blockKey(id *chainhash.Hash) []byte {
	key := make([]byte, 0, len(blockKeyPrefix)+chainhash.HashSize)
	key = append(key, blockKeyPrefix...)
	key = append(key, id[:]...)
	return key
}

// StoreBlock persists a block under its block id, overwriting any prior
// record.  The block's signer signatures are stored as given; neither they
// nor their weight against the committee threshold are checked.
func (s *Store) StoreBlock(block *wire.Block) error {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return err
	}
	id := block.BlockID()
	log.Debugf("Storing staged block %s (%d bytes)", id, buf.Len())
	return s.db.Put(blockKey(&id), buf.Bytes(), nil)
}

// GetBlock fetches a block by id.  It returns (nil, nil) when the block is
// not stored.
func (s *Store) GetBlock(id *chainhash.Hash) (*wire.Block, error) {
	raw, err := s.db.Get(blockKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var block wire.Block
	if err := block.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return &block, nil
}
