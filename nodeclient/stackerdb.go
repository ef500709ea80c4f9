// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package nodeclient

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/wire"
)

// chunkJSON is the HTTP representation of a StackerDB chunk write.
type chunkJSON struct {
	SlotID      uint32 `json:"slot_id"`
	SlotVersion uint32 `json:"slot_version"`
	Data        string `json:"data"`
	Sig         string `json:"sig"`
}

func (c *Client) chunksPath(contract stackerdb.ContractID) string {
	return fmt.Sprintf("%s/v2/stackerdb/%s/%s/chunks", c.origin,
		contract.Issuer, contract.Name)
}

// PutChunk submits one signed chunk to the given StackerDB instance and
// returns the store's ack.  Rejections are reported through the ack, not an
// error; transport failures follow the backoff policy.
func (c *Client) PutChunk(contract stackerdb.ContractID, chunk *stackerdb.ChunkData) (*stackerdb.ChunkAck, error) {
	body, err := json.Marshal(&chunkJSON{
		SlotID:      chunk.SlotID,
		SlotVersion: chunk.SlotVersion,
		Data:        hex.EncodeToString(chunk.Data),
		Sig:         hex.EncodeToString(chunk.Sig[:]),
	})
	if err != nil {
		return nil, err
	}

	path := c.chunksPath(contract)
	resp, err := c.retryHTTP(path, func() (*http.Response, error) {
		return c.httpClient.Post(path, "application/json",
			bytes.NewReader(body))
	})
	if err != nil {
		return nil, err
	}
	var ack stackerdb.ChunkAck
	if err := readJSON(resp, &ack); err != nil {
		return nil, MalformedResponseError("chunk ack json")
	}
	return &ack, nil
}

// SendMessage writes a signer message into the writer's slot for the
// message's type, handling the monotonic slot version discipline.  Version
// conflicts are recovered by retrying at the next version until the client's
// retry deadline; any other rejection surfaces as PutChunkRejectedError.
func (c *Client) SendMessage(writerID uint32, msg wire.SignerMessage) (*stackerdb.ChunkAck, error) {
	payload, err := wire.SerializeSignerMessage(msg)
	if err != nil {
		return nil, err
	}
	slotID := wire.MessageSlot(writerID, msg.Type())

	start := time.Now()
	for {
		// Advance the cached version first so a crashed write is never
		// repeated at the same version.
		c.mtx.Lock()
		slotVersion := c.slotVersions[slotID] + 1
		c.slotVersions[slotID] = slotVersion
		c.mtx.Unlock()

		chunk := stackerdb.NewChunkData(slotID, slotVersion, payload)
		chunk.Sign(c.privKey)
		log.Debugf("Sending %s chunk to stackerdb slot %d version %d",
			msg.Type(), slotID, slotVersion)

		ack, err := c.PutChunk(c.sdbContract, chunk)
		if err != nil {
			return nil, err
		}
		if ack.Accepted {
			log.Debugf("Chunk accepted by stackerdb: slot %d version %d",
				slotID, slotVersion)
			return ack, nil
		}
		if !ack.VersionConflict() {
			log.Warnf("Failed to send message to stackerdb: %s", ack.Reason)
			return nil, PutChunkRejectedError(ack.Reason)
		}
		if time.Since(start) > c.retryTimeout {
			return nil, ErrRetryTimeout
		}
		log.Warnf("Stackerdb write at version %d lost a version race.  "+
			"Incrementing and retrying", slotVersion)
	}
}
