// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import (
	"fmt"

	"github.com/stxsuite/stxd/wire"
)

// signerMessages is a StackerDB event decoded into the signer protocol: the
// signer set parity the contract belongs to and the messages paired with the
// slots they were written to.
type signerMessages struct {
	signerSet uint32
	messages  []wire.SignerMessage
	slotIDs   []uint32
}

// parseSignerEvent decodes the chunks of a signers-contract event into
// signer messages.  Any undecodable chunk invalidates the whole event.
func parseSignerEvent(ev *StackerDBChunksEvent) (*signerMessages, error) {
	signerSet, _, err := ev.ContractID.SignerSet()
	if err != nil {
		return nil, err
	}

	parsed := &signerMessages{
		signerSet: signerSet,
		messages:  make([]wire.SignerMessage, 0, len(ev.ModifiedSlots)),
		slotIDs:   make([]uint32, 0, len(ev.ModifiedSlots)),
	}
	for i := range ev.ModifiedSlots {
		chunk := &ev.ModifiedSlots[i]
		msg, err := wire.DeserializeSignerMessage(chunk.Data)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", chunk.SlotID, err)
		}
		parsed.messages = append(parsed.messages, msg)
		parsed.slotIDs = append(parsed.slotIDs, chunk.SlotID)
	}
	return parsed, nil
}
