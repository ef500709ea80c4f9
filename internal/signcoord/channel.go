// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import (
	"sync"

	"github.com/stxsuite/stxd/stackerdb"
)

// eventChannelDepth bounds the number of undelivered StackerDB events.  The
// dispatcher drops events beyond this depth rather than blocking the node's
// event thread.
const eventChannelDepth = 1000

// StackerDBChunksEvent is one batch of chunk writes observed on a single
// StackerDB contract.
type StackerDBChunksEvent struct {
	// ContractID identifies the StackerDB instance the chunks were written
	// to.
	ContractID stackerdb.ContractID

	// ModifiedSlots holds the accepted chunk writes, in store order.
	ModifiedSlots []stackerdb.ChunkData
}

// StackerDBChannel hands the StackerDB event receiver to at most one
// coordinator at a time.  The node's event dispatcher is the sending side;
// a coordinator claims the receiving side for the duration of one signing
// round and must give it back on every exit path.
type StackerDBChannel struct {
	mtx     sync.Mutex
	events  chan StackerDBChunksEvent
	claimed bool
	closed  bool
}

// NewStackerDBChannel returns a channel registry with an open event channel.
func NewStackerDBChannel() *StackerDBChannel {
	return &StackerDBChannel{
		events: make(chan StackerDBChunksEvent, eventChannelDepth),
	}
}

// sharedChannel is the process-wide registry used by the production wiring.
var sharedChannel = NewStackerDBChannel()

// SharedChannel returns the process-wide channel registry.
func SharedChannel() *StackerDBChannel {
	return sharedChannel
}

// AcquireReceiver claims the receiving side of the event channel.  The
// replaced return reports whether another holder had not released it, which
// happens when a prior coordinator thread crashed; the claim is transferred
// regardless.
func (c *StackerDBChannel) AcquireReceiver() (<-chan StackerDBChunksEvent, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	replaced := c.claimed
	c.claimed = true
	return c.events, replaced
}

// ReleaseReceiver returns the receiving side of the event channel to the
// registry so a later coordinator can claim it.
func (c *StackerDBChannel) ReleaseReceiver() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.claimed = false
}

// Send delivers an event to the current holder of the receiver.  Events are
// dropped with a warning when the channel is full or already shut down; the
// coordinator tolerates missed events by polling chain state.
func (c *StackerDBChannel) Send(ev StackerDBChunksEvent) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.closed {
		log.Warnf("Dropping StackerDB event for %s: channel is shut down",
			ev.ContractID)
		return
	}
	select {
	case c.events <- ev:
	default:
		log.Warnf("Dropping StackerDB event for %s: channel is full",
			ev.ContractID)
	}
}

// Shutdown closes the event channel.  A coordinator blocked on the receiver
// observes the close as a disconnect and fails its round.
func (c *StackerDBChannel) Shutdown() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}
