// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package signcoord implements the block signing coordinator used by block
producers.

A coordinator is created for exactly one block.  It publishes the block
proposal into the miners StackerDB contract, then consumes signer responses
from the replicated-slot event channel, accumulating accept and reject
weight until one of the terminal conditions is reached: the 70% accept
threshold, a weighted reject majority, discovery of the fully signed block in
chain state, or the signing round deadline.

The event receiver is a process-wide resource managed by StackerDBChannel.
Exactly one coordinator may hold it at a time and must return it through
Close on every exit path; registration reclaims an orphaned receiver from a
crashed prior holder.
*/
package signcoord
