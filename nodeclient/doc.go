// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package nodeclient implements the blocking HTTP client used for all
interactions with the backing Stacks node: StackerDB chunk writes, read-only
contract calls, transaction submission, and PoX queries.

Every request is wrapped in the same exponential backoff policy (2 ms initial
interval, 128 ms cap) bounded by an overall per-call deadline.  Chunk writes
additionally recover from slot version conflicts by retrying at the next
version, since slot writes are not idempotent at a fixed version.
*/
package nodeclient
