// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

// SetIgnoreSignatures is a fault-injection hook that makes the coordinator
// discard verified signatures without counting them, mimicking a miner that
// never sees enough signatures.  It exercises the fallback path where the
// signers broadcast the completed block and the coordinator picks it up from
// chain state.
func (c *SignCoordinator) SetIgnoreSignatures(ignore bool) {
	c.ignoreSignatures = ignore
}
