// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package stackerdb defines the primitives of the replicated-slot store shared
by block producers and signers.

A StackerDB instance is addressed by a contract identifier and holds a fixed
number of slots.  Each slot stores one versioned chunk; the store only
accepts a write whose version is strictly greater than the stored one, and
every chunk carries a recoverable signature binding it to its writer.
*/
package stackerdb
