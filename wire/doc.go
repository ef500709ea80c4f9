// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the Stacks consensus wire protocol.

Every type serialized here uses the consensus codec: fixed-width integers are
big-endian, and variable-length byte sequences and strings carry a 4-byte
big-endian length prefix.  Serialization must be bit-exact since
independently implemented signer processes interpret the same bytes.

The signer message types exchanged over the replicated StackerDB medium are
modeled as a tagged union: a single type byte followed by the payload of the
variant.  ReadSignerMessage and WriteSignerMessage handle the dispatch.
*/
package wire
