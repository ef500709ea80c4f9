// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package c32 implements the Crockford base32 check encoding used for Stacks
addresses.

The encoding maps arbitrary bytes onto the alphabet
0123456789ABCDEFGHJKMNPQRSTVWXYZ, preserving leading zero bytes as leading '0'
digits so that encoding round-trips exactly.  The check forms append a 4-byte
double SHA-256 checksum computed over the version byte and payload, and a
full address is the character 'S' followed by the version digit and the
checked body.

Decoding is case-insensitive and normalizes the visually ambiguous characters
O, L, and I to 0, 1, and 1 respectively before interpreting digits.  Any
corruption the normalization could introduce is caught by the checksum.
*/
package c32
