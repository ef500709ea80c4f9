// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import "errors"

// ErrSignersRejected describes a signing round terminated because signers
// controlling a weighted majority rejected the proposed block.
var ErrSignersRejected = errors.New("signers rejected the proposed block")

// CoordinatorFailureError describes a failure to set up or drive the signing
// round: channel loss, publish failures, or an internal logic error such as
// a slot id beyond the bitvec capacity.
type CoordinatorFailureError struct {
	Description string
}

// Error implements the error interface.
func (e CoordinatorFailureError) Error() string {
	return "signing coordinator failure: " + e.Description
}

// SignerSignatureError describes malformed signer data, a verification
// failure of an otherwise well-formed submission, or a signing round that
// timed out.
type SignerSignatureError struct {
	Description string
}

// Error implements the error interface.
func (e SignerSignatureError) Error() string {
	return e.Description
}
