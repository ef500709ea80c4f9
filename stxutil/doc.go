// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stxutil provides Stacks-specific convenience functions and types,
// notably the principal address type shared by the wire protocol, the
// replicated-slot contracts, and the signer committee model.
package stxutil
