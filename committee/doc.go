// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package committee models the signer committee of a reward cycle: the
// ordered reward set, per-signer voting weights and keys, and the weighted
// voting thresholds the signing coordinator enforces.
package committee
