// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines chain configuration parameters.
//
// In addition to the main Stacks network, there also exists a public test
// network and a simulation network intended for private integration testing.
// These networks are incompatible with each other and software should handle
// errors where input intended for one network is used on an application
// instance running on a different network.
//
// For main packages, a (typically global) var may be assigned the address of
// one of the standard Param vars for use as the application's "active"
// network.  When a network parameter is needed, it may then be looked up
// through this variable.
package chaincfg
