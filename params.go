// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/stxsuite/stxd/chaincfg"
)

// activeNetParams is a pointer to the parameters specific to the currently
// active Stacks network.
var activeNetParams = &mainNetParams

// params is used to group parameters for various networks such as the main
// network and test networks.
type params struct {
	*chaincfg.Params

	// nodeHost is the default host:port of the backing node's RPC
	// interface on this network.
	nodeHost string
}

// mainNetParams contains parameters specific to the main network.
var mainNetParams = params{
	Params:   chaincfg.MainNetParams(),
	nodeHost: "127.0.0.1:20443",
}

// testNetParams contains parameters specific to the test network.
var testNetParams = params{
	Params:   chaincfg.TestNetParams(),
	nodeHost: "127.0.0.1:30443",
}

// simNetParams contains parameters specific to the simulation test network.
var simNetParams = params{
	Params:   chaincfg.SimNetParams(),
	nodeHost: "127.0.0.1:40443",
}
