// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package nodeclient

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/go-socks/socks"

	"github.com/stxsuite/stxd/chaincfg"
	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/stxutil"
)

const (
	// defaultRetryTimeout bounds each node call, including all backoff
	// retries, when the caller does not configure a deadline.
	defaultRetryTimeout = 30 * time.Second

	// defaultRequestTimeout bounds one HTTP round trip.
	defaultRequestTimeout = 10 * time.Second
)

// Config describes the connection to the backing node and the identity used
// for writes.
type Config struct {
	// NodeHost is the host:port of the node's RPC interface.
	NodeHost string

	// Params identifies the network the node serves.
	Params *chaincfg.Params

	// PrivKey signs StackerDB chunks.  The corresponding address, used as the
	// sender of read-only calls, is derived from its compressed public key.
	PrivKey *secp256k1.PrivateKey

	// StackerDBContract is the replicated-slot contract this client writes
	// signer messages into.
	StackerDBContract stackerdb.ContractID

	// RetryTimeout bounds each call including backoff retries.  Zero selects
	// the default.
	RetryTimeout time.Duration

	// Proxy optionally specifies a SOCKS5 proxy (host:port) for all node
	// connections, with optional credentials.
	Proxy     string
	ProxyUser string
	ProxyPass string
}

// Client is a blocking HTTP client for the backing node.  It is safe for
// concurrent use.
type Client struct {
	httpClient   *http.Client
	origin       string
	chainParams  *chaincfg.Params
	privKey      *secp256k1.PrivateKey
	address      stxutil.Address
	sdbContract  stackerdb.ContractID
	retryTimeout time.Duration

	mtx          sync.Mutex
	slotVersions map[uint32]uint32
}

// New returns a client for the node described by config.
func New(config *Config) (*Client, error) {
	if config.NodeHost == "" {
		return nil, errors.New("no node host configured")
	}
	if config.Params == nil {
		return nil, errors.New("no network parameters configured")
	}
	if config.PrivKey == nil {
		return nil, errors.New("no private key configured")
	}

	// All node connections optionally flow through a SOCKS5 proxy.
	dial := net.Dial
	if config.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     config.Proxy,
			Username: config.ProxyUser,
			Password: config.ProxyPass,
		}
		dial = proxy.Dial
	}
	httpClient := &http.Client{
		Timeout:   defaultRequestTimeout,
		Transport: &http.Transport{Dial: dial},
	}

	retryTimeout := config.RetryTimeout
	if retryTimeout == 0 {
		retryTimeout = defaultRetryTimeout
	}

	return &Client{
		httpClient:   httpClient,
		origin:       "http://" + config.NodeHost,
		chainParams:  config.Params,
		privKey:      config.PrivKey,
		address:      stxutil.NewAddressFromPubKey(config.Params.AddressVersion, config.PrivKey.PubKey()),
		sdbContract:  config.StackerDBContract,
		retryTimeout: retryTimeout,
		slotVersions: make(map[uint32]uint32),
	}, nil
}

// Address returns the client's derived principal address.
func (c *Client) Address() stxutil.Address {
	return c.address
}
