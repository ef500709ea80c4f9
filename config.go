// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = "stxd.log"
	defaultDataDirname = "data"
)

var (
	defaultHomeDir = appDataDir("stxd")
	defaultDataDir = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for stxd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	TestNet     bool   `long:"testnet" description:"Use the test network"`
	SimNet      bool   `long:"simnet" description:"Use the simulation test network"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	NodeHost    string `long:"nodehost" description:"Host:port of the backing node RPC interface"`
	EventURL    string `long:"eventurl" description:"Websocket URL of the node StackerDB event stream"`
	SigningKey  string `long:"signingkey" description:"Hex-encoded secp256k1 private key used to sign messages"`
	WriterID    uint32 `long:"writerid" description:"StackerDB writer id assigned to this signer for the reward cycle"`
	Proxy       string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser   string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass   string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`

	privKey *secp256k1.PrivateKey
}

// appDataDir returns an operating system specific directory to be used for
// storing application data.
func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, "."+appName)
}

// loadConfig initializes and parses the config using command line options.
//
// Every option except the signing key has a default, and the command line is
// the only source of overrides; no config file is read.
func loadConfig() (*config, error) {
	cfg := config{
		DataDir:    defaultDataDir,
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if ok := asFlagsErr(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Printf("stxd version %s\n", version())
		os.Exit(0)
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if cfg.TestNet {
		numNets++
		activeNetParams = &testNetParams
	}
	if cfg.SimNet {
		numNets++
		activeNetParams = &simNetParams
	}
	if numNets > 1 {
		return nil, fmt.Errorf("the testnet and simnet params can't be " +
			"used together -- choose one of the two")
	}

	if cfg.NodeHost == "" {
		cfg.NodeHost = activeNetParams.nodeHost
	}
	if cfg.EventURL == "" {
		cfg.EventURL = "ws://" + cfg.NodeHost + "/v2/events/stackerdb"
	}

	// Append the network type to the data and log directories so they are
	// network specific.
	cfg.DataDir = filepath.Join(cfg.DataDir, activeNetParams.Name)
	cfg.LogDir = filepath.Join(cfg.LogDir, activeNetParams.Name)

	// Validate the debug level and initialize logging.
	if !validLogLevel(cfg.DebugLevel) {
		return nil, fmt.Errorf("the specified debug level [%v] is invalid",
			cfg.DebugLevel)
	}
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	setLogLevels(cfg.DebugLevel)

	// The signing key identifies this signer on the wire and is required.
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("a signing key is required -- set one with " +
			"--signingkey")
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(cfg.SigningKey, "0x"))
	if err != nil || len(keyBytes) != 32 {
		return nil, fmt.Errorf("the signing key must be 32 hex-encoded bytes")
	}
	cfg.privKey = secp256k1.PrivKeyFromBytes(keyBytes)

	return &cfg, nil
}

// asFlagsErr reports whether err is a *flags.Error, assigning it to target.
func asFlagsErr(err error, target **flags.Error) bool {
	fe, ok := err.(*flags.Error)
	if ok {
		*target = fe
	}
	return ok
}
