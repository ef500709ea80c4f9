// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stackerdb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stxsuite/stxd/chaincfg"
	"github.com/stxsuite/stxd/stxutil"
)

// ErrMalformedContractID describes an error where a textual contract
// identifier is not of the form "ADDRESS.name".
var ErrMalformedContractID = errors.New("malformed contract identifier")

// ContractID identifies a StackerDB instance: the principal that deployed
// the contract and the contract name.
type ContractID struct {
	Issuer stxutil.Address
	Name   string
}

// NewContractID builds a contract identifier from its parts.
func NewContractID(issuer stxutil.Address, name string) ContractID {
	return ContractID{Issuer: issuer, Name: name}
}

// ParseContractID parses the textual "ADDRESS.name" form.
func ParseContractID(s string) (ContractID, error) {
	addrStr, name, found := strings.Cut(s, ".")
	if !found || name == "" {
		return ContractID{}, ErrMalformedContractID
	}
	issuer, err := stxutil.DecodeAddress(addrStr)
	if err != nil {
		return ContractID{}, fmt.Errorf("%w: %v", ErrMalformedContractID, err)
	}
	return ContractID{Issuer: issuer, Name: name}, nil
}

// String returns the textual "ADDRESS.name" form.
func (c ContractID) String() string {
	return c.Issuer.String() + "." + c.Name
}

// IsBoot returns whether the contract is deployed by the boot principal,
// whose address payload is all zero bytes.
func (c ContractID) IsBoot() bool {
	return c.Issuer.IsZero()
}

// IsSignersContract returns whether the contract name identifies a signer
// set StackerDB.
func (c ContractID) IsSignersContract() bool {
	return strings.HasPrefix(c.Name, chaincfg.SignersName)
}

// SignerSet extracts the signer set parity and message type from a signers
// contract name of the form "signers-<set>-<id>".
func (c ContractID) SignerSet() (set uint32, messageID uint32, err error) {
	parts := strings.Split(c.Name, "-")
	if len(parts) != 3 || parts[0] != chaincfg.SignersName {
		return 0, 0, fmt.Errorf("not a signers contract name: %q", c.Name)
	}
	setVal, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("not a signers contract name: %q", c.Name)
	}
	msgVal, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("not a signers contract name: %q", c.Name)
	}
	return uint32(setVal), uint32(msgVal), nil
}

// SignersContractID returns the boot signers contract for the given set
// parity and message type on the given network.
func SignersContractID(params *chaincfg.Params, set uint32, messageID uint32) ContractID {
	return ContractID{
		Issuer: params.BootAddress(),
		Name:   fmt.Sprintf("%s-%d-%d", chaincfg.SignersName, set, messageID),
	}
}

// MinersContractID returns the boot miners contract on the given network.
func MinersContractID(params *chaincfg.Params) ContractID {
	return ContractID{
		Issuer: params.BootAddress(),
		Name:   chaincfg.MinersName,
	}
}
