// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package nodeclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/stxutil"
)

// maxResponseSize bounds how much of a node response is read into memory.
const maxResponseSize = 16 * 1024 * 1024

func (c *Client) poxPath() string {
	return c.origin + "/v2/pox"
}

func (c *Client) transactionPath() string {
	return c.origin + "/v2/transactions"
}

func (c *Client) readOnlyPath(contractAddr stxutil.Address, contractName, functionName string) string {
	return fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s", c.origin,
		contractAddr, contractName, functionName)
}

// readJSON decodes the body of resp into v, closing the body.
func readJSON(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v)
}

// poxResponse is the subset of the /v2/pox response this client consumes.
type poxResponse struct {
	ContractID string `json:"contract_id"`
}

// getPox fetches and decodes /v2/pox.
func (c *Client) getPox() (*poxResponse, error) {
	path := c.poxPath()
	resp, err := c.retryHTTP(path, func() (*http.Response, error) {
		return c.httpClient.Get(path)
	})
	if err != nil {
		return nil, err
	}
	var pox poxResponse
	if err := readJSON(resp, &pox); err != nil {
		return nil, MalformedResponseError("pox json")
	}
	return &pox, nil
}

// GetCurrentRewardCycle returns the reward cycle the node currently reports.
func (c *Client) GetCurrentRewardCycle() (uint64, error) {
	log.Debugf("Retrieving current reward cycle")
	var raw map[string]json.RawMessage
	path := c.poxPath()
	resp, err := c.retryHTTP(path, func() (*http.Response, error) {
		return c.httpClient.Get(path)
	})
	if err != nil {
		return 0, err
	}
	if err := readJSON(resp, &raw); err != nil {
		return 0, MalformedResponseError("pox json")
	}
	cycleRaw, ok := raw["current_cycle"]
	if !ok {
		return 0, MalformedResponseError("current_cycle")
	}
	var cycle struct {
		ID *uint64 `json:"id"`
	}
	if err := json.Unmarshal(cycleRaw, &cycle); err != nil || cycle.ID == nil {
		return 0, MalformedResponseError("current_cycle.id")
	}
	return *cycle.ID, nil
}

// GetPoxContract returns the identifier of the active PoX contract.
func (c *Client) GetPoxContract() (stackerdb.ContractID, error) {
	log.Debugf("Retrieving pox contract id")
	pox, err := c.getPox()
	if err != nil {
		return stackerdb.ContractID{}, err
	}
	if pox.ContractID == "" {
		return stackerdb.ContractID{}, MalformedResponseError("contract_id")
	}
	contract, err := stackerdb.ParseContractID(pox.ContractID)
	if err != nil {
		return stackerdb.ContractID{}, MalformedResponseError("contract_id")
	}
	return contract, nil
}

// readOnlyResponse is the node's answer to a read-only contract call.
type readOnlyResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// ReadOnlyContractCall evaluates a read-only contract function on the node
// and returns the hex-encoded result value.  Arguments are hex-encoded
// serialized values.
func (c *Client) ReadOnlyContractCall(contractAddr stxutil.Address, contractName, functionName string, args []string) (string, error) {
	log.Debugf("Calling read-only function %s on %s.%s", functionName,
		contractAddr, contractName)
	if args == nil {
		args = []string{}
	}
	body, err := json.Marshal(struct {
		Sender    string   `json:"sender"`
		Arguments []string `json:"arguments"`
	}{Sender: c.address.String(), Arguments: args})
	if err != nil {
		return "", err
	}

	path := c.readOnlyPath(contractAddr, contractName, functionName)
	resp, err := c.retryHTTP(path, func() (*http.Response, error) {
		return c.httpClient.Post(path, "application/json",
			bytes.NewReader(body))
	})
	if err != nil {
		return "", err
	}
	var result readOnlyResponse
	if err := readJSON(resp, &result); err != nil {
		return "", MalformedResponseError("call-read json")
	}
	if !result.Okay {
		return "", ReadOnlyCallError{Function: functionName, Cause: result.Cause}
	}
	if result.Result == "" {
		return "", MalformedResponseError("result")
	}
	return result.Result, nil
}

// SubmitTransaction posts a raw serialized transaction to the node and
// returns the transaction id the node reports.
func (c *Client) SubmitTransaction(rawTx []byte) (string, error) {
	path := c.transactionPath()
	resp, err := c.retryHTTP(path, func() (*http.Response, error) {
		return c.httpClient.Post(path, "application/octet-stream",
			bytes.NewReader(rawTx))
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	txid, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", MalformedResponseError("txid")
	}
	return string(bytes.Trim(txid, "\"\n ")), nil
}
