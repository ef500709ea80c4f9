// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"path/filepath"

	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/stxsuite/stxd/chaincfg"
	"github.com/stxsuite/stxd/internal/blockdb"
	"github.com/stxsuite/stxd/internal/netevent"
	"github.com/stxsuite/stxd/internal/signcoord"
	"github.com/stxsuite/stxd/nodeclient"
	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/wire"
)

// signer answers block proposals observed on the miners contract with
// signed block responses, and stages pushed blocks locally.
type signer struct {
	cfg         *config
	client      *nodeclient.Client
	store       *blockdb.Store
	rewardCycle uint64
}

// newSigner wires the node client and staging store for one signer process.
func newSigner(cfg *config) (*signer, error) {
	// Probe the node for the active reward cycle.  The signer set parity
	// selects which signers contract namespace this signer writes into.
	probe, err := nodeclient.New(&nodeclient.Config{
		NodeHost:  cfg.NodeHost,
		Params:    activeNetParams.Params,
		PrivKey:   cfg.privKey,
		Proxy:     cfg.Proxy,
		ProxyUser: cfg.ProxyUser,
		ProxyPass: cfg.ProxyPass,
	})
	if err != nil {
		return nil, err
	}
	rewardCycle, err := probe.GetCurrentRewardCycle()
	if err != nil {
		return nil, fmt.Errorf("unable to query the reward cycle: %w", err)
	}

	contract := stackerdb.SignersContractID(activeNetParams.Params,
		uint32(rewardCycle%2), uint32(wire.TypeBlockResponse))
	client, err := nodeclient.New(&nodeclient.Config{
		NodeHost:          cfg.NodeHost,
		Params:            activeNetParams.Params,
		PrivKey:           cfg.privKey,
		StackerDBContract: contract,
		Proxy:             cfg.Proxy,
		ProxyUser:         cfg.ProxyUser,
		ProxyPass:         cfg.ProxyPass,
	})
	if err != nil {
		return nil, err
	}

	store, err := blockdb.Open(filepath.Join(cfg.DataDir, "staging"))
	if err != nil {
		return nil, fmt.Errorf("unable to open the staging store: %w", err)
	}

	stxdLog.Infof("Signing as %s (writer id %d) for reward cycle %d",
		client.Address(), cfg.WriterID, rewardCycle)
	return &signer{
		cfg:         cfg,
		client:      client,
		store:       store,
		rewardCycle: rewardCycle,
	}, nil
}

// run consumes StackerDB events until the quit channel is closed.
func (s *signer) run(quit <-chan struct{}) error {
	listener := netevent.New(&netevent.Config{WSURL: s.cfg.EventURL})
	go listener.Run()
	defer listener.Stop()
	defer s.store.Close()

	channel := signcoord.SharedChannel()
	recv, replaced := channel.AcquireReceiver()
	if replaced {
		stxdLog.Warnf("Replaced the event receiver of a prior holder")
	}
	defer channel.ReleaseReceiver()

	for {
		select {
		case <-quit:
			return nil
		case ev, ok := <-recv:
			if !ok {
				return fmt.Errorf("event channel shut down")
			}
			s.processEvent(&ev)
		}
	}
}

// processEvent answers the miner messages found in one StackerDB event.
func (s *signer) processEvent(ev *signcoord.StackerDBChunksEvent) {
	if ev.ContractID.Name != chaincfg.MinersName || !ev.ContractID.IsBoot() {
		return
	}
	for i := range ev.ModifiedSlots {
		chunk := &ev.ModifiedSlots[i]
		msg, err := wire.DeserializeSignerMessage(chunk.Data)
		if err != nil {
			stxdLog.Warnf("Discarding undecodable miner message in slot "+
				"%d: %v", chunk.SlotID, err)
			continue
		}

		switch m := msg.(type) {
		case *wire.BlockProposal:
			s.answerProposal(m)
		case *wire.BlockPushed:
			if err := s.store.StoreBlock(&m.Block); err != nil {
				stxdLog.Errorf("Unable to stage pushed block: %v", err)
			}
		default:
			stxdLog.Debugf("Ignoring %s message from miner", msg.Type())
		}
	}
}

// answerProposal signs the proposal's signer signature hash and submits a
// block response.
func (s *signer) answerProposal(proposal *wire.BlockProposal) {
	sighash := proposal.Block.Header.SignerSignatureHash()

	var response *wire.BlockResponse
	if proposal.RewardCycle != s.rewardCycle {
		stxdLog.Warnf("Rejecting proposal %s for reward cycle %d (active "+
			"cycle is %d)", sighash, proposal.RewardCycle, s.rewardCycle)
		response = wire.RejectedResponse(sighash, wire.RejectSortitionView,
			"proposal is not for the active reward cycle")
	} else {
		var sig wire.MessageSignature
		copy(sig[:], secpecdsa.SignCompact(s.cfg.privKey, sighash[:], true))
		response = wire.AcceptedResponse(sighash, sig)
		stxdLog.Infof("Accepting proposal %s at burn height %d", sighash,
			proposal.BurnHeight)
	}

	if _, err := s.client.SendMessage(s.cfg.WriterID, response); err != nil {
		stxdLog.Errorf("Unable to send block response: %v", err)
	}
}
