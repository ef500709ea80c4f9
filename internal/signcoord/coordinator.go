// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import (
	"fmt"
	"math"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/jrick/bitset"

	"github.com/stxsuite/stxd/chaincfg"
	"github.com/stxsuite/stxd/committee"
	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/wire"
)

const (
	// eventReceiverPoll is how long the coordinator blocks on the event
	// receiver before waking up to check timeouts and chain state.
	eventReceiverPoll = 500 * time.Millisecond

	// signerBitvecCapacity is the fixed capacity of the next-signer bit
	// vector, one bit per StackerDB slot.
	signerBitvecCapacity = 4000

	// timeoutDescription is the exact description of a timed-out signing
	// round.  Operator tooling matches on it.
	timeoutDescription = "Timed out waiting for group signature"
)

// Config holds the inputs needed to build a SignCoordinator.
type Config struct {
	// RewardSet is the active signer committee for the reward cycle.
	RewardSet *committee.RewardSet

	// MessageKey signs every message the coordinator publishes.  It should
	// be the miner's registered key.
	MessageKey *secp256k1.PrivateKey

	// ChainParams identifies the active network.
	ChainParams *chaincfg.Params

	// SigningRoundTimeout is the wall-clock budget of one signing round.
	SigningRoundTimeout time.Duration

	// Channel is the registry the event receiver is claimed from.  Nil
	// selects the process-wide registry.
	Channel *StackerDBChannel

	// MinersSession submits chunks to the miners StackerDB contract.
	MinersSession ChunkPutter
}

// SignCoordinator drives one signing round for one proposed block.  It is
// owned by a single producer thread; none of its methods are safe for
// concurrent use.
type SignCoordinator struct {
	channel        *StackerDBChannel
	receiver       <-chan StackerDBChunksEvent
	messageKey     *secp256k1.PrivateKey
	chainParams    *chaincfg.Params
	minersSession  ChunkPutter
	minersContract stackerdb.ContractID

	signingRoundTimeout time.Duration
	signingParams       *committee.SigningParams
	signerEntries       map[uint32]committee.SignerEntry
	weightThreshold     uint32
	totalWeight         uint32

	currentSignID     uint64
	currentSignIterID uint64

	nextSignerBitvec bitset.Bytes

	// ignoreSignatures discards verified signatures without counting them.
	// It exists to exercise the chain-state fallback path in tests.
	ignoreSignatures bool
}

// NewSignCoordinator builds a coordinator for one block, claiming the event
// receiver of the configured channel registry (the process-wide one when
// cfg.Channel is nil).  The caller must call Close on every exit
// path so a later coordinator can claim the receiver again.
func NewSignCoordinator(cfg *Config) (*SignCoordinator, error) {
	if cfg.RewardSet == nil || len(cfg.RewardSet.Signers) == 0 {
		return nil, CoordinatorFailureError{
			Description: "reward set has no signers",
		}
	}
	if len(cfg.RewardSet.Signers) > signerBitvecCapacity {
		return nil, CoordinatorFailureError{
			Description: fmt.Sprintf("signer set of %d exceeds the slot "+
				"capacity %d", len(cfg.RewardSet.Signers),
				signerBitvecCapacity),
		}
	}

	signingParams, err := committee.ParseSigningParams(cfg.RewardSet)
	if err != nil {
		return nil, CoordinatorFailureError{
			Description: fmt.Sprintf("could not parse reward set: %v", err),
		}
	}
	log.Debugf("Initializing miner/coordinator: %d signers, %d keys, "+
		"scheme threshold %d", signingParams.NumSigners,
		signingParams.NumKeys, signingParams.Threshold)

	totalWeight, err := cfg.RewardSet.TotalSigningWeight()
	if err != nil {
		return nil, CoordinatorFailureError{
			Description: fmt.Sprintf("could not total the reward set "+
				"weight: %v", err),
		}
	}
	// The reject comparison adds the threshold to a uint32 weight tally, so
	// every such comparison below is evaluated in uint64.
	weightThreshold := committee.VotingWeightThreshold(totalWeight)

	entries, err := cfg.RewardSet.Entries()
	if err != nil {
		return nil, CoordinatorFailureError{
			Description: fmt.Sprintf("could not index the reward set: %v", err),
		}
	}

	channel := cfg.Channel
	if channel == nil {
		channel = SharedChannel()
	}
	receiver, replaced := channel.AcquireReceiver()
	if replaced {
		log.Warnf("Replaced the miner/coordinator receiver of a prior " +
			"thread.  Prior thread may have crashed")
	}

	return &SignCoordinator{
		channel:             channel,
		receiver:            receiver,
		messageKey:          cfg.MessageKey,
		chainParams:         cfg.ChainParams,
		minersSession:       cfg.MinersSession,
		minersContract:      stackerdb.MinersContractID(cfg.ChainParams),
		signingRoundTimeout: cfg.SigningRoundTimeout,
		signingParams:       signingParams,
		signerEntries:       entries,
		weightThreshold:     weightThreshold,
		totalWeight:         totalWeight,
		nextSignerBitvec:    bitset.NewBytes(signerBitvecCapacity),
	}, nil
}

// Close returns the event receiver to the channel registry.  It must be
// called exactly once, on every exit path of the owning thread.
func (c *SignCoordinator) Close() {
	c.channel.ReleaseReceiver()
}

// NextSignerBitvec returns the bit vector of slots modified during the
// round, for inclusion in the finished block.
func (c *SignCoordinator) NextSignerBitvec() bitset.Bytes {
	return c.nextSignerBitvec
}

// WeightThreshold returns the accept weight that finalizes the block.
func (c *SignCoordinator) WeightThreshold() uint32 {
	return c.weightThreshold
}

// TotalWeight returns the committee's total voting weight.
func (c *SignCoordinator) TotalWeight() uint32 {
	return c.totalWeight
}

// signID derives the sign id of the round from the burn tip height.
func (c *SignCoordinator) signID(burnHeight uint64) (uint64, error) {
	id, err := c.chainParams.RewardCycleIndex(burnHeight)
	if err != nil {
		return 0, CoordinatorFailureError{
			Description: fmt.Sprintf("burn tip %d predates the first burn "+
				"block", burnHeight),
		}
	}
	return id, nil
}

// sendMinersMessage writes one signer message into the miner's slot range of
// the miners contract, at the next slot version.
func (c *SignCoordinator) sendMinersMessage(msg wire.SignerMessage,
	minerSlot wire.MinerSlotID, sortdb SortitionView,
	stackerDBs StackerDBView, election *wire.ConsensusHash) error {

	start, end, ok, err := sortdb.MinerSlotRange(election)
	if err != nil {
		return fmt.Errorf("failed to read miner slot information: %w", err)
	}
	if !ok {
		return fmt.Errorf("no slot for miner")
	}
	slotID := start + uint32(minerSlot)
	if slotID >= end {
		return fmt.Errorf("not enough slots for miner messages")
	}

	// Write at one past the last version stored for the slot.  Unknown
	// slots report zero.
	slotVersion, err := stackerDBs.SlotVersion(c.minersContract, slotID)
	if err != nil {
		return fmt.Errorf("failed to read slot version: %w", err)
	}

	payload, err := wire.SerializeSignerMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize %s message: %w", msg.Type(), err)
	}
	chunk := stackerdb.NewChunkData(slotID, slotVersion+1, payload)
	chunk.Sign(c.messageKey)

	log.Debugf("Sending %s chunk to miners stackerdb: slot %d version %d",
		msg.Type(), slotID, slotVersion+1)
	ack, err := c.minersSession.PutChunk(c.minersContract, chunk)
	if err != nil {
		log.Warnf("Failed to write message to stackerdb: %v", err)
		return err
	}
	if !ack.Accepted {
		log.Warnf("Stackerdb did not accept miner message: %s", ack.Reason)
		return fmt.Errorf("stackerdb did not accept miner message: %s",
			ack.Reason)
	}
	return nil
}

// RunSignV0 gathers signer signatures for a proposed block.
//
// It begins by publishing a BlockProposal message to the signers and then
// waits for the signers to respond, in two ways concurrently:
//
//   - It consumes signer StackerDB messages carrying signatures.  If enough
//     accept weight arrives, the gathered signatures are returned.
//   - It polls chain state for the relayed block.  If present, its signature
//     vector is returned.  This happens when the signers assembled the block
//     before this node could.
//
// The round fails with ErrSignersRejected on a weighted reject majority and
// with a timeout error once the signing round deadline passes.
func (c *SignCoordinator) RunSignV0(block *wire.Block, blockAttempt uint64,
	burnTip *BurnSnapshot, sortdb SortitionView, chainState BlockStore,
	stackerDBs StackerDBView,
	electionConsensusHash *wire.ConsensusHash) ([]wire.MessageSignature, error) {

	signID, err := c.signID(burnTip.BlockHeight)
	if err != nil {
		return nil, err
	}
	rewardCycleID := signID
	c.currentSignID = signID
	c.currentSignIterID = blockAttempt

	sighash := block.Header.SignerSignatureHash()
	blockID := block.BlockID()

	proposal := &wire.BlockProposal{
		Block:       *block,
		BurnHeight:  burnTip.BlockHeight,
		RewardCycle: rewardCycleID,
	}
	log.Debugf("Sending block proposal message to signers: signer "+
		"signature hash %s", sighash)
	err = c.sendMinersMessage(proposal, wire.MinerSlotBlockProposal, sortdb,
		stackerDBs, electionConsensusHash)
	if err != nil {
		return nil, CoordinatorFailureError{Description: err.Error()}
	}

	var totalWeightSigned uint32
	var totalRejectWeight uint32
	gathered := make(map[uint32]wire.MessageSignature)

	log.Infof("Beginning to watch for block signatures OR posted blocks: "+
		"threshold %d/%d", c.weightThreshold, c.totalWeight)

	start := time.Now()
	for time.Since(start) <= c.signingRoundTimeout {
		// Finding the block in chain state ends the round.  Its stored
		// signer signature vector is returned as is, without verification.
		stored, err := chainState.GetBlock(&blockID)
		if err != nil {
			log.Warnf("Failed to query chainstate for block %s: %v",
				blockID, err)
		} else if stored != nil {
			log.Debugf("Found signatures in relayed block %s", blockID)
			return stored.Header.SignerSignature, nil
		}

		var event StackerDBChunksEvent
		select {
		case ev, ok := <-c.receiver:
			if !ok {
				return nil, CoordinatorFailureError{
					Description: "StackerDB event receiver disconnected",
				}
			}
			event = ev
		case <-time.After(eventReceiverPoll):
			continue
		}

		if !event.ContractID.IsSignersContract() || !event.ContractID.IsBoot() {
			log.Debugf("Ignoring StackerDB event for non-signer contract %s",
				event.ContractID)
			continue
		}

		// Record which slots were touched, for the next-signer bitvec in
		// the finished block.  A slot beyond the fixed capacity cannot be
		// produced by a correct store and is a logic error.
		for i := range event.ModifiedSlots {
			slotID := event.ModifiedSlots[i].SlotID
			if slotID >= signerBitvecCapacity {
				return nil, CoordinatorFailureError{
					Description: fmt.Sprintf("modified slot %d exceeds the "+
						"signer bitvec capacity", slotID),
				}
			}
			c.nextSignerBitvec.Set(int(slotID))
		}

		parsed, err := parseSignerEvent(&event)
		if err != nil {
			log.Warnf("Failure parsing StackerDB event into signer event, "+
				"ignoring: %v", err)
			continue
		}
		if parsed.signerSet != uint32(rewardCycleID%2) {
			log.Debugf("Received signer event for other reward cycle, ignoring")
			continue
		}

		log.Debugf("Received %d messages from signers on slots %v: "+
			"threshold %d", len(parsed.messages), parsed.slotIDs,
			c.weightThreshold)

		for i, msg := range parsed.messages {
			slotID := parsed.slotIDs[i]
			response, isResponse := msg.(*wire.BlockResponse)
			if !isResponse {
				log.Debugf("Received %s message, ignoring", msg.Type())
				continue
			}

			switch response.Kind {
			case wire.ResponseRejected:
				rejected := &response.Rejected
				entry, found := c.signerEntries[slotID]
				if !found {
					return nil, SignerSignatureError{
						Description: "Signer entry not found",
					}
				}
				if rejected.SignerSignatureHash != sighash {
					log.Debugf("Received rejection for a block besides my " +
						"own, ignoring")
					continue
				}

				log.Debugf("Signer %d rejected our block %s: %s (code %d)",
					slotID, blockID, rejected.Reason, rejected.Code)
				if uint64(totalRejectWeight)+uint64(entry.Weight) > math.MaxUint32 {
					return nil, CoordinatorFailureError{
						Description: "total weight rejected exceeds uint32",
					}
				}
				totalRejectWeight += entry.Weight

				if uint64(totalRejectWeight)+uint64(c.weightThreshold) >
					uint64(c.totalWeight) {
					log.Debugf("%d/%d signers vote to reject our block %s",
						totalRejectWeight, c.totalWeight, blockID)
					return nil, ErrSignersRejected
				}

			case wire.ResponseAccepted:
				accepted := &response.Accepted
				if accepted.SignerSignatureHash != sighash {
					log.Warnf("Processed signature for a different block, "+
						"will try to continue: slot %d, signer signature "+
						"hash %s, response hash %s", slotID, sighash,
						accepted.SignerSignatureHash)
					continue
				}
				entry, found := c.signerEntries[slotID]
				if !found {
					return nil, SignerSignatureError{
						Description: "Signer entry not found",
					}
				}
				signerPubKey, err := secp256k1.ParsePubKey(entry.SigningKey[:])
				if err != nil {
					return nil, SignerSignatureError{
						Description: "Failed to parse signer public key",
					}
				}
				recovered, _, err := secpecdsa.RecoverCompact(
					accepted.Signature[:], sighash[:])
				if err != nil {
					log.Warnf("Got unrecoverable signature from signer %d, "+
						"ignoring: %v", slotID, err)
					continue
				}
				if !recovered.IsEqual(signerPubKey) {
					log.Warnf("Processed signature but it didn't validate "+
						"over the expected block, ignoring: slot %d", slotID)
					continue
				}

				if c.ignoreSignatures {
					log.Warnf("Fault injection: ignoring well-formed "+
						"signature for block %s from slot %d", blockID, slotID)
					continue
				}

				if _, have := gathered[slotID]; !have {
					if uint64(totalWeightSigned)+uint64(entry.Weight) >
						math.MaxUint32 {
						return nil, CoordinatorFailureError{
							Description: "total weight signed exceeds uint32",
						}
					}
					totalWeightSigned += entry.Weight
				}
				log.Infof("Signature added to block %s: slot %d, weight "+
					"%d, total weight signed %d", blockID, slotID,
					entry.Weight, totalWeightSigned)
				gathered[slotID] = accepted.Signature

			default:
				log.Debugf("Received block response of unknown kind %d, "+
					"ignoring", response.Kind)
			}
		}

		// Return the gathered signatures once the threshold is met.
		if totalWeightSigned >= c.weightThreshold {
			log.Infof("Received enough signatures for block %s", blockID)
			sigs := make([]wire.MessageSignature, 0, len(gathered))
			for _, sig := range gathered {
				sigs = append(sigs, sig)
			}
			return sigs, nil
		}
	}

	return nil, SignerSignatureError{Description: timeoutDescription}
}
