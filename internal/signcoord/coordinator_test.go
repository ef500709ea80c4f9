// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signcoord

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/stxsuite/stxd/chaincfg"
	"github.com/stxsuite/stxd/committee"
	"github.com/stxsuite/stxd/stackerdb"
	"github.com/stxsuite/stxd/wire"
)

// fakeSortition serves a fixed miner slot range.
type fakeSortition struct {
	start, end uint32
	ok         bool
}

func (f *fakeSortition) MinerSlotRange(*wire.ConsensusHash) (uint32, uint32, bool, error) {
	return f.start, f.end, f.ok, nil
}

// fakeStackerDBView serves fixed slot versions, defaulting to zero.
type fakeStackerDBView struct {
	versions map[uint32]uint32
}

func (f *fakeStackerDBView) SlotVersion(_ stackerdb.ContractID, slotID uint32) (uint32, error) {
	return f.versions[slotID], nil
}

// fakeBlockStore optionally starts serving a stored block after a number of
// queries, modeling a block relayed by the signers mid-round.
type fakeBlockStore struct {
	mtx        sync.Mutex
	block      *wire.Block
	afterCalls int
	calls      int
}

func (f *fakeBlockStore) GetBlock(*chainhash.Hash) (*wire.Block, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls++
	if f.block != nil && f.calls > f.afterCalls {
		return f.block, nil
	}
	return nil, nil
}

// recordingPutter accepts every chunk and records it.
type recordingPutter struct {
	mtx       sync.Mutex
	contracts []stackerdb.ContractID
	chunks    []*stackerdb.ChunkData
}

func (p *recordingPutter) PutChunk(contract stackerdb.ContractID, chunk *stackerdb.ChunkData) (*stackerdb.ChunkAck, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.contracts = append(p.contracts, contract)
	p.chunks = append(p.chunks, chunk)
	return &stackerdb.ChunkAck{Accepted: true}, nil
}

// coordHarness bundles a coordinator over a five-signer committee with
// weights of ten each (total 50, threshold 35) and the fakes that drive it.
type coordHarness struct {
	t       *testing.T
	params  *chaincfg.Params
	keys    []*secp256k1.PrivateKey
	coord   *SignCoordinator
	channel *StackerDBChannel
	putter  *recordingPutter
	block   *wire.Block
	sighash chainhash.Hash
	burnTip BurnSnapshot
}

func newCoordHarness(t *testing.T, weights []uint32, timeout time.Duration) *coordHarness {
	t.Helper()

	rs := &committee.RewardSet{}
	keys := make([]*secp256k1.PrivateKey, 0, len(weights))
	for i, weight := range weights {
		keyBytes := make([]byte, 32)
		keyBytes[31] = byte(i + 1)
		priv := secp256k1.PrivKeyFromBytes(keyBytes)
		keys = append(keys, priv)
		var entry committee.SignerEntry
		copy(entry.SigningKey[:], priv.PubKey().SerializeCompressed())
		entry.Weight = weight
		rs.Signers = append(rs.Signers, entry)
	}

	minerKey := secp256k1.PrivKeyFromBytes([]byte{0xaa})
	channel := NewStackerDBChannel()
	putter := &recordingPutter{}
	coord, err := NewSignCoordinator(&Config{
		RewardSet:           rs,
		MessageKey:          minerKey,
		ChainParams:         chaincfg.SimNetParams(),
		SigningRoundTimeout: timeout,
		Channel:             channel,
		MinersSession:       putter,
	})
	if err != nil {
		t.Fatalf("NewSignCoordinator: %v", err)
	}
	t.Cleanup(coord.Close)

	block := &wire.Block{}
	block.Header.ChainLength = 7
	block.Header.Timestamp = 1700000000

	return &coordHarness{
		t:       t,
		params:  chaincfg.SimNetParams(),
		keys:    keys,
		coord:   coord,
		channel: channel,
		putter:  putter,
		block:   block,
		sighash: block.Header.SignerSignatureHash(),
		// Simnet burn height 25 is reward cycle 2, signer set parity 0.
		burnTip: BurnSnapshot{BlockHeight: 25},
	}
}

// signersContract returns the boot signers contract for the given parity.
func (h *coordHarness) signersContract(parity uint32) stackerdb.ContractID {
	return stackerdb.SignersContractID(h.params, parity, 1)
}

// signatureFor signs the harness block's signer signature hash with the
// given committee member's key.
func (h *coordHarness) signatureFor(slotID uint32) wire.MessageSignature {
	var sig wire.MessageSignature
	copy(sig[:], secpecdsa.SignCompact(h.keys[slotID], h.sighash[:], true))
	return sig
}

// event packs one signer message per slot id into a StackerDB event on the
// given contract.
func (h *coordHarness) event(contract stackerdb.ContractID, msgs map[uint32]wire.SignerMessage, slotOrder []uint32) StackerDBChunksEvent {
	h.t.Helper()
	ev := StackerDBChunksEvent{ContractID: contract}
	for _, slotID := range slotOrder {
		serialized, err := wire.SerializeSignerMessage(msgs[slotID])
		if err != nil {
			h.t.Fatalf("serialize message for slot %d: %v", slotID, err)
		}
		ev.ModifiedSlots = append(ev.ModifiedSlots, stackerdb.ChunkData{
			SlotID:      slotID,
			SlotVersion: 1,
			Data:        serialized,
		})
	}
	return ev
}

// acceptEvent builds an event of valid accept responses from the given
// slots.
func (h *coordHarness) acceptEvent(slots ...uint32) StackerDBChunksEvent {
	msgs := make(map[uint32]wire.SignerMessage)
	for _, slotID := range slots {
		msgs[slotID] = wire.AcceptedResponse(h.sighash, h.signatureFor(slotID))
	}
	return h.event(h.signersContract(0), msgs, slots)
}

// rejectEvent builds an event of reject responses from the given slots.
func (h *coordHarness) rejectEvent(slots ...uint32) StackerDBChunksEvent {
	msgs := make(map[uint32]wire.SignerMessage)
	for _, slotID := range slots {
		msgs[slotID] = wire.RejectedResponse(h.sighash,
			wire.RejectValidationFailed, "does not validate")
	}
	return h.event(h.signersContract(0), msgs, slots)
}

type runResult struct {
	sigs []wire.MessageSignature
	err  error
}

// start launches the signing round on its own goroutine.
func (h *coordHarness) start(store BlockStore) <-chan runResult {
	if store == nil {
		store = &fakeBlockStore{}
	}
	done := make(chan runResult, 1)
	go func() {
		var election wire.ConsensusHash
		sigs, err := h.coord.RunSignV0(h.block, 1, &h.burnTip,
			&fakeSortition{start: 0, end: 10, ok: true}, store,
			&fakeStackerDBView{}, &election)
		done <- runResult{sigs: sigs, err: err}
	}()
	return done
}

// wait fetches the round result, failing the test on a hang.
func (h *coordHarness) wait(done <-chan runResult) runResult {
	h.t.Helper()
	select {
	case result := <-done:
		return result
	case <-time.After(30 * time.Second):
		h.t.Fatal("signing round did not terminate")
		panic("unreachable")
	}
}

// slotsOf maps the returned signatures back to the committee members that
// produced them.
func (h *coordHarness) slotsOf(sigs []wire.MessageSignature) map[uint32]bool {
	h.t.Helper()
	slots := make(map[uint32]bool)
	for _, sig := range sigs {
		recovered, _, err := secpecdsa.RecoverCompact(sig[:], h.sighash[:])
		if err != nil {
			h.t.Fatalf("unrecoverable returned signature: %v", err)
		}
		found := false
		for slotID, key := range h.keys {
			if recovered.IsEqual(key.PubKey()) {
				slots[uint32(slotID)] = true
				found = true
				break
			}
		}
		if !found {
			h.t.Fatal("returned signature does not belong to the committee")
		}
	}
	return slots
}

// TestThresholdTermination verifies that four accepts from a [10,10,10,10,10]
// committee (threshold 35) terminate the round with exactly those four
// signatures, that the proposal was published to the miner slot, and that
// the bitvec records the modified slots.
func TestThresholdTermination(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	if h.coord.TotalWeight() != 50 || h.coord.WeightThreshold() != 35 {
		t.Fatalf("committee accounting: total %d threshold %d",
			h.coord.TotalWeight(), h.coord.WeightThreshold())
	}

	h.channel.Send(h.acceptEvent(0, 1, 2, 3))
	result := h.wait(h.start(nil))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	if len(result.sigs) != 4 {
		t.Fatalf("returned %d signatures, want 4", len(result.sigs))
	}
	slots := h.slotsOf(result.sigs)
	for slotID := uint32(0); slotID < 4; slotID++ {
		if !slots[slotID] {
			t.Errorf("missing signature from slot %d", slotID)
		}
	}

	// The proposal went out before any signature was consumed, to the
	// miners contract at the start of the miner slot range, at version 1.
	h.putter.mtx.Lock()
	defer h.putter.mtx.Unlock()
	if len(h.putter.chunks) != 1 {
		t.Fatalf("published %d chunks, want 1", len(h.putter.chunks))
	}
	if h.putter.contracts[0] != stackerdb.MinersContractID(h.params) {
		t.Errorf("published to %s", h.putter.contracts[0])
	}
	chunk := h.putter.chunks[0]
	if chunk.SlotID != 0 || chunk.SlotVersion != 1 {
		t.Errorf("proposal chunk at slot %d version %d, want 0 and 1",
			chunk.SlotID, chunk.SlotVersion)
	}
	msg, err := wire.DeserializeSignerMessage(chunk.Data)
	if err != nil {
		t.Fatalf("deserialize proposal chunk: %v", err)
	}
	proposal, ok := msg.(*wire.BlockProposal)
	if !ok {
		t.Fatalf("published message is a %s", msg.Type())
	}
	if proposal.BurnHeight != 25 || proposal.RewardCycle != 2 {
		t.Errorf("proposal context: burn height %d cycle %d",
			proposal.BurnHeight, proposal.RewardCycle)
	}

	// The bitvec records exactly the modified slots.
	bitvec := h.coord.NextSignerBitvec()
	for slotID := 0; slotID < 5; slotID++ {
		want := slotID < 4
		if bitvec.Get(slotID) != want {
			t.Errorf("bitvec bit %d: got %v, want %v", slotID,
				bitvec.Get(slotID), want)
		}
	}
}

// TestDuplicateAcceptsDoNotRecount verifies that a duplicated slot does not
// add weight twice: accepts from slots {0,0,1} leave the round short of the
// threshold until slots 2 and 3 respond.
func TestDuplicateAcceptsDoNotRecount(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	h.channel.Send(h.acceptEvent(0, 0, 1))
	h.channel.Send(h.acceptEvent(2))
	// Weight so far: 30 < 35.  The round must still be running, so a final
	// accept is required to terminate it.
	h.channel.Send(h.acceptEvent(3))

	result := h.wait(h.start(nil))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	if len(result.sigs) != 4 {
		t.Fatalf("returned %d signatures, want 4", len(result.sigs))
	}
}

// TestRejectTermination verifies the weighted reject majority: two rejects
// of weight 10 against threshold 35 and total 50 satisfy 20+35 > 50.
func TestRejectTermination(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	h.channel.Send(h.rejectEvent(0, 1))
	result := h.wait(h.start(nil))
	if !errors.Is(result.err, ErrSignersRejected) {
		t.Fatalf("got %v, want ErrSignersRejected", result.err)
	}
}

// TestSingleRejectContinues verifies that a reject below the majority bound
// does not terminate the round: accepts afterwards still finalize it.
func TestSingleRejectContinues(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	h.channel.Send(h.rejectEvent(4))
	h.channel.Send(h.acceptEvent(0, 1, 2, 3))
	result := h.wait(h.start(nil))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	if len(result.sigs) != 4 {
		t.Fatalf("returned %d signatures, want 4", len(result.sigs))
	}
}

// TestWrongBlockAcceptIgnored verifies that an accept whose response hash is
// for a different block adds no weight.
func TestWrongBlockAcceptIgnored(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 500*time.Millisecond)

	var otherHash chainhash.Hash
	otherHash[0] = 0xde
	var sig wire.MessageSignature
	copy(sig[:], secpecdsa.SignCompact(h.keys[0], otherHash[:], true))
	msgs := map[uint32]wire.SignerMessage{
		0: wire.AcceptedResponse(otherHash, sig),
	}
	h.channel.Send(h.event(h.signersContract(0), msgs, []uint32{0}))

	result := h.wait(h.start(nil))
	var sigErr SignerSignatureError
	if !errors.As(result.err, &sigErr) {
		t.Fatalf("got %v, want a timeout SignerSignatureError", result.err)
	}
	if sigErr.Description != "Timed out waiting for group signature" {
		t.Fatalf("timeout description: %q", sigErr.Description)
	}
}

// TestInvalidSignatureIgnored verifies that a verification failure is
// skipped without failing the round.
func TestInvalidSignatureIgnored(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	// Slot 0 claims the correct response hash but signs with a key that is
	// not the registered one.
	wrongKey := secp256k1.PrivKeyFromBytes([]byte{0x77})
	var sig wire.MessageSignature
	copy(sig[:], secpecdsa.SignCompact(wrongKey, h.sighash[:], true))
	msgs := map[uint32]wire.SignerMessage{
		0: wire.AcceptedResponse(h.sighash, sig),
	}
	h.channel.Send(h.event(h.signersContract(0), msgs, []uint32{0}))
	// Honest majority follows.
	h.channel.Send(h.acceptEvent(1, 2, 3, 4))

	result := h.wait(h.start(nil))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	slots := h.slotsOf(result.sigs)
	if slots[0] {
		t.Fatal("round gathered a signature for the forged slot 0 response")
	}
}

// TestTimeout verifies the exact timeout failure with no events delivered.
func TestTimeout(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 100*time.Millisecond)

	result := h.wait(h.start(nil))
	var sigErr SignerSignatureError
	if !errors.As(result.err, &sigErr) {
		t.Fatalf("got %v (%T), want SignerSignatureError", result.err, result.err)
	}
	if sigErr.Description != "Timed out waiting for group signature" {
		t.Fatalf("timeout description: %q", sigErr.Description)
	}
}

// TestOutOfBandCompletion verifies that a block found in chain state ends
// the round with the stored signature vector before any threshold is met.
func TestOutOfBandCompletion(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	stored := &wire.Block{Header: h.block.Header}
	stored.Header.SignerSignature = []wire.MessageSignature{
		h.signatureFor(0), h.signatureFor(1), h.signatureFor(4),
	}
	result := h.wait(h.start(&fakeBlockStore{block: stored}))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	if len(result.sigs) != 3 {
		t.Fatalf("returned %d signatures, want the 3 stored ones",
			len(result.sigs))
	}
	for i := range result.sigs {
		if !bytes.Equal(result.sigs[i][:], stored.Header.SignerSignature[i][:]) {
			t.Fatalf("signature %d does not match the stored vector", i)
		}
	}
}

// TestParityFilter verifies that events for the other signer set parity
// advance nothing.
func TestParityFilter(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 500*time.Millisecond)

	// Valid accepts, but delivered on the parity-1 contract while burn
	// height 25 is in an even reward cycle.
	msgs := make(map[uint32]wire.SignerMessage)
	for slotID := uint32(0); slotID < 4; slotID++ {
		msgs[slotID] = wire.AcceptedResponse(h.sighash, h.signatureFor(slotID))
	}
	h.channel.Send(h.event(h.signersContract(1), msgs, []uint32{0, 1, 2, 3}))

	result := h.wait(h.start(nil))
	var sigErr SignerSignatureError
	if !errors.As(result.err, &sigErr) {
		t.Fatalf("got %v, want a timeout SignerSignatureError", result.err)
	}
}

// TestNonSignerContractIgnored verifies that events for non-signer and
// non-boot contracts are filtered before any state is touched.
func TestNonSignerContractIgnored(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 500*time.Millisecond)

	// A miners-contract event and a signers-named contract from a non-boot
	// issuer.
	msgs := map[uint32]wire.SignerMessage{
		0: wire.AcceptedResponse(h.sighash, h.signatureFor(0)),
	}
	h.channel.Send(h.event(stackerdb.MinersContractID(h.params), msgs, []uint32{0}))

	nonBoot := stackerdb.ContractID{Name: "signers-0-1"}
	nonBoot.Issuer.Version = h.params.AddressVersion
	nonBoot.Issuer.Hash160[0] = 0x01
	h.channel.Send(h.event(nonBoot, msgs, []uint32{0}))

	result := h.wait(h.start(nil))
	var sigErr SignerSignatureError
	if !errors.As(result.err, &sigErr) {
		t.Fatalf("got %v, want a timeout SignerSignatureError", result.err)
	}
	// Filtered events must not touch the bitvec either.
	if h.coord.NextSignerBitvec().Get(0) {
		t.Fatal("filtered event set a bitvec bit")
	}
}

// TestBitvecOverflowFatal verifies that a modified slot beyond the fixed
// bitvec capacity is a fatal logic error.
func TestBitvecOverflowFatal(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	ev := StackerDBChunksEvent{
		ContractID: h.signersContract(0),
		ModifiedSlots: []stackerdb.ChunkData{
			{SlotID: 4000, SlotVersion: 1, Data: []byte{0xff}},
		},
	}
	h.channel.Send(ev)

	result := h.wait(h.start(nil))
	var failErr CoordinatorFailureError
	if !errors.As(result.err, &failErr) {
		t.Fatalf("got %v, want CoordinatorFailureError", result.err)
	}
}

// TestMissingSignerEntryFatal verifies that an accept from a slot outside
// the committee is a fatal error.
func TestMissingSignerEntryFatal(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	var sig wire.MessageSignature
	copy(sig[:], secpecdsa.SignCompact(h.keys[0], h.sighash[:], true))
	msgs := map[uint32]wire.SignerMessage{
		17: wire.AcceptedResponse(h.sighash, sig),
	}
	h.channel.Send(h.event(h.signersContract(0), msgs, []uint32{17}))

	result := h.wait(h.start(nil))
	var sigErr SignerSignatureError
	if !errors.As(result.err, &sigErr) {
		t.Fatalf("got %v, want SignerSignatureError", result.err)
	}
	if sigErr.Description != "Signer entry not found" {
		t.Fatalf("description: %q", sigErr.Description)
	}
}

// TestChannelDisconnect verifies that losing the event channel fails the
// round.
func TestChannelDisconnect(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	done := h.start(nil)
	h.channel.Shutdown()
	result := h.wait(done)
	var failErr CoordinatorFailureError
	if !errors.As(result.err, &failErr) {
		t.Fatalf("got %v, want CoordinatorFailureError", result.err)
	}
}

// TestFaultInjectionFallback verifies that with signature counting disabled
// the round still completes through the chain-state fallback.
func TestFaultInjectionFallback(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)
	h.coord.SetIgnoreSignatures(true)

	h.channel.Send(h.acceptEvent(0, 1, 2, 3, 4))

	stored := &wire.Block{Header: h.block.Header}
	stored.Header.SignerSignature = []wire.MessageSignature{
		h.signatureFor(0), h.signatureFor(1), h.signatureFor(2),
		h.signatureFor(3),
	}
	// The store starts serving the block only after the first poll, so the
	// ignored signatures are consumed first.
	result := h.wait(h.start(&fakeBlockStore{block: stored, afterCalls: 1}))
	if result.err != nil {
		t.Fatalf("RunSignV0: %v", result.err)
	}
	if len(result.sigs) != 4 {
		t.Fatalf("returned %d signatures, want the 4 stored ones",
			len(result.sigs))
	}
}

// TestReceiverRegistry verifies the claim/release/reclaim discipline of the
// channel registry.
func TestReceiverRegistry(t *testing.T) {
	channel := NewStackerDBChannel()

	_, replaced := channel.AcquireReceiver()
	if replaced {
		t.Fatal("first claim reported a replacement")
	}

	// A second claim without a release models reclaiming from a crashed
	// holder.
	_, replaced = channel.AcquireReceiver()
	if !replaced {
		t.Fatal("reclaim did not report a replacement")
	}

	channel.ReleaseReceiver()
	_, replaced = channel.AcquireReceiver()
	if replaced {
		t.Fatal("claim after release reported a replacement")
	}
}

// TestNoMinerSlot verifies that a missing miner slot fails the round during
// proposal publish.
func TestNoMinerSlot(t *testing.T) {
	h := newCoordHarness(t, []uint32{10, 10, 10, 10, 10}, 10*time.Second)

	done := make(chan runResult, 1)
	go func() {
		var election wire.ConsensusHash
		sigs, err := h.coord.RunSignV0(h.block, 1, &h.burnTip,
			&fakeSortition{ok: false}, &fakeBlockStore{},
			&fakeStackerDBView{}, &election)
		done <- runResult{sigs: sigs, err: err}
	}()
	result := h.wait(done)
	var failErr CoordinatorFailureError
	if !errors.As(result.err, &failErr) {
		t.Fatalf("got %v, want CoordinatorFailureError", result.err)
	}
}
