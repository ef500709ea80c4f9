// Copyright (c) 2023-2024 The stxd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netevent subscribes to the backing node's StackerDB event stream
// and feeds the process-wide coordinator channel registry.  The node is the
// single writer; this listener is the dispatcher thread of spec'd record.
package netevent

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stxsuite/stxd/internal/signcoord"
	"github.com/stxsuite/stxd/stackerdb"
)

const (
	// redialInterval paces reconnection attempts after a dropped stream.
	redialInterval = time.Second

	// readLimit bounds one event frame.
	readLimit = 32 * 1024 * 1024
)

// Config describes a listener.
type Config struct {
	// WSURL is the websocket endpoint of the node's StackerDB event stream,
	// e.g. "ws://127.0.0.1:20443/v2/events/stackerdb".
	WSURL string

	// Channel receives decoded events.  Nil selects the process-wide
	// registry.
	Channel *signcoord.StackerDBChannel
}

// Listener maintains the event stream subscription for the life of the
// process.
type Listener struct {
	wsURL   string
	channel *signcoord.StackerDBChannel

	quitMtx sync.Mutex
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New returns a listener for the given configuration.
func New(cfg *Config) *Listener {
	channel := cfg.Channel
	if channel == nil {
		channel = signcoord.SharedChannel()
	}
	return &Listener{
		wsURL:   cfg.WSURL,
		channel: channel,
		quit:    make(chan struct{}),
	}
}

// Run connects to the node and pumps events until Stop is called,
// redialing dropped connections.  It blocks and is intended to run on its
// own goroutine.
func (l *Listener) Run() {
	l.wg.Add(1)
	defer l.wg.Done()

	for {
		select {
		case <-l.quit:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(l.wsURL, nil)
		if err != nil {
			log.Warnf("Failed to connect to node event stream %s: %v",
				l.wsURL, err)
			select {
			case <-l.quit:
				return
			case <-time.After(redialInterval):
			}
			continue
		}
		conn.SetReadLimit(readLimit)
		log.Infof("Subscribed to StackerDB events at %s", l.wsURL)
		l.pump(conn)
		conn.Close()
	}
}

// Stop terminates the listener and waits for its goroutine to exit.
func (l *Listener) Stop() {
	l.quitMtx.Lock()
	select {
	case <-l.quit:
	default:
		close(l.quit)
	}
	l.quitMtx.Unlock()
	l.wg.Wait()
}

// pump reads events off one connection until it fails or the listener is
// stopped.
func (l *Listener) pump(conn *websocket.Conn) {
	for {
		select {
		case <-l.quit:
			return
		default:
		}

		var raw chunksEventJSON
		if err := conn.ReadJSON(&raw); err != nil {
			log.Warnf("Node event stream read failed: %v", err)
			return
		}
		ev, err := raw.decode()
		if err != nil {
			log.Warnf("Discarding undecodable StackerDB event: %v", err)
			continue
		}
		l.channel.Send(*ev)
	}
}

// chunksEventJSON is the node's JSON representation of one StackerDB event.
type chunksEventJSON struct {
	ContractID    string      `json:"contract_id"`
	ModifiedSlots []chunkJSON `json:"modified_slots"`
}

type chunkJSON struct {
	SlotID      uint32 `json:"slot_id"`
	SlotVersion uint32 `json:"slot_version"`
	Data        string `json:"data"`
	Sig         string `json:"sig"`
}

// decode converts the JSON representation into the coordinator's event type.
func (e *chunksEventJSON) decode() (*signcoord.StackerDBChunksEvent, error) {
	contract, err := stackerdb.ParseContractID(e.ContractID)
	if err != nil {
		return nil, err
	}
	ev := &signcoord.StackerDBChunksEvent{
		ContractID:    contract,
		ModifiedSlots: make([]stackerdb.ChunkData, 0, len(e.ModifiedSlots)),
	}
	for _, c := range e.ModifiedSlots {
		data, err := hex.DecodeString(c.Data)
		if err != nil {
			return nil, err
		}
		sig, err := hex.DecodeString(c.Sig)
		if err != nil || len(sig) != stackerdb.SignatureSize {
			return nil, stackerdb.ErrUnsignedChunk
		}
		chunk := stackerdb.ChunkData{
			SlotID:      c.SlotID,
			SlotVersion: c.SlotVersion,
			Data:        data,
		}
		copy(chunk.Sig[:], sig)
		ev.ModifiedSlots = append(ev.ModifiedSlots, chunk)
	}
	return ev, nil
}
