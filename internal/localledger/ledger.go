// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package localledger stands in for the chain-provided slot-hashes ledger
// (spec.md §3.2, glossary "Slot-hashes ledger") in the absence of a live
// chain: spec.md §1 excludes RPC transport details from this spec's scope,
// so cmd/scramble-miner drives a simulated slot clock instead of a real
// validator's recent-slot window.
package localledger

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"lukechampine.com/blake3"
)

// Ledger is a monotonically increasing slot counter paired with a bounded
// recent window of slot -> hash entries, satisfying registry.SlotHashes.
type Ledger struct {
	mu     sync.RWMutex
	slot   uint64
	window uint64
	hashes map[uint64][32]byte
}

// New returns a Ledger starting at slot 0. It retains the current slot
// plus the window slots before it (window+1 entries) once it has advanced
// past window.
func New(window uint64) *Ledger {
	l := &Ledger{window: window, hashes: make(map[uint64][32]byte)}
	l.hashes[0] = slotHash(0)
	return l
}

// slotHash deterministically derives a slot's hash from its slot number.
// A real validator's slot hash commits to that slot's block; here a
// BLAKE3 digest of the slot number is sufficient to give every slot a
// distinct, reproducible 32-byte identity.
func slotHash(slot uint64) [32]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], slot)
	return blake3.Sum256(b[:])
}

// Current returns the current slot and its hash.
func (l *Ledger) Current() (uint64, [32]byte) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slot, l.hashes[l.slot]
}

// Lookup implements registry.SlotHashes: it reports the hash recorded for
// slot and whether slot is still within the retained window.
func (l *Ledger) Lookup(slot uint64) (hash [32]byte, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	hash, ok = l.hashes[slot]
	return hash, ok
}

// Advance moves the ledger forward by one slot, evicting whatever has
// rotated out of the retained window, and returns the new slot and hash.
func (l *Ledger) Advance() (uint64, [32]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slot++
	h := slotHash(l.slot)
	l.hashes[l.slot] = h
	if l.slot > l.window {
		delete(l.hashes, l.slot-l.window-1)
	}
	return l.slot, h
}

// Run advances the ledger by one slot every interval until ctx is
// cancelled. It must be run as a goroutine.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Advance()
		}
	}
}
