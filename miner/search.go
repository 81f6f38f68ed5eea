// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"crypto/rand"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/Machine-Labz/cloak-scramble/registry"
	"github.com/Machine-Labz/cloak-scramble/scramblehash"
)

// le256ToBytes encodes a uint256.Int as 32 little-endian bytes, matching
// the registry's own on-disk/wire convention for 256-bit fields.
func le256ToBytes(v uint256.Int) [32]byte {
	be := v.Bytes32()
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

// searchRound bundles the immutable inputs every worker in one mining round
// shares (spec.md §4.4 step 5: "every worker reads immutable inputs and
// writes only its local best").
type searchRound struct {
	slot        uint64
	slotHash    [32]byte
	authority   [32]byte
	batchHash   [32]byte
	maxConsumes uint16
	difficulty  [32]byte
}

// randomNonce draws a 16-byte nonce from a cryptographically strong random
// source (spec.md §4.4 step 4).
func randomNonce() ([16]byte, error) {
	var n [16]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, err
	}
	return n, nil
}

// search scans the 128-bit nonce space starting at start for a proof hash
// meeting round.difficulty. It reports hash-count progress on updateHashes
// roughly every hashReportInterval hashes, and returns early if quit fires
// or won is already set by a sibling worker (the single-writer "winner
// elected" flag spec.md §4.4's Concurrency paragraph describes).
func search(round searchRound, start [16]byte, won *atomic.Bool, quit <-chan struct{}, updateHashes chan<- uint64) (registry.MineClaimArgs, bool) {
	const hashReportInterval = 1 << 16

	nonce := start
	var hashesCompleted uint64

	for {
		select {
		case <-quit:
			return registry.MineClaimArgs{}, false
		default:
		}
		if won.Load() {
			return registry.MineClaimArgs{}, false
		}

		proof := scramblehash.ProofHash(round.slot, round.slotHash, round.authority, round.batchHash, nonce)
		hashesCompleted++

		if scramblehash.MeetsDifficulty(proof, round.difficulty) {
			if won.CompareAndSwap(false, true) {
				if updateHashes != nil {
					updateHashes <- hashesCompleted
				}
				return registry.MineClaimArgs{
					BatchHash:   round.batchHash,
					Slot:        round.slot,
					SlotHash:    round.slotHash,
					Nonce:       nonce,
					ProofHash:   proof,
					MaxConsumes: round.maxConsumes,
				}, true
			}
			// A sibling worker already won; stop without resubmitting.
			return registry.MineClaimArgs{}, false
		}

		if hashesCompleted%hashReportInterval == 0 {
			if updateHashes != nil {
				select {
				case updateHashes <- hashesCompleted:
					hashesCompleted = 0
				default:
				}
			}
		}

		next := scramblehash.IncNonce(nonce)
		if next == start {
			return registry.MineClaimArgs{}, false
		}
		nonce = next
	}
}
