// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import (
	"bytes"
	"context"
	"sort"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

// ScanClaims enumerates every claim account currently on-chain (spec.md
// §4.5 step 2). The relay owns no miner keypair and no transport of its
// own; cmd/scramble-relay supplies this from its in-process
// registry.Program.
type ScanClaims func(ctx context.Context) ([]registry.ClaimView, error)

// Finder selects a candidate claim for one withdrawal job (spec.md §4.5).
type Finder struct {
	Scan ScanClaims
}

// NewFinder wires a Finder to its chain-scanning function.
func NewFinder(scan ScanClaims) *Finder {
	return &Finder{Scan: scan}
}

// eligible reports whether c passes the filter of spec.md §4.5 step 3.
func eligible(c *registry.Claim, expectedBatchHash [32]byte, currentSlot uint64) bool {
	if c.Status != registry.StatusRevealed {
		return false
	}
	// spec.md §4.5 step 3 filters strictly: expires_at_slot > current_slot.
	// This is deliberately tighter than ConsumeClaim's own on-chain check
	// (which allows consuming at exactly expires_at_slot, spec.md §8.3) --
	// the relay scans before submission lands, so it leaves margin rather
	// than selecting a claim that may expire by the time the withdrawal
	// transaction executes.
	if c.ExpiresAtSlot <= currentSlot {
		return false
	}
	if c.ConsumedCount >= c.MaxConsumes {
		return false
	}
	if c.IsWildcard() {
		return true
	}
	return c.BatchHash == expectedBatchHash
}

// Select scans for candidate claims and returns the one chosen by the
// deterministic tie-break spec.md §4.5 step 4 names as the safe default:
// "oldest remaining capacity". Among eligible claims this picks the one
// revealed longest ago, breaking ties by the smallest remaining capacity
// (max_consumes - consumed_count), and finally by the claim's derived
// store key so the choice is reproducible run to run.
func (f *Finder) Select(ctx context.Context, expectedBatchHash [32]byte, currentSlot uint64) (registry.ClaimView, error) {
	views, err := f.Scan(ctx)
	if err != nil {
		return registry.ClaimView{}, err
	}

	var candidates []registry.ClaimView
	for _, v := range views {
		if eligible(v.Claim, expectedBatchHash, currentSlot) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return registry.ClaimView{}, ErrNoClaimAvailable
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i].Claim, candidates[j].Claim
		if a.RevealedAtSlot != b.RevealedAtSlot {
			return a.RevealedAtSlot < b.RevealedAtSlot
		}
		remA := a.MaxConsumes - a.ConsumedCount
		remB := b.MaxConsumes - b.ConsumedCount
		if remA != remB {
			return remA < remB
		}
		return bytes.Compare(candidates[i].Key, candidates[j].Key) < 0
	})

	return candidates[0], nil
}
