// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import "sync"

// LocalClaim is the miner's local record of a claim it successfully
// revealed, keyed by the claim's derived store key (spec.md §4.4 step 7:
// "claim_pda, mined_at_slot, expires_at_slot, consumed_count,
// max_consumes, batch_hash"). On-chain state stays authoritative; this is
// advisory bookkeeping only.
type LocalClaim struct {
	Key           string
	MinedAtSlot   uint64
	ExpiresAtSlot uint64
	ConsumedCount uint16
	MaxConsumes   uint16
	BatchHash     [32]byte
}

// fullyConsumed reports whether the claim can no longer be consumed.
func (c LocalClaim) fullyConsumed() bool {
	return c.ConsumedCount >= c.MaxConsumes
}

// ClaimPool is the miner's single-writer, in-memory tracking structure for
// claims it has revealed. Safe for concurrent reads from Snapshot while the
// owning miner goroutine is the only writer.
type ClaimPool struct {
	mu     sync.Mutex
	claims map[string]LocalClaim
}

// NewClaimPool returns an empty pool.
func NewClaimPool() *ClaimPool {
	return &ClaimPool{claims: make(map[string]LocalClaim)}
}

// Track records or updates a claim.
func (p *ClaimPool) Track(c LocalClaim) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims[c.Key] = c
}

// Forget removes a claim's local record, e.g. once a consume confirmation
// reports it fully consumed.
func (p *ClaimPool) Forget(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.claims, key)
}

// Prune discards local records that have expired or been fully consumed as
// of currentSlot (spec.md §4.4 "Claim pool maintenance"). It returns the
// number of records discarded.
func (p *ClaimPool) Prune(currentSlot uint64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	discarded := 0
	for key, c := range p.claims {
		if c.ExpiresAtSlot < currentSlot || c.fullyConsumed() {
			delete(p.claims, key)
			discarded++
		}
	}
	return discarded
}

// Snapshot returns a copy of every tracked claim.
func (p *ClaimPool) Snapshot() []LocalClaim {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LocalClaim, 0, len(p.claims))
	for _, c := range p.claims {
		out = append(out, c)
	}
	return out
}

// Len reports how many claims are currently tracked.
func (p *ClaimPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.claims)
}
