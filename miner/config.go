// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"github.com/holiman/uint256"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

// Config is a descriptor which specifies the scramble miner's configuration.
// Every piece of chain access is an injected function rather than an owned
// transport (spec.md §4.4), so this package has no RPC client of its own;
// cmd/scramble-miner supplies the concrete functions.
type Config struct {
	// Authority is this miner's x-only public key, the identity every
	// submitted instruction signs as.
	Authority [32]byte

	// BatchHash is the batch commitment every mined claim uses. The
	// all-zero value is the wildcard (spec.md §4.6); a non-wildcard
	// deployment sets this to a fixed descriptor hash.
	BatchHash [32]byte

	// MaxConsumes is max_consumes attached to every claim this miner
	// mines. This package passes it through unchanged; cmd/scramble-miner
	// clamps it to the policy's max_k at startup.
	MaxConsumes uint16

	// UseClaimPow selects the combined claim_pow submission path over
	// the two-step mine_claim/reveal_claim path (spec.md §4.2.5 vs
	// §4.2.3+§4.2.4 — both are valid, equivalent outcomes).
	UseClaimPow bool

	// NumWorkers specifies the number of nonce-search workers to run.
	NumWorkers uint32

	// UpdateNumWorkers is not read by this package; NumWorkers is read
	// afresh at the start of every search round.
	UpdateNumWorkers chan struct{}

	// EnsureMinerRegistered should register this miner's authority if no
	// miner account exists yet, and tolerate MinerExists if one already
	// does (spec.md §4.4 startup step 1).
	EnsureMinerRegistered func() error

	// CurrentDifficulty should return the registry's current_difficulty.
	CurrentDifficulty func() (uint256.Int, error)

	// FetchRecentSlot should return a recent slot S and its ledger hash,
	// chosen recent enough that reveal will still find it in the
	// slot-hashes ledger window (spec.md §4.4 main loop step 1).
	FetchRecentSlot func() (slot uint64, slotHash [32]byte, err error)

	// SignMineClaim signs the mine_claim message for args.
	SignMineClaim func(args registry.MineClaimArgs) (registry.Signed, error)

	// SignClaimPow signs the claim_pow message for args.
	SignClaimPow func(args registry.MineClaimArgs) (registry.Signed, error)

	// SignRevealClaim signs the reveal_claim message.
	SignRevealClaim func(batchHash [32]byte, slot uint64) (registry.Signed, error)

	// SubmitMineClaim submits a mine_claim instruction.
	SubmitMineClaim func(args registry.MineClaimArgs, signed registry.Signed) (*registry.Claim, error)

	// SubmitRevealClaim submits a reveal_claim instruction.
	SubmitRevealClaim func(batchHash [32]byte, slot uint64, signed registry.Signed) (*registry.Claim, error)

	// SubmitClaimPow submits a claim_pow instruction.
	SubmitClaimPow func(args registry.MineClaimArgs, signed registry.Signed) (*registry.Claim, error)
}
