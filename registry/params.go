// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import "github.com/holiman/uint256"

// PolicyParams is the registry's fixed-width policy struct: every knob the
// program enforces when dispatching instructions. It plays the role
// chaincfg.Params plays for a full chain -- a single struct selected by
// network name at startup, never mutated except through AdjustDifficulty's
// narrow counters-and-current-difficulty update.
type PolicyParams struct {
	// Name identifies which preset this came from ("mainnet", "devnet",
	// "localnet", ...). Informational only; the program never branches on
	// it directly.
	Name string

	MinDifficulty       uint256.Int
	MaxDifficulty       uint256.Int
	TargetIntervalSlots uint64
	FeeShareBps         uint16
	RevealWindow        uint64
	ClaimWindow         uint64
	MaxK                uint16
}

// maxFeeShareBps is the hard cap on registry.fee_share_bps (I10): 50%.
const maxFeeShareBps = 5000

// MainNetParams are conservative production defaults: a wide difficulty
// range, a 150-slot reveal window and a 9000-slot claim window, and a
// modest miner fee share.
func MainNetParams() PolicyParams {
	return PolicyParams{
		Name:                "mainnet",
		MinDifficulty:       *uint256.NewInt(1).Lsh(uint256.NewInt(1), 200),
		MaxDifficulty:       *uint256.NewInt(1).Lsh(uint256.NewInt(1), 255),
		TargetIntervalSlots: 150,
		FeeShareBps:         2000,
		RevealWindow:        150,
		ClaimWindow:         9000,
		MaxK:                8,
	}
}

// DevNetParams shorten the windows (50-slot reveal, 2000-slot claim) and
// widen the difficulty range for integration testing against a live devnet
// cluster.
func DevNetParams() PolicyParams {
	return PolicyParams{
		Name:                "devnet",
		MinDifficulty:       *uint256.NewInt(1).Lsh(uint256.NewInt(1), 180),
		MaxDifficulty:       *uint256.NewInt(1).Lsh(uint256.NewInt(1), 256).Sub(uint256.NewInt(1).Lsh(uint256.NewInt(1), 256), uint256.NewInt(1)),
		TargetIntervalSlots: 50,
		FeeShareBps:         2500,
		RevealWindow:        50,
		ClaimWindow:         2000,
		MaxK:                16,
	}
}

// LocalNetParams make difficulty trivial and keep the windows short
// (10-slot reveal, 100-slot claim), for single-process local runs.
func LocalNetParams() PolicyParams {
	maxDiff := uint256.NewInt(1).Lsh(uint256.NewInt(1), 256)
	maxDiff.Sub(maxDiff, uint256.NewInt(1))
	return PolicyParams{
		Name:                "localnet",
		MinDifficulty:       *uint256.NewInt(0),
		MaxDifficulty:       *maxDiff,
		TargetIntervalSlots: 10,
		FeeShareBps:         2000,
		RevealWindow:        10,
		ClaimWindow:         100,
		MaxK:                4,
	}
}

// Validate checks the initialization-time invariants from spec.md §4.2.1:
// fee_share_bps <= 5000 (I10) and min_difficulty < max_difficulty.
func (p PolicyParams) Validate() error {
	if p.FeeShareBps > maxFeeShareBps {
		return newErr(KindFeeShareOutOfRange, "fee_share_bps %d exceeds %d", p.FeeShareBps, maxFeeShareBps)
	}
	if p.MinDifficulty.Cmp(&p.MaxDifficulty) >= 0 {
		return newErr(KindDifficultyBoundsInvalid, "min_difficulty must be strictly less than max_difficulty")
	}
	return nil
}

// Clamp returns d clamped into [p.MinDifficulty, p.MaxDifficulty].
func (p PolicyParams) Clamp(d uint256.Int) uint256.Int {
	if d.Cmp(&p.MinDifficulty) < 0 {
		return p.MinDifficulty
	}
	if d.Cmp(&p.MaxDifficulty) > 0 {
		return p.MaxDifficulty
	}
	return d
}
