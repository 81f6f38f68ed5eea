// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import "github.com/holiman/uint256"

// This file exports the canonical per-instruction signed messages a real
// client (the miner, the relay, an admin tool) needs in order to produce a
// Signed value Program will accept -- the off-chain equivalent of an
// instruction's public wire encoding. Program never calls these directly;
// it recomputes the same hashes inline so a caller cannot forge a
// signature over one instruction and replay it against another.

// InitializeRegistryMessage is the message initialize_registry's admin
// signs.
func InitializeRegistryMessage(shieldPoolProgram [32]byte, feeShareBps uint16) [32]byte {
	return sigMessage(DiscInitializeRegistry, shieldPoolProgram[:], u16le(feeShareBps))
}

// RegisterMinerMessage is the message register_miner's authority signs.
func RegisterMinerMessage() [32]byte {
	return sigMessage(DiscRegisterMiner)
}

// MineMessage is the message mine_claim's miner authority signs over a.
func (a MineClaimArgs) MineMessage() [32]byte {
	return a.signMessage(DiscMineClaim)
}

// ClaimPowMessage is the message claim_pow's miner authority signs over a.
func (a MineClaimArgs) ClaimPowMessage() [32]byte {
	return a.signMessage(DiscClaimPow)
}

// RevealClaimMessage is the message reveal_claim's signer signs.
func RevealClaimMessage(minerAuthority, batchHash [32]byte, slot uint64) [32]byte {
	return sigMessage(DiscRevealClaim, minerAuthority[:], batchHash[:], u64le(slot))
}

// AdjustDifficultyMessage is the message adjust_difficulty's admin signs.
func AdjustDifficultyMessage(newDifficulty uint256.Int) [32]byte {
	b := le256ToBytes(newDifficulty)
	return sigMessage(DiscAdjustDifficulty, b[:])
}
