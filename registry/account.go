// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Registry is the singleton policy-and-difficulty account (spec.md §3.1).
// Exactly one exists per deployment, created by InitializeRegistry.
type Registry struct {
	Admin              [32]byte
	ShieldPoolProgram  [32]byte
	CurrentDifficulty  uint256.Int
	MinDifficulty      uint256.Int
	MaxDifficulty      uint256.Int
	LastRetargetSlot   uint64
	SolutionsObserved  uint64
	TargetIntervalSlots uint64
	FeeShareBps        uint16
	RevealWindow       uint64
	ClaimWindow        uint64
	MaxK               uint16
	TotalClaims        uint64
	ActiveClaims       uint64
}

// Miner is the immutable per-authority account created by RegisterMiner.
type Miner struct {
	Authority       [32]byte
	TotalMined      uint64
	TotalConsumed   uint64
	RegisteredAtSlot uint64
}

// Status is a claim's lifecycle state. Transitions are total and monotonic;
// see (*Claim).transition.
type Status uint8

const (
	StatusMined Status = iota
	StatusRevealed
	StatusConsumed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusMined:
		return "Mined"
	case StatusRevealed:
		return "Revealed"
	case StatusConsumed:
		return "Consumed"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Claim is the per-miner, per-batch, per-slot PoW claim account.
type Claim struct {
	MinerAuthority [32]byte
	BatchHash      [32]byte
	Slot           uint64
	SlotHash       [32]byte
	Nonce          [16]byte
	ProofHash      [32]byte

	MinedAtSlot    uint64
	RevealedAtSlot uint64
	ExpiresAtSlot  uint64

	ConsumedCount uint16
	MaxConsumes   uint16

	Status Status
}

// IsWildcard reports whether this claim's batch_hash is the reserved
// all-zero wildcard value, making it consumable by any expected_batch_hash
// (spec.md §4.6).
func (c *Claim) IsWildcard() bool {
	return c.BatchHash == [32]byte{}
}

// RegistryKey is the deterministic store key for the singleton registry
// account: seed tuple ("scramble_registry").
func RegistryKey() []byte {
	return []byte("scramble_registry")
}

// MinerKey is the deterministic store key for a miner account: seed tuple
// ("miner", authority).
func MinerKey(authority [32]byte) []byte {
	key := make([]byte, 0, 6+32)
	key = append(key, "miner/"...)
	key = append(key, authority[:]...)
	return key
}

// ClaimKey is the deterministic store key for a claim account: seed tuple
// ("claim", miner_authority, batch_hash, slot as 8 LE bytes).
func ClaimKey(minerAuthority, batchHash [32]byte, slot uint64) []byte {
	key := make([]byte, 0, 6+32+32+8)
	key = append(key, "claim/"...)
	key = append(key, minerAuthority[:]...)
	key = append(key, batchHash[:]...)
	var slotBytes [8]byte
	binary.LittleEndian.PutUint64(slotBytes[:], slot)
	key = append(key, slotBytes[:]...)
	return key
}
