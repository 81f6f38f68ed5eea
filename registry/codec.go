// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// Discriminator identifies an instruction's argument layout, per spec.md
// §4.2's single leading byte.
type Discriminator byte

const (
	DiscInitializeRegistry Discriminator = 0
	DiscRegisterMiner      Discriminator = 1
	DiscMineClaim          Discriminator = 2
	DiscRevealClaim        Discriminator = 3
	DiscConsumeClaim       Discriminator = 4
	DiscClaimPow           Discriminator = 5
	DiscAdjustDifficulty   Discriminator = 6
)

// le256ToBytes encodes a uint256.Int as 32 little-endian bytes, the on-disk
// convention spec.md §6 mandates for every 256-bit field.
func le256ToBytes(v uint256.Int) [32]byte {
	be := v.Bytes32() // big-endian
	var le [32]byte
	for i := 0; i < 32; i++ {
		le[i] = be[31-i]
	}
	return le
}

// bytesToLE256 decodes 32 little-endian bytes into a uint256.Int.
func bytesToLE256(le [32]byte) uint256.Int {
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = le[31-i]
	}
	var v uint256.Int
	v.SetBytes(be[:])
	return v
}

// registryEncodedSize is the fixed on-disk width of a Registry account:
// 2 identities (32B) + 3 difficulties (32B) + 2 u64 + u64 + u16 + 2 u64 +
// u16 + 2 u64.
const registryEncodedSize = 32 + 32 + 32 + 32 + 32 + 8 + 8 + 8 + 2 + 8 + 8 + 2 + 8 + 8

// Encode serializes a Registry account field-by-field, little-endian, with
// no framing -- readers decode strictly by offset (spec.md §6).
func (r *Registry) Encode() []byte {
	buf := make([]byte, registryEncodedSize)
	off := 0
	off += copy(buf[off:], r.Admin[:])
	off += copy(buf[off:], r.ShieldPoolProgram[:])
	cur := le256ToBytes(r.CurrentDifficulty)
	off += copy(buf[off:], cur[:])
	minD := le256ToBytes(r.MinDifficulty)
	off += copy(buf[off:], minD[:])
	maxD := le256ToBytes(r.MaxDifficulty)
	off += copy(buf[off:], maxD[:])
	binary.LittleEndian.PutUint64(buf[off:], r.LastRetargetSlot)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.SolutionsObserved)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.TargetIntervalSlots)
	off += 8
	binary.LittleEndian.PutUint16(buf[off:], r.FeeShareBps)
	off += 2
	binary.LittleEndian.PutUint64(buf[off:], r.RevealWindow)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.ClaimWindow)
	off += 8
	binary.LittleEndian.PutUint16(buf[off:], r.MaxK)
	off += 2
	binary.LittleEndian.PutUint64(buf[off:], r.TotalClaims)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.ActiveClaims)
	off += 8
	return buf
}

// DecodeRegistry decodes bytes produced by (*Registry).Encode.
func DecodeRegistry(buf []byte) (*Registry, error) {
	if len(buf) != registryEncodedSize {
		return nil, fmt.Errorf("registry: bad registry encoding length %d, want %d", len(buf), registryEncodedSize)
	}
	r := &Registry{}
	off := 0
	copy(r.Admin[:], buf[off:off+32])
	off += 32
	copy(r.ShieldPoolProgram[:], buf[off:off+32])
	off += 32
	var tmp [32]byte
	copy(tmp[:], buf[off:off+32])
	r.CurrentDifficulty = bytesToLE256(tmp)
	off += 32
	copy(tmp[:], buf[off:off+32])
	r.MinDifficulty = bytesToLE256(tmp)
	off += 32
	copy(tmp[:], buf[off:off+32])
	r.MaxDifficulty = bytesToLE256(tmp)
	off += 32
	r.LastRetargetSlot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.SolutionsObserved = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.TargetIntervalSlots = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.FeeShareBps = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	r.RevealWindow = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.ClaimWindow = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.MaxK = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	r.TotalClaims = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.ActiveClaims = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	return r, nil
}

const minerEncodedSize = 32 + 8 + 8 + 8

// Encode serializes a Miner account field-by-field, little-endian.
func (m *Miner) Encode() []byte {
	buf := make([]byte, minerEncodedSize)
	off := 0
	off += copy(buf[off:], m.Authority[:])
	binary.LittleEndian.PutUint64(buf[off:], m.TotalMined)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.TotalConsumed)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.RegisteredAtSlot)
	off += 8
	return buf
}

// DecodeMiner decodes bytes produced by (*Miner).Encode.
func DecodeMiner(buf []byte) (*Miner, error) {
	if len(buf) != minerEncodedSize {
		return nil, fmt.Errorf("registry: bad miner encoding length %d, want %d", len(buf), minerEncodedSize)
	}
	m := &Miner{}
	off := 0
	copy(m.Authority[:], buf[off:off+32])
	off += 32
	m.TotalMined = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	m.TotalConsumed = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	m.RegisteredAtSlot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	return m, nil
}

const claimEncodedSize = 32 + 32 + 8 + 32 + 16 + 32 + 8 + 8 + 8 + 2 + 2 + 1

// Encode serializes a Claim account field-by-field, little-endian.
func (c *Claim) Encode() []byte {
	buf := make([]byte, claimEncodedSize)
	off := 0
	off += copy(buf[off:], c.MinerAuthority[:])
	off += copy(buf[off:], c.BatchHash[:])
	binary.LittleEndian.PutUint64(buf[off:], c.Slot)
	off += 8
	off += copy(buf[off:], c.SlotHash[:])
	off += copy(buf[off:], c.Nonce[:])
	off += copy(buf[off:], c.ProofHash[:])
	binary.LittleEndian.PutUint64(buf[off:], c.MinedAtSlot)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], c.RevealedAtSlot)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], c.ExpiresAtSlot)
	off += 8
	binary.LittleEndian.PutUint16(buf[off:], c.ConsumedCount)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], c.MaxConsumes)
	off += 2
	buf[off] = byte(c.Status)
	off++
	return buf
}

// DecodeClaim decodes bytes produced by (*Claim).Encode.
func DecodeClaim(buf []byte) (*Claim, error) {
	if len(buf) != claimEncodedSize {
		return nil, fmt.Errorf("registry: bad claim encoding length %d, want %d", len(buf), claimEncodedSize)
	}
	c := &Claim{}
	off := 0
	copy(c.MinerAuthority[:], buf[off:off+32])
	off += 32
	copy(c.BatchHash[:], buf[off:off+32])
	off += 32
	c.Slot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	copy(c.SlotHash[:], buf[off:off+32])
	off += 32
	copy(c.Nonce[:], buf[off:off+16])
	off += 16
	copy(c.ProofHash[:], buf[off:off+32])
	off += 32
	c.MinedAtSlot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.RevealedAtSlot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.ExpiresAtSlot = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.ConsumedCount = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	c.MaxConsumes = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	c.Status = Status(buf[off])
	off++
	return c, nil
}

// ConsumeClaimPayloadSize is the fixed width of the cross-program
// consume_claim payload (spec.md §6): 1-byte discriminator + two 32-byte
// identities.
const ConsumeClaimPayloadSize = 1 + 32 + 32

// EncodeConsumeClaimPayload builds the 65-byte cross-program call payload a
// withdrawal instruction hands the registry for consume_claim.
func EncodeConsumeClaimPayload(expectedMinerAuthority, expectedBatchHash [32]byte) []byte {
	buf := make([]byte, ConsumeClaimPayloadSize)
	buf[0] = byte(DiscConsumeClaim)
	copy(buf[1:33], expectedMinerAuthority[:])
	copy(buf[33:65], expectedBatchHash[:])
	return buf
}

// DecodeConsumeClaimPayload parses a 65-byte consume_claim payload.
func DecodeConsumeClaimPayload(buf []byte) (expectedMinerAuthority, expectedBatchHash [32]byte, err error) {
	if len(buf) != ConsumeClaimPayloadSize {
		return expectedMinerAuthority, expectedBatchHash, fmt.Errorf(
			"registry: bad consume_claim payload length %d, want %d", len(buf), ConsumeClaimPayloadSize)
	}
	if Discriminator(buf[0]) != DiscConsumeClaim {
		return expectedMinerAuthority, expectedBatchHash, fmt.Errorf(
			"registry: bad consume_claim discriminator %d, want %d", buf[0], DiscConsumeClaim)
	}
	copy(expectedMinerAuthority[:], buf[1:33])
	copy(expectedBatchHash[:], buf[33:65])
	return expectedMinerAuthority, expectedBatchHash, nil
}
