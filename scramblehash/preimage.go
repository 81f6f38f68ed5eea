// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scramblehash implements the fixed 137-byte preimage layout and
// BLAKE3-256 proof hash used by the scramble gate, plus the 256-bit
// little-endian difficulty comparison miners and the registry both perform
// against it.
package scramblehash

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"lukechampine.com/blake3"
)

// PreimageSize is the exact width, in bytes, of the scramble preimage.
const PreimageSize = 17 + 8 + 32 + 32 + 32 + 16

// domainTag is the 17-byte ASCII domain separator prefixed to every
// preimage. It has no trailing NUL.
var domainTag = [17]byte{'C', 'L', 'O', 'A', 'K', ':', 'S', 'C', 'R', 'A', 'M', 'B', 'L', 'E', ':', 'v', '1'}

// DomainTag returns the 17-byte ASCII domain tag used by Preimage.
func DomainTag() [17]byte { return domainTag }

// Preimage builds the fixed 137-byte layout:
//
//	offset size field
//	0      17   "CLOAK:SCRAMBLE:v1" (ASCII, no NUL)
//	17     8    slot (u64 LE)
//	25     32   slotHash
//	57     32   minerAuthority
//	89     32   batchHash
//	121    16   nonce (u128 LE)
//
// nonce is supplied as a 16-byte little-endian array so callers carrying a
// big.Int/uint128 value decide the conversion once, at the call site.
func Preimage(slot uint64, slotHash, minerAuthority, batchHash [32]byte, nonce [16]byte) [PreimageSize]byte {
	var buf [PreimageSize]byte
	off := 0
	copy(buf[off:], domainTag[:])
	off += len(domainTag)
	binary.LittleEndian.PutUint64(buf[off:], slot)
	off += 8
	copy(buf[off:], slotHash[:])
	off += 32
	copy(buf[off:], minerAuthority[:])
	off += 32
	copy(buf[off:], batchHash[:])
	off += 32
	copy(buf[off:], nonce[:])
	off += 16
	if off != PreimageSize {
		panic("scramblehash: preimage layout drifted from PreimageSize")
	}
	return buf
}

// ProofHash computes BLAKE3-256 over the preimage built from the given
// fields. The resulting 32-byte digest is the claim's proof_hash.
func ProofHash(slot uint64, slotHash, minerAuthority, batchHash [32]byte, nonce [16]byte) [32]byte {
	pre := Preimage(slot, slotHash, minerAuthority, batchHash, nonce)
	return blake3.Sum256(pre[:])
}

// MeetsDifficulty reports whether proofHash, interpreted as an unsigned
// 256-bit little-endian integer, is strictly less than currentDifficulty
// interpreted the same way. Comparison is performed via a fixed-width
// 256-bit integer type (not floating point), most-significant-byte-down,
// per the spec's difficulty rule.
func MeetsDifficulty(proofHash, currentDifficulty [32]byte) bool {
	var h, d uint256.Int
	h.SetBytes(reversed(proofHash))
	d.SetBytes(reversed(currentDifficulty))
	return h.Lt(&d)
}

// CompareLE256 compares two 32-byte little-endian unsigned integers,
// returning -1, 0, or 1 as a < b, a == b, a > b.
func CompareLE256(a, b [32]byte) int {
	var x, y uint256.Int
	x.SetBytes(reversed(a))
	y.SetBytes(reversed(b))
	return x.Cmp(&y)
}

// reversed returns a big-endian copy of a little-endian 32-byte value, the
// byte order uint256.SetBytes expects.
func reversed(le [32]byte) []byte {
	be := make([]byte, 32)
	for i := 0; i < 32; i++ {
		be[i] = le[31-i]
	}
	return be
}

// NonceBytes encodes a 128-bit nonce, supplied as (hi, lo) 64-bit halves, as
// 16 little-endian bytes.
func NonceBytes(hi, lo uint64) [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], lo)
	binary.LittleEndian.PutUint64(b[8:16], hi)
	return b
}

// NonceHalves decodes a 16-byte little-endian nonce back into (hi, lo)
// 64-bit halves.
func NonceHalves(nonce [16]byte) (hi, lo uint64) {
	lo = binary.LittleEndian.Uint64(nonce[0:8])
	hi = binary.LittleEndian.Uint64(nonce[8:16])
	return hi, lo
}

// IncNonce increments a 128-bit little-endian nonce by one, wrapping from
// all-ones back to zero as the spec's search loop requires.
func IncNonce(nonce [16]byte) [16]byte {
	hi, lo := NonceHalves(nonce)
	lo++
	if lo == 0 {
		hi++
	}
	return NonceBytes(hi, lo)
}
