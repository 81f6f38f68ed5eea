package registry_test

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"lukechampine.com/blake3"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

// keypair is a throwaway BIP-340 identity used across tests: an x-only
// public key (the registry's 32-byte identity type) plus the means to sign
// for it.
type keypair struct {
	priv *btcec.PrivateKey
	pub  [32]byte
}

func newKeypair() keypair {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	var pub [32]byte
	copy(pub[:], schnorr.SerializePubKey(priv.PubKey()))
	return keypair{priv: priv, pub: pub}
}

func (k keypair) sign(msg [32]byte) registry.Signed {
	sig, err := schnorr.Sign(k.priv, msg[:])
	if err != nil {
		panic(err)
	}
	var s [64]byte
	copy(s[:], sig.Serialize())
	return registry.Signed{Signer: k.pub, Signature: s}
}

// fakeLedger is an in-memory SlotHashes implementation for tests: callers
// seed exactly the (slot, hash) pairs they want "present in the ledger".
type fakeLedger map[uint64][32]byte

func (f fakeLedger) Lookup(slot uint64) ([32]byte, bool) {
	h, ok := f[slot]
	return h, ok
}

func randHash() [32]byte {
	var h [32]byte
	_, _ = rand.Read(h[:])
	return h
}

// blake3Disc, u16 and u64 reproduce Program's unexported sigMessage/u16le/
// u64le helpers so tests can construct the exact canonical message a given
// instruction call expects to be signed over.
func blake3Disc(disc byte, parts ...[]byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte{disc})
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func blake3Sum(data []byte) [32]byte {
	return blake3.Sum256(data)
}
