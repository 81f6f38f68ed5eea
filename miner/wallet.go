// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package miner

import (
	"encoding/hex"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

// Wallet holds the single BIP-340 keypair a miner process signs every
// instruction with (spec.md §4.4: "the miner is a long-running,
// single-tenant process that owns one authority keypair").
type Wallet struct {
	priv *btcec.PrivateKey
	pub  [32]byte
}

// GenerateWallet creates a fresh keypair.
func GenerateWallet() (*Wallet, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return newWallet(priv), nil
}

// LoadWallet reads a hex-encoded 32-byte private key from path.
func LoadWallet(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(string(trimTrailingNewline(raw)))
	if err != nil {
		return nil, err
	}
	priv, pub := btcec.PrivKeyFromBytes(keyBytes)
	_ = pub
	return newWallet(priv), nil
}

// Save writes the wallet's private key, hex-encoded, to path. A newly
// created file gets mode 0600; an existing file keeps its current mode.
func (w *Wallet) Save(path string) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(w.priv.Serialize())), 0o600)
}

func newWallet(priv *btcec.PrivateKey) *Wallet {
	w := &Wallet{priv: priv}
	copy(w.pub[:], schnorr.SerializePubKey(priv.PubKey()))
	return w
}

// Authority returns the wallet's x-only public key, the 32-byte identity
// every registry instruction records as miner_authority.
func (w *Wallet) Authority() [32]byte {
	return w.pub
}

// Sign produces a Signed value over message using this wallet's key.
func (w *Wallet) Sign(message [32]byte) (registry.Signed, error) {
	sig, err := schnorr.Sign(w.priv, message[:])
	if err != nil {
		return registry.Signed{}, err
	}
	var s [64]byte
	copy(s[:], sig.Serialize())
	return registry.Signed{Signer: w.pub, Signature: s}, nil
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
