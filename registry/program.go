// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package registry

import (
	"encoding/binary"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"github.com/Machine-Labz/cloak-scramble/scramblehash"
)

// SlotHashes models the chain-provided recent-slot-to-hash ledger (spec.md
// §3.2 and the glossary entry "Slot-hashes ledger"): a bounded recent
// window the program consults to enforce mine/reveal freshness.
type SlotHashes interface {
	// Lookup reports the hash recorded for slot, and whether slot is
	// still present in the retained window.
	Lookup(slot uint64) (hash [32]byte, ok bool)
}

// Signed pairs a claimed signer identity with a BIP-340 Schnorr signature
// over that instruction's canonical message. It is this repo's rendering
// of a runtime's "signer" account flag: the program does not trust the
// claimed identity until the signature verifies.
type Signed struct {
	Signer    [32]byte
	Signature [64]byte
}

func verifySigned(expected [32]byte, s Signed, message [32]byte) error {
	if s.Signer != expected {
		return newErr(KindUnauthorizedSigner, "signer %x does not match expected %x", s.Signer, expected)
	}
	pub, err := schnorr.ParsePubKey(s.Signer[:])
	if err != nil {
		return newErr(KindBadSignature, "invalid signer public key: %v", err)
	}
	sig, err := schnorr.ParseSignature(s.Signature[:])
	if err != nil {
		return newErr(KindBadSignature, "invalid signature encoding: %v", err)
	}
	if !sig.Verify(message[:], pub) {
		return newErr(KindBadSignature, "signature verification failed")
	}
	return nil
}

// Program is the scramble registry program: the on-chain state machine of
// spec.md §4.2, realized as methods over a Store. A single mutex serializes
// every instruction end-to-end, the Go-native stand-in for a chain
// executing one instruction at a time within a single transaction (spec.md
// §5): no instruction observes, or leaves, a partially-mutated account.
type Program struct {
	store   Store
	mu      sync.Mutex
	metrics *Metrics
}

// NewProgram wires a Program to its backing Store.
func NewProgram(store Store) *Program {
	return &Program{store: store}
}

func sigMessage(disc Discriminator, parts ...[]byte) [32]byte {
	h := blake3.New(32, nil)
	h.Write([]byte{byte(disc)})
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// InitializeArgs carries initialize_registry's argument payload (spec.md
// §4.2.1).
type InitializeArgs struct {
	InitialDifficulty   uint256.Int
	MinDifficulty       uint256.Int
	MaxDifficulty       uint256.Int
	TargetIntervalSlots uint64
	FeeShareBps         uint16
	RevealWindow        uint64
	ClaimWindow         uint64
	MaxK                uint16
	ShieldPoolProgram   [32]byte
}

// InitializeRegistry creates the singleton registry account. Fails if a
// registry already exists, if fee_share_bps exceeds 5000, or if
// min_difficulty >= max_difficulty (spec.md §4.2.1).
func (p *Program) InitializeRegistry(args InitializeArgs, admin Signed, currentSlot uint64) (*Registry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists, err := p.store.GetRegistry(); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrAlreadyInitialized
	}

	msg := sigMessage(DiscInitializeRegistry, args.ShieldPoolProgram[:], u16le(args.FeeShareBps))
	if err := verifySigned(admin.Signer, admin, msg); err != nil {
		return nil, err
	}

	policy := PolicyParams{
		MinDifficulty: args.MinDifficulty,
		MaxDifficulty: args.MaxDifficulty,
		FeeShareBps:   args.FeeShareBps,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		Admin:               admin.Signer,
		ShieldPoolProgram:   args.ShieldPoolProgram,
		CurrentDifficulty:   args.InitialDifficulty,
		MinDifficulty:       args.MinDifficulty,
		MaxDifficulty:       args.MaxDifficulty,
		LastRetargetSlot:    currentSlot,
		TargetIntervalSlots: args.TargetIntervalSlots,
		FeeShareBps:         args.FeeShareBps,
		RevealWindow:        args.RevealWindow,
		ClaimWindow:         args.ClaimWindow,
		MaxK:                args.MaxK,
	}
	if err := p.store.PutRegistry(r); err != nil {
		return nil, err
	}
	log.Infof("registry initialized: admin=%x shield_pool=%x fee_bps=%d", r.Admin, r.ShieldPoolProgram, r.FeeShareBps)
	return r, nil
}

// RegisterMiner creates the miner account for authority.Signer. Fails if a
// miner account already exists for this authority (spec.md §4.2.2).
func (p *Program) RegisterMiner(authority Signed, currentSlot uint64) (*Miner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := sigMessage(DiscRegisterMiner)
	if err := verifySigned(authority.Signer, authority, msg); err != nil {
		return nil, err
	}

	if _, exists, err := p.store.GetMiner(authority.Signer); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrMinerExists
	}

	m := &Miner{Authority: authority.Signer, RegisteredAtSlot: currentSlot}
	if err := p.store.PutMiner(m); err != nil {
		return nil, err
	}
	log.Infof("miner registered: authority=%x at slot %d", m.Authority, currentSlot)
	return m, nil
}

// MineClaimArgs carries mine_claim's (and claim_pow's) argument payload
// (spec.md §4.2.3).
type MineClaimArgs struct {
	BatchHash   [32]byte
	Slot        uint64
	SlotHash    [32]byte
	Nonce       [16]byte
	ProofHash   [32]byte
	MaxConsumes uint16
}

func (a MineClaimArgs) signMessage(disc Discriminator) [32]byte {
	return sigMessage(disc, a.BatchHash[:], u64le(a.Slot), a.SlotHash[:], a.Nonce[:], a.ProofHash[:], u16le(a.MaxConsumes))
}

// verifyMineArgs performs the five checks shared by mine_claim and
// claim_pow's mining half (spec.md §4.2.3 steps 1-5).
func (p *Program) verifyMineArgs(args MineClaimArgs, minerAuthority Signed, slotHashes SlotHashes, reg *Registry, miner *Miner) error {
	if miner.Authority != minerAuthority.Signer {
		return newErr(KindMinerAuthMismatch, "miner account authority %x != signer %x", miner.Authority, minerAuthority.Signer)
	}
	ledgerHash, ok := slotHashes.Lookup(args.Slot)
	if !ok {
		return newErr(KindSlotNotInLedger, "slot %d not present in slot-hashes ledger", args.Slot)
	}
	if ledgerHash != args.SlotHash {
		return newErr(KindSlotHashMismatch, "slot %d hash does not match ledger", args.Slot)
	}
	recomputed := scramblehash.ProofHash(args.Slot, args.SlotHash, minerAuthority.Signer, args.BatchHash, args.Nonce)
	if recomputed != args.ProofHash {
		return ErrPreimageHashMismatch
	}
	diffBytes := le256ToBytes(reg.CurrentDifficulty)
	if !scramblehash.MeetsDifficulty(args.ProofHash, diffBytes) {
		return ErrDifficultyNotMet
	}
	if args.MaxConsumes == 0 || args.MaxConsumes > reg.MaxK {
		return newErr(KindMaxConsumesInvalid, "max_consumes %d invalid for max_k %d", args.MaxConsumes, reg.MaxK)
	}
	return nil
}

// MineClaim creates a new claim in status Mined (spec.md §4.2.3).
func (p *Program) MineClaim(args MineClaimArgs, minerAuthority Signed, slotHashes SlotHashes, currentSlot uint64) (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := verifySigned(minerAuthority.Signer, minerAuthority, args.signMessage(DiscMineClaim)); err != nil {
		return nil, err
	}

	reg, exists, err := p.store.GetRegistry()
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotInitialized
	}
	miner, exists, err := p.store.GetMiner(minerAuthority.Signer)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrMinerNotFound
	}
	if err := p.verifyMineArgs(args, minerAuthority, slotHashes, reg, miner); err != nil {
		return nil, err
	}

	key := ClaimKey(minerAuthority.Signer, args.BatchHash, args.Slot)
	if _, exists, err := p.store.GetClaim(key); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrClaimExists
	}

	claim := &Claim{
		MinerAuthority: minerAuthority.Signer,
		BatchHash:      args.BatchHash,
		Slot:           args.Slot,
		SlotHash:       args.SlotHash,
		Nonce:          args.Nonce,
		ProofHash:      args.ProofHash,
		MinedAtSlot:    currentSlot,
		MaxConsumes:    args.MaxConsumes,
		Status:         StatusMined,
	}
	if err := p.store.PutClaim(key, claim); err != nil {
		return nil, err
	}

	reg.SolutionsObserved++
	reg.TotalClaims++
	if err := p.store.PutRegistry(reg); err != nil {
		return nil, err
	}
	miner.TotalMined++
	if err := p.store.PutMiner(miner); err != nil {
		return nil, err
	}

	log.Debugf("claim mined: miner=%x slot=%d batch=%x", claim.MinerAuthority, claim.Slot, claim.BatchHash)
	if p.metrics != nil {
		p.metrics.claimsMined.Inc()
		p.metrics.observeMSBDifficulty(le256ToBytes(reg.CurrentDifficulty))
	}
	return claim, nil
}

// RevealClaim transitions a Mined claim to Revealed within the reveal
// window, re-checking slot-hash freshness against the ledger (spec.md
// §4.2.4).
func (p *Program) RevealClaim(minerAuthority [32]byte, batchHash [32]byte, slot uint64, signer Signed, slotHashes SlotHashes, currentSlot uint64) (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := sigMessage(DiscRevealClaim, minerAuthority[:], batchHash[:], u64le(slot))
	if err := verifySigned(minerAuthority, signer, msg); err != nil {
		return nil, err
	}

	reg, exists, err := p.store.GetRegistry()
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotInitialized
	}

	key := ClaimKey(minerAuthority, batchHash, slot)
	claim, exists, err := p.store.GetClaim(key)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrClaimNotFound
	}

	if claim.Status != StatusMined {
		return nil, newErr(KindClaimStatusInvalid, "claim status %s, want Mined", claim.Status)
	}
	if claim.expiredByReveal(currentSlot, reg.RevealWindow) {
		claim.transition(StatusExpired)
		_ = p.store.PutClaim(key, claim)
		if p.metrics != nil {
			p.metrics.claimsExpired.Inc()
		}
		return nil, ErrRevealWindowElapsed
	}

	ledgerHash, ok := slotHashes.Lookup(claim.Slot)
	if !ok {
		return nil, ErrSlotNotInLedger
	}
	if ledgerHash != claim.SlotHash {
		return nil, ErrSlotHashMismatch
	}

	claim.RevealedAtSlot = currentSlot
	claim.ExpiresAtSlot = currentSlot + reg.ClaimWindow
	claim.transition(StatusRevealed)
	if err := p.store.PutClaim(key, claim); err != nil {
		return nil, err
	}

	log.Debugf("claim revealed: miner=%x slot=%d expires_at=%d", claim.MinerAuthority, claim.Slot, claim.ExpiresAtSlot)
	if p.metrics != nil {
		p.metrics.claimsRevealed.Inc()
	}
	return claim, nil
}

// ClaimPow performs mine_claim and reveal_claim's checks in one call,
// creating the claim directly in Revealed (spec.md §4.2.5).
func (p *Program) ClaimPow(args MineClaimArgs, minerAuthority Signed, slotHashes SlotHashes, currentSlot uint64) (*Claim, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := verifySigned(minerAuthority.Signer, minerAuthority, args.signMessage(DiscClaimPow)); err != nil {
		return nil, err
	}

	reg, exists, err := p.store.GetRegistry()
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotInitialized
	}
	miner, exists, err := p.store.GetMiner(minerAuthority.Signer)
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrMinerNotFound
	}
	if err := p.verifyMineArgs(args, minerAuthority, slotHashes, reg, miner); err != nil {
		return nil, err
	}

	key := ClaimKey(minerAuthority.Signer, args.BatchHash, args.Slot)
	if _, exists, err := p.store.GetClaim(key); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrClaimExists
	}

	claim := &Claim{
		MinerAuthority: minerAuthority.Signer,
		BatchHash:      args.BatchHash,
		Slot:           args.Slot,
		SlotHash:       args.SlotHash,
		Nonce:          args.Nonce,
		ProofHash:      args.ProofHash,
		MinedAtSlot:    currentSlot,
		RevealedAtSlot: currentSlot,
		ExpiresAtSlot:  currentSlot + reg.ClaimWindow,
		MaxConsumes:    args.MaxConsumes,
		Status:         StatusRevealed,
	}
	if err := p.store.PutClaim(key, claim); err != nil {
		return nil, err
	}

	reg.SolutionsObserved++
	reg.TotalClaims++
	if err := p.store.PutRegistry(reg); err != nil {
		return nil, err
	}
	miner.TotalMined++
	if err := p.store.PutMiner(miner); err != nil {
		return nil, err
	}

	log.Debugf("claim mined+revealed (claim_pow): miner=%x slot=%d expires_at=%d", claim.MinerAuthority, claim.Slot, claim.ExpiresAtSlot)
	if p.metrics != nil {
		p.metrics.claimsMined.Inc()
		p.metrics.claimsRevealed.Inc()
		p.metrics.observeMSBDifficulty(le256ToBytes(reg.CurrentDifficulty))
	}
	return claim, nil
}

// ConsumeClaimArgs carries consume_claim's argument payload (spec.md
// §4.2.6).
type ConsumeClaimArgs struct {
	ExpectedMinerAuthority [32]byte
	ExpectedBatchHash      [32]byte
}

// ConsumeClaim is the cross-program entry point a withdrawal instruction
// invokes after its own invariants pass (I9). callerProgram identifies the
// program performing the CPI; it must match registry.shield_pool_program.
// claimKey addresses the specific claim account the withdrawal's account
// list named (the relay resolved it in the finder step, spec.md §4.5).
func (p *Program) ConsumeClaim(callerProgram [32]byte, claimKey []byte, args ConsumeClaimArgs, currentSlot uint64) (*Claim, *Miner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reg, exists, err := p.store.GetRegistry()
	if err != nil {
		return nil, nil, err
	} else if !exists {
		return nil, nil, ErrNotInitialized
	}
	if callerProgram != reg.ShieldPoolProgram {
		return nil, nil, ErrUnauthorizedCaller
	}

	claim, exists, err := p.store.GetClaim(claimKey)
	if err != nil {
		return nil, nil, err
	} else if !exists {
		return nil, nil, ErrClaimNotFound
	}
	if claim.MinerAuthority != args.ExpectedMinerAuthority {
		return nil, nil, ErrMinerAuthMismatch
	}

	if claim.expiredByClaimWindow(currentSlot) {
		claim.transition(StatusExpired)
		_ = p.store.PutClaim(claimKey, claim)
		if p.metrics != nil {
			p.metrics.claimsExpired.Inc()
		}
		return nil, nil, ErrClaimExpired
	}
	if claim.Status == StatusConsumed || claim.ConsumedCount >= claim.MaxConsumes {
		return nil, nil, ErrClaimFullyConsumed
	}
	if claim.Status != StatusRevealed {
		return nil, nil, newErr(KindClaimStatusInvalid, "claim status %s, want Revealed", claim.Status)
	}
	if currentSlot > claim.ExpiresAtSlot {
		return nil, nil, ErrClaimExpired
	}
	if !claim.IsWildcard() && claim.BatchHash != args.ExpectedBatchHash {
		return nil, nil, ErrBatchHashMismatch
	}

	miner, exists, err := p.store.GetMiner(claim.MinerAuthority)
	if err != nil {
		return nil, nil, err
	} else if !exists {
		return nil, nil, ErrMinerNotFound
	}

	claim.ConsumedCount++
	consumedFully := claim.ConsumedCount == claim.MaxConsumes
	if consumedFully {
		claim.transition(StatusConsumed)
	}
	if err := p.store.PutClaim(claimKey, claim); err != nil {
		return nil, nil, err
	}

	miner.TotalConsumed++
	if err := p.store.PutMiner(miner); err != nil {
		return nil, nil, err
	}

	log.Debugf("claim consumed: miner=%x slot=%d consumed=%d/%d", claim.MinerAuthority, claim.Slot, claim.ConsumedCount, claim.MaxConsumes)
	if p.metrics != nil && consumedFully {
		p.metrics.claimsConsumed.Inc()
	}
	return claim, miner, nil
}

// AdjustDifficulty clamps newDifficulty to [min_difficulty, max_difficulty],
// sets current_difficulty, resets last_retarget_slot and
// solutions_observed (spec.md §4.2.7). Only registry.admin may call this.
func (p *Program) AdjustDifficulty(newDifficulty uint256.Int, admin Signed, currentSlot uint64) (*Registry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reg, exists, err := p.store.GetRegistry()
	if err != nil {
		return nil, err
	} else if !exists {
		return nil, ErrNotInitialized
	}

	newDiffBytes := le256ToBytes(newDifficulty)
	msg := sigMessage(DiscAdjustDifficulty, newDiffBytes[:])
	if err := verifySigned(reg.Admin, admin, msg); err != nil {
		return nil, ErrUnauthorizedAdmin
	}

	policy := PolicyParams{MinDifficulty: reg.MinDifficulty, MaxDifficulty: reg.MaxDifficulty}
	reg.CurrentDifficulty = policy.Clamp(newDifficulty)
	reg.LastRetargetSlot = currentSlot
	reg.SolutionsObserved = 0
	if err := p.store.PutRegistry(reg); err != nil {
		return nil, err
	}

	log.Infof("difficulty adjusted at slot %d", currentSlot)
	return reg, nil
}

// Registry returns the current registry account, for read-only callers
// (the miner's startup step, the relay's finder).
func (p *Program) Registry() (*Registry, bool, error) {
	return p.store.GetRegistry()
}

// Miner returns the miner account for authority, for read-only callers.
func (p *Program) Miner(authority [32]byte) (*Miner, bool, error) {
	return p.store.GetMiner(authority)
}

// Claim returns the claim account for the given key, for read-only callers.
func (p *Program) Claim(key []byte) (*Claim, bool, error) {
	return p.store.GetClaim(key)
}

// ListClaims returns every claim account; the relay's finder filters this
// down to usable candidates (spec.md §4.5).
func (p *Program) ListClaims() ([]*Claim, error) {
	return p.store.ListClaims()
}
