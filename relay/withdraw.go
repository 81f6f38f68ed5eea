// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package relay

import "github.com/Machine-Labz/cloak-scramble/registry"

// WithdrawAccounts is the six-account PoW extension a withdrawal
// transaction's own account list appends, in the exact order spec.md §6
// requires.
type WithdrawAccounts struct {
	RegistryProgram [32]byte
	Claim           []byte
	Miner           []byte
	Registry        []byte
	SlotSysvar      [32]byte
	MinerAuthority  [32]byte
}

// BuildWithdrawAccounts derives the six PoW accounts for a withdrawal
// targeting claimKey (the finder's selection) and minerAuthority (the
// claim's owner, who receives the fee share).
func BuildWithdrawAccounts(registryProgram [32]byte, claimKey []byte, minerAuthority [32]byte, slotSysvar [32]byte) WithdrawAccounts {
	return WithdrawAccounts{
		RegistryProgram: registryProgram,
		Claim:           claimKey,
		Miner:           registry.MinerKey(minerAuthority),
		Registry:        registry.RegistryKey(),
		SlotSysvar:      slotSysvar,
		MinerAuthority:  minerAuthority,
	}
}

// Ordered returns the six accounts in the exact append order spec.md §6
// names: registry program identity, claim, miner, registry, slot sysvar,
// miner authority.
func (a WithdrawAccounts) Ordered() [][]byte {
	return [][]byte{
		a.RegistryProgram[:],
		a.Claim,
		a.Miner,
		a.Registry,
		a.SlotSysvar[:],
		a.MinerAuthority[:],
	}
}

// Withdrawal is the minimal surface this package models for a
// withdrawal instruction external to this repo (spec.md §4.5: "the
// withdrawal instruction itself... validates its zk proof, root,
// nullifier, output-hash, and fee conservation"). This repo does not
// invent that proof format; it only needs the instruction's total fee and
// a way to append the PoW tail to its own payload. ConsumeAndSplit does
// not take a Withdrawal; callers pass the fee total directly as totalFee.
type Withdrawal interface {
	// FeeTotal returns the withdrawal's total fee, the amount split
	// between the scrambler miner and the protocol treasury.
	FeeTotal() uint64

	// AppendPoWTail appends the 32-byte expected_batch_hash to the
	// withdrawal's instruction payload (spec.md §6's "instruction payload
	// appends the 32-byte expected_batch_hash") and returns the result.
	AppendPoWTail(expectedBatchHash [32]byte) []byte
}

// ConsumeAndSplit performs the withdrawal-side sequence of spec.md §4.5:
// it must be called only after the withdrawal's own invariant checks pass
// (I9), invokes consume_claim as the cross-program call, and on success
// computes scrambler_share/protocol_share per §4.2.7/§8.1 P6's
// floor-division rule. Any failure of ConsumeClaim aborts the whole
// withdrawal atomically -- ConsumeAndSplit performs no partial credit.
func ConsumeAndSplit(prog *registry.Program, callerProgram [32]byte, claimKey []byte, expectedMinerAuthority, expectedBatchHash [32]byte, totalFee uint64, currentSlot uint64) (scramblerShare, protocolShare uint64, claim *registry.Claim, miner *registry.Miner, err error) {
	reg, exists, err := prog.Registry()
	if err != nil {
		return 0, 0, nil, nil, err
	}
	if !exists {
		return 0, 0, nil, nil, registry.ErrNotInitialized
	}

	claim, miner, err = prog.ConsumeClaim(callerProgram, claimKey, registry.ConsumeClaimArgs{
		ExpectedMinerAuthority: expectedMinerAuthority,
		ExpectedBatchHash:      expectedBatchHash,
	}, currentSlot)
	if err != nil {
		return 0, 0, nil, nil, err
	}

	scramblerShare = totalFee * uint64(reg.FeeShareBps) / 10000
	protocolShare = totalFee - scramblerShare

	log.Infof("withdrawal consumed claim: miner=%x scrambler_share=%d protocol_share=%d", claim.MinerAuthority, scramblerShare, protocolShare)
	return scramblerShare, protocolShare, claim, miner, nil
}
