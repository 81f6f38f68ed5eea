package registry_test

import (
	"testing"

	"github.com/holiman/uint256"
	"pgregory.net/rapid"

	"github.com/Machine-Labz/cloak-scramble/registry"
	"github.com/Machine-Labz/cloak-scramble/scramblehash"
)

// TestConsumedCountMonotonicAndBounded is P3: for all observed histories,
// consumed_count is monotonically non-decreasing and never exceeds
// max_consumes.
func TestConsumedCountMonotonicAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxConsumes := uint16(rapid.IntRange(1, 8).Draw(rt, "maxConsumes"))
		attempts := rapid.IntRange(0, 12).Draw(rt, "attempts")

		store := registry.NewMemStore()
		prog := registry.NewProgram(store)

		admin := newKeypair()
		miner := newKeypair()
		shieldPool := randHash()
		batch := randHash()
		maxDiff := uint256.NewInt(1).Lsh(uint256.NewInt(1), 256)
		maxDiff.Sub(maxDiff, uint256.NewInt(1))

		args := registry.InitializeArgs{
			InitialDifficulty: *maxDiff, MinDifficulty: *uint256.NewInt(0), MaxDifficulty: *maxDiff,
			TargetIntervalSlots: 10, FeeShareBps: 2000, RevealWindow: 10, ClaimWindow: 1000,
			MaxK: maxConsumes, ShieldPoolProgram: shieldPool,
		}
		sig := admin.sign(blake3Disc(0, args.ShieldPoolProgram[:], u16(args.FeeShareBps)))
		if _, err := prog.InitializeRegistry(args, sig, 0); err != nil {
			rt.Fatalf("initialize: %v", err)
		}
		if _, err := prog.RegisterMiner(miner.sign(registerMinerMessage()), 0); err != nil {
			rt.Fatalf("register_miner: %v", err)
		}

		slotHash := randHash()
		ledger := fakeLedger{10: slotHash}
		nonce := [16]byte{}
		proof := proofFor(10, slotHash, miner.pub, batch, nonce)
		mArgs := registry.MineClaimArgs{BatchHash: batch, Slot: 10, SlotHash: slotHash, Nonce: nonce, ProofHash: proof, MaxConsumes: maxConsumes}
		mSig := miner.sign(mineMessage(byte(registry.DiscMineClaim), batch, 10, slotHash, nonce, proof, maxConsumes))
		if _, err := prog.MineClaim(mArgs, mSig, ledger, 10); err != nil {
			rt.Fatalf("mine: %v", err)
		}
		claim, err := prog.RevealClaim(miner.pub, batch, 10, miner.sign(revealMessage(miner.pub, batch, 10)), ledger, 11)
		if err != nil {
			rt.Fatalf("reveal: %v", err)
		}

		claimKey := registry.ClaimKey(miner.pub, batch, 10)
		consumeArgs := registry.ConsumeClaimArgs{ExpectedMinerAuthority: miner.pub, ExpectedBatchHash: batch}

		var last uint16
		for i := 0; i < attempts; i++ {
			got, _, err := prog.ConsumeClaim(shieldPool, claimKey, consumeArgs, claim.RevealedAtSlot+uint64(i))
			if err != nil {
				if !errorIsKind(err, registry.KindClaimFullyConsumed) {
					rt.Fatalf("unexpected consume error: %v", err)
				}
				continue
			}
			if got.ConsumedCount < last {
				rt.Fatalf("consumed_count decreased: %d -> %d", last, got.ConsumedCount)
			}
			if got.ConsumedCount > maxConsumes {
				rt.Fatalf("consumed_count %d exceeds max_consumes %d", got.ConsumedCount, maxConsumes)
			}
			last = got.ConsumedCount
		}
	})
}

func proofFor(slot uint64, slotHash, minerAuthority, batchHash [32]byte, nonce [16]byte) [32]byte {
	return scramblehash.ProofHash(slot, slotHash, minerAuthority, batchHash, nonce)
}

func errorIsKind(err error, kind registry.ErrorKind) bool {
	rerr, ok := err.(*registry.Error)
	return ok && rerr.Kind == kind
}
