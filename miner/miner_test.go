package miner

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

type fakeLedger map[uint64][32]byte

func (f fakeLedger) Lookup(slot uint64) ([32]byte, bool) {
	h, ok := f[slot]
	return h, ok
}

// harness wires a Miner against a real registry.Program over a MemStore,
// with every Config function backed directly by Program calls -- the same
// in-process wiring cmd/scramble-miner performs.
type harness struct {
	prog   *registry.Program
	admin  *Wallet
	wallet *Wallet
	ledger fakeLedger
	slot   uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := registry.NewMemStore()
	prog := registry.NewProgram(store)

	admin, err := GenerateWallet()
	if err != nil {
		t.Fatalf("generate admin wallet: %v", err)
	}
	wallet, err := GenerateWallet()
	if err != nil {
		t.Fatalf("generate miner wallet: %v", err)
	}

	maxDiff := uint256.NewInt(1).Lsh(uint256.NewInt(1), 256)
	maxDiff.Sub(maxDiff, uint256.NewInt(1))

	initArgs := registry.InitializeArgs{
		InitialDifficulty:  *maxDiff,
		MinDifficulty:      *uint256.NewInt(0),
		MaxDifficulty:      *maxDiff,
		FeeShareBps:        2000,
		RevealWindow:       1000,
		ClaimWindow:        100000,
		MaxK:               5,
		ShieldPoolProgram:  [32]byte{0xAB},
	}
	sig, err := admin.Sign(registry.InitializeRegistryMessage(initArgs.ShieldPoolProgram, initArgs.FeeShareBps))
	if err != nil {
		t.Fatalf("sign initialize: %v", err)
	}
	if _, err := prog.InitializeRegistry(initArgs, sig, 0); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	return &harness{
		prog:   prog,
		admin:  admin,
		wallet: wallet,
		ledger: fakeLedger{10: {0xCD}},
		slot:   10,
	}
}

func (h *harness) config() *Config {
	authority := h.wallet.Authority()
	return &Config{
		Authority:   authority,
		BatchHash:   [32]byte{},
		MaxConsumes: 1,
		UseClaimPow: true,
		NumWorkers:  2,
		EnsureMinerRegistered: func() error {
			sig, err := h.wallet.Sign(registry.RegisterMinerMessage())
			if err != nil {
				return err
			}
			_, err = h.prog.RegisterMiner(sig, 0)
			if err != nil {
				var rerr *registry.Error
				if asRegistryErr(err, &rerr) && rerr.Kind == registry.KindMinerExists {
					return nil
				}
				return err
			}
			return nil
		},
		CurrentDifficulty: func() (uint256.Int, error) {
			reg, _, err := h.prog.Registry()
			if err != nil {
				return uint256.Int{}, err
			}
			return reg.CurrentDifficulty, nil
		},
		FetchRecentSlot: func() (uint64, [32]byte, error) {
			hash, _ := h.ledger.Lookup(h.slot)
			return h.slot, hash, nil
		},
		SignClaimPow: func(args registry.MineClaimArgs) (registry.Signed, error) {
			return h.wallet.Sign(args.ClaimPowMessage())
		},
		SubmitClaimPow: func(args registry.MineClaimArgs, signed registry.Signed) (*registry.Claim, error) {
			return h.prog.ClaimPow(args, signed, h.ledger, h.slot+1)
		},
	}
}

func asRegistryErr(err error, target **registry.Error) bool {
	rerr, ok := err.(*registry.Error)
	if ok {
		*target = rerr
	}
	return ok
}

func TestMinerMinesAndRevealsAClaimViaClaimPow(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()

	m := New(cfg, h.wallet)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for m.Pool().Len() == 0 {
		select {
		case <-deadline:
			m.Stop()
			t.Fatal("timed out waiting for a claim to be mined and revealed")
		case <-time.After(time.Millisecond):
		}
	}
	m.Stop()

	claims := m.Pool().Snapshot()
	if len(claims) != 1 {
		t.Fatalf("pool len = %d, want 1", len(claims))
	}
	if claims[0].MaxConsumes != 1 {
		t.Fatalf("max_consumes = %d, want 1", claims[0].MaxConsumes)
	}
}

func TestMinerStopIsIdempotent(t *testing.T) {
	h := newHarness(t)
	m := New(h.config(), h.wallet)
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Stop()
	m.Stop() // must not block or panic
	if m.IsMining() {
		t.Fatal("miner reports mining after Stop")
	}
}
