// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// scramble-miner is the off-chain miner process of spec.md §4.4: it owns
// one BIP-340 authority keypair, searches for nonces meeting the
// registry's current difficulty, and submits mine/reveal (or claim_pow)
// instructions whenever it finds one.
//
// This binary runs the registry program in-process rather than against a
// live chain (spec.md §1 excludes RPC transport details): it bootstraps a
// registry on first run, using --datadir as the durable account store so
// a later invocation of cmd/scramble-relay pointed at the same path can
// discover the claims this miner reveals.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/holiman/uint256"

	"github.com/Machine-Labz/cloak-scramble/internal/localledger"
	"github.com/Machine-Labz/cloak-scramble/miner"
	"github.com/Machine-Labz/cloak-scramble/registry"
)

// slotInterval converts a configured slot tick in milliseconds to a
// time.Duration, defaulting to 400ms if unset.
func slotInterval(millis int) time.Duration {
	if millis <= 0 {
		millis = defaultSlotMillis
	}
	return time.Duration(millis) * time.Millisecond
}

func policyForNetwork(name string) registry.PolicyParams {
	switch name {
	case "mainnet":
		return registry.MainNetParams()
	case "devnet":
		return registry.DevNetParams()
	default:
		return registry.LocalNetParams()
	}
}

// bootstrapRegistry initializes the registry from policy if it does not
// already exist, signing as admin with wallet (spec.md §4.2.1). A
// standalone miner has no separate admin process to defer to, so this
// demo binary's own wallet doubles as the registry admin on first run.
func bootstrapRegistry(prog *registry.Program, wallet *miner.Wallet, policy registry.PolicyParams, shieldPool [32]byte, slot uint64) error {
	if _, exists, err := prog.Registry(); err != nil {
		return err
	} else if exists {
		return nil
	}

	msg := registry.InitializeRegistryMessage(shieldPool, policy.FeeShareBps)
	signed, err := wallet.Sign(msg)
	if err != nil {
		return err
	}

	_, err = prog.InitializeRegistry(registry.InitializeArgs{
		InitialDifficulty:   policy.MaxDifficulty,
		MinDifficulty:       policy.MinDifficulty,
		MaxDifficulty:       policy.MaxDifficulty,
		TargetIntervalSlots: policy.TargetIntervalSlots,
		FeeShareBps:         policy.FeeShareBps,
		RevealWindow:        policy.RevealWindow,
		ClaimWindow:         policy.ClaimWindow,
		MaxK:                policy.MaxK,
		ShieldPoolProgram:   shieldPool,
	}, signed, slot)
	return err
}

func loadOrGenerateWallet(cfg *config) (*miner.Wallet, error) {
	if _, err := os.Stat(cfg.KeyFile); err == nil {
		return miner.LoadWallet(cfg.KeyFile)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if !cfg.GenerateKey {
		return nil, fmt.Errorf("keyfile %s does not exist; rerun with --generatekey", cfg.KeyFile)
	}

	if dir := filepath.Dir(cfg.KeyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	wallet, err := miner.GenerateWallet()
	if err != nil {
		return nil, err
	}
	if err := wallet.Save(cfg.KeyFile); err != nil {
		return nil, err
	}
	return wallet, nil
}

func openStore(cfg *config) (registry.Store, func() error, error) {
	if cfg.DataDir == "" {
		store := registry.NewMemStore()
		return store, func() error { return nil }, nil
	}
	store, err := registry.OpenLevelStore(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := initLogRotator(cfg.logFile()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init log rotator: %v\n", err)
		os.Exit(1)
	}
	setLogLevels(cfg.Debug)

	if err := run(cfg); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	wallet, err := loadOrGenerateWallet(cfg)
	if err != nil {
		return fmt.Errorf("wallet: %w", err)
	}
	log.Infof("miner authority: %x", wallet.Authority())

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	prog := registry.NewProgram(store)
	policy := policyForNetwork(cfg.Network)

	shieldPool, err := parseHex32(cfg.ShieldPool)
	if err != nil {
		return fmt.Errorf("shield pool: %w", err)
	}
	batchHash, err := parseHex32(cfg.BatchHash)
	if err != nil {
		return fmt.Errorf("batch hash: %w", err)
	}

	ledger := localledger.New(policy.RevealWindow + policy.ClaimWindow)
	ctx, cancel := newInterruptContext()
	defer cancel()
	go ledger.Run(ctx, slotInterval(cfg.SlotMillis))

	slot, _ := ledger.Current()
	if err := bootstrapRegistry(prog, wallet, policy, shieldPool, slot); err != nil {
		return fmt.Errorf("bootstrap registry: %w", err)
	}

	maxConsumes := cfg.MaxConsumes
	if maxConsumes == 0 {
		maxConsumes = 1
	}
	if maxConsumes > policy.MaxK {
		maxConsumes = policy.MaxK
	}

	mcfg := &miner.Config{
		Authority:        wallet.Authority(),
		BatchHash:        batchHash,
		MaxConsumes:      maxConsumes,
		UseClaimPow:      cfg.ClaimPow,
		NumWorkers:       cfg.Workers,
		UpdateNumWorkers: make(chan struct{}),

		EnsureMinerRegistered: func() error {
			signed, err := wallet.Sign(registry.RegisterMinerMessage())
			if err != nil {
				return err
			}
			slot, _ := ledger.Current()
			_, err = prog.RegisterMiner(signed, slot)
			if errors.Is(err, registry.ErrMinerExists) {
				return nil
			}
			return err
		},

		CurrentDifficulty: func() (uint256.Int, error) {
			reg, exists, err := prog.Registry()
			if err != nil {
				return uint256.Int{}, err
			}
			if !exists {
				return uint256.Int{}, registry.ErrNotInitialized
			}
			return reg.CurrentDifficulty, nil
		},

		FetchRecentSlot: func() (uint64, [32]byte, error) {
			slot, hash := ledger.Current()
			return slot, hash, nil
		},

		SignMineClaim: func(args registry.MineClaimArgs) (registry.Signed, error) {
			return wallet.Sign(args.MineMessage())
		},

		SignClaimPow: func(args registry.MineClaimArgs) (registry.Signed, error) {
			return wallet.Sign(args.ClaimPowMessage())
		},

		SignRevealClaim: func(batchHash [32]byte, slot uint64) (registry.Signed, error) {
			return wallet.Sign(registry.RevealClaimMessage(wallet.Authority(), batchHash, slot))
		},

		SubmitMineClaim: func(args registry.MineClaimArgs, signed registry.Signed) (*registry.Claim, error) {
			slot, _ := ledger.Current()
			return prog.MineClaim(args, signed, ledger, slot)
		},

		SubmitRevealClaim: func(batchHash [32]byte, slot uint64, signed registry.Signed) (*registry.Claim, error) {
			cur, _ := ledger.Current()
			return prog.RevealClaim(wallet.Authority(), batchHash, slot, signed, ledger, cur)
		},

		SubmitClaimPow: func(args registry.MineClaimArgs, signed registry.Signed) (*registry.Claim, error) {
			cur, _ := ledger.Current()
			return prog.ClaimPow(args, signed, ledger, cur)
		},
	}

	m := miner.New(mcfg, wallet)
	if err := m.Start(); err != nil {
		return fmt.Errorf("start miner: %w", err)
	}

	<-ctx.Done()
	m.Stop()
	return nil
}

// newInterruptContext wires a context that cancels on SIGINT/SIGTERM, the
// same interrupt-handling shape mining/mobilex/cmd/mobilex-demo uses.
func newInterruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()
	return ctx, cancel
}
