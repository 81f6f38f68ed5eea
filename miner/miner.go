// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package miner implements the off-chain proof-of-work miner: a
// long-running process that owns one BIP-340 authority keypair, searches
// for nonces that meet the registry's current difficulty, and submits
// mine/reveal (or the combined claim_pow) instructions when it finds one.
package miner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Machine-Labz/cloak-scramble/registry"
)

const (
	// hpsUpdateSecs is the interval, in seconds, between hashes-per-second
	// log updates.
	hpsUpdateSecs = 10
)

// Miner runs the mine loop described in spec.md §4.4: fetch a recent slot,
// search the nonce space in parallel across cfg.NumWorkers workers, and
// submit whichever worker wins, serially, before starting the next round.
type Miner struct {
	cfg    *Config
	wallet *Wallet
	pool   *ClaimPool

	mu               sync.Mutex
	started          bool
	quit             chan struct{}
	speedMonitorQuit chan struct{}
	updateHashes     chan uint64
	wg               sync.WaitGroup
}

// New wires a Miner to its configuration and signing wallet.
func New(cfg *Config, wallet *Wallet) *Miner {
	return &Miner{
		cfg:    cfg,
		wallet: wallet,
		pool:   NewClaimPool(),
	}
}

// Pool returns the miner's local claim-tracking pool.
func (m *Miner) Pool() *ClaimPool {
	return m.pool
}

// speedMonitor tracks hashes/sec across every search worker. It must be run
// as a goroutine.
func (m *Miner) speedMonitor() {
	log.Tracef("speed monitor started")

	var hashesPerSec int64
	var totalHashes uint64
	ticker := time.NewTicker(time.Second * hpsUpdateSecs)
	defer ticker.Stop()

out:
	for {
		select {
		case numHashes := <-m.updateHashes:
			totalHashes += numHashes

		case <-ticker.C:
			curHashesPerSec := int64(totalHashes / hpsUpdateSecs)
			if curHashesPerSec != hashesPerSec {
				log.Infof("hash speed: %d kilohashes/s", curHashesPerSec/1000)
				hashesPerSec = curHashesPerSec
			}
			totalHashes = 0

		case <-m.speedMonitorQuit:
			break out

		case <-m.quit:
			break out
		}
	}

	m.wg.Done()
	log.Tracef("speed monitor done")
}

// runRound fetches fresh round inputs, fans out cfg.NumWorkers search
// workers against the same target, and returns the winning args. Workers
// read only round's immutable fields and race to set won exactly once
// (spec.md §4.4 "Concurrency").
func (m *Miner) runRound(cfg *Config) (registry.MineClaimArgs, bool, error) {
	difficulty, err := cfg.CurrentDifficulty()
	if err != nil {
		return registry.MineClaimArgs{}, false, err
	}
	diffBytes := le256ToBytes(difficulty)

	slot, slotHash, err := cfg.FetchRecentSlot()
	if err != nil {
		return registry.MineClaimArgs{}, false, err
	}

	round := searchRound{
		slot:        slot,
		slotHash:    slotHash,
		authority:   cfg.Authority,
		batchHash:   cfg.BatchHash,
		maxConsumes: cfg.MaxConsumes,
		difficulty:  diffBytes,
	}

	numWorkers := cfg.NumWorkers
	if numWorkers == 0 {
		numWorkers = 1
	}

	var won atomic.Bool
	roundQuit := make(chan struct{})
	results := make(chan registry.MineClaimArgs, numWorkers)
	var workerWG sync.WaitGroup

	for i := uint32(0); i < numWorkers; i++ {
		start, err := randomNonce()
		if err != nil {
			close(roundQuit)
			workerWG.Wait()
			return registry.MineClaimArgs{}, false, err
		}
		workerWG.Add(1)
		go func(start [16]byte) {
			defer workerWG.Done()
			args, ok := search(round, start, &won, mergeQuit(m.quit, roundQuit), m.updateHashes)
			if ok {
				select {
				case results <- args:
				default:
				}
			}
		}(start)
	}

	workerWG.Wait()
	close(roundQuit)

	select {
	case args := <-results:
		return args, true, nil
	default:
		return registry.MineClaimArgs{}, false, nil
	}
}

// mergeQuit returns a channel that closes when either a or b closes.
func mergeQuit(a, b <-chan struct{}) <-chan struct{} {
	merged := make(chan struct{})
	go func() {
		select {
		case <-a:
		case <-b:
		}
		close(merged)
	}()
	return merged
}

// submitRound performs the serial submission half of a round: either the
// two-step mine_claim+reveal_claim path, or the combined claim_pow path,
// selected by cfg.UseClaimPow. Submission is strictly serial per authority
// to avoid PDA collisions (spec.md §4.4 "Concurrency").
func (m *Miner) submitRound(cfg *Config, args registry.MineClaimArgs) (*registry.Claim, error) {
	if cfg.UseClaimPow {
		signed, err := cfg.SignClaimPow(args)
		if err != nil {
			return nil, err
		}
		claim, err := cfg.SubmitClaimPow(args, signed)
		if err != nil {
			return nil, err
		}
		return claim, nil
	}

	mineSigned, err := cfg.SignMineClaim(args)
	if err != nil {
		return nil, err
	}
	if _, err := cfg.SubmitMineClaim(args, mineSigned); err != nil {
		return nil, err
	}

	revealSigned, err := cfg.SignRevealClaim(args.BatchHash, args.Slot)
	if err != nil {
		return nil, err
	}
	claim, err := cfg.SubmitRevealClaim(args.BatchHash, args.Slot, revealSigned)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// roundController runs mining rounds back to back until m.quit closes. It
// must be run as a goroutine.
func (m *Miner) roundController(cfg *Config) {
	log.Tracef("round controller started")

out:
	for {
		select {
		case <-m.quit:
			break out
		default:
		}

		args, found, err := m.runRound(cfg)
		if err != nil {
			log.Errorf("mining round failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if !found {
			continue
		}

		claim, err := m.submitRound(cfg, args)
		if err != nil {
			// Slot rotation or a PDA collision (identical seeds): restart
			// the round with a fresh slot/nonce base (spec.md §4.4 step 6).
			log.Warnf("submission failed, restarting round: %v", err)
			continue
		}

		key := registry.ClaimKey(cfg.Authority, claim.BatchHash, claim.Slot)
		m.pool.Track(LocalClaim{
			Key:           string(key),
			MinedAtSlot:   claim.MinedAtSlot,
			ExpiresAtSlot: claim.ExpiresAtSlot,
			ConsumedCount: claim.ConsumedCount,
			MaxConsumes:   claim.MaxConsumes,
			BatchHash:     claim.BatchHash,
		})
		log.Infof("claim revealed: slot=%d expires_at=%d", claim.Slot, claim.ExpiresAtSlot)
	}

	m.wg.Done()
	log.Tracef("round controller done")
}

// Start ensures the miner is registered, then begins mining rounds and the
// speed monitor. Calling this on an already-started Miner has no effect.
func (m *Miner) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	if err := m.cfg.EnsureMinerRegistered(); err != nil {
		return err
	}

	m.quit = make(chan struct{})
	m.speedMonitorQuit = make(chan struct{})
	m.updateHashes = make(chan uint64)

	m.wg.Add(2)
	go m.speedMonitor()
	go m.roundController(m.cfg)

	m.started = true
	log.Infof("miner started: authority=%x workers=%d", m.cfg.Authority, m.cfg.NumWorkers)
	return nil
}

// Stop signals every worker and the speed monitor to quit, and blocks
// until they finish.
func (m *Miner) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	close(m.quit)
	m.wg.Wait()
	m.started = false
	log.Infof("miner stopped")
}

// IsMining reports whether the miner is currently running.
func (m *Miner) IsMining() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
