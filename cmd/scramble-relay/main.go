// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// scramble-relay enumerates on-chain claims and couples a usable one into
// a withdrawal's consume_claim CPI and fee split (spec.md §4.5). It owns
// no miner keypair and no transport of its own.
//
// Pointed at the same --datadir a prior cmd/scramble-miner run used, it
// reads the claims that miner revealed, selects one per withdrawal job,
// and logs the fee split and the selected claim's miner authority for each
// job.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Machine-Labz/cloak-scramble/registry"
	"github.com/Machine-Labz/cloak-scramble/relay"
)

// jobSpec is one line of a --jobsfile: relay.Job with its fixed-size byte
// fields rendered as hex strings for JSON.
type jobSpec struct {
	ID                string `json:"id"`
	ExpectedMinerAuth string `json:"expected_miner_authority"`
	ExpectedBatchHash string `json:"expected_batch_hash"`
	TotalFee          uint64 `json:"total_fee"`
	CallerProgram     string `json:"caller_program"`
	CurrentSlot       uint64 `json:"current_slot"`
	RegistryProgram   string `json:"registry_program"`
}

func (j jobSpec) toJob() (relay.Job, error) {
	minerAuth, err := parseHex32(j.ExpectedMinerAuth)
	if err != nil {
		return relay.Job{}, fmt.Errorf("expected_miner_authority: %w", err)
	}
	batchHash, err := parseHex32(j.ExpectedBatchHash)
	if err != nil {
		return relay.Job{}, fmt.Errorf("expected_batch_hash: %w", err)
	}
	callerProgram, err := parseHex32(j.CallerProgram)
	if err != nil {
		return relay.Job{}, fmt.Errorf("caller_program: %w", err)
	}
	registryProgram, err := parseHex32(j.RegistryProgram)
	if err != nil {
		return relay.Job{}, fmt.Errorf("registry_program: %w", err)
	}
	return relay.Job{
		ID:                j.ID,
		ExpectedMinerAuth: minerAuth,
		ExpectedBatchHash: batchHash,
		TotalFee:          j.TotalFee,
		CallerProgram:     callerProgram,
		CurrentSlot:       j.CurrentSlot,
		RegistryProgram:   registryProgram,
	}, nil
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

func readJobs(path string) ([]relay.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var jobs []relay.Job
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		var spec jobSpec
		if err := json.Unmarshal([]byte(line), &spec); err != nil {
			return nil, fmt.Errorf("parse job line: %w", err)
		}
		job, err := spec.toJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, scanner.Err()
}

func logResult(res relay.JobResult) {
	if res.Err != nil {
		if errors.Is(res.Err, relay.ErrNoClaimAvailable) {
			log.Warnf("job %s: no claim available", res.JobID)
			return
		}
		log.Errorf("job %s: %v", res.JobID, res.Err)
		return
	}
	log.Infof("job %s: consumed claim miner=%x scrambler_share=%d protocol_share=%d",
		res.JobID, res.Accounts.MinerAuthority, res.ScramblerShare, res.ProtocolShare)
}

func singleJob(cfg *config) (relay.Job, error) {
	minerAuth, err := parseHex32(cfg.ExpectedMinerAuth)
	if err != nil {
		return relay.Job{}, fmt.Errorf("--expectedminer: %w", err)
	}
	batchHash, err := parseHex32(cfg.ExpectedBatchHash)
	if err != nil {
		return relay.Job{}, fmt.Errorf("--expectedbatch: %w", err)
	}
	callerProgram, err := parseHex32(cfg.CallerProgram)
	if err != nil {
		return relay.Job{}, fmt.Errorf("--callerprogram: %w", err)
	}
	registryProgram, err := parseHex32(cfg.RegistryProgram)
	if err != nil {
		return relay.Job{}, fmt.Errorf("--registryprogram: %w", err)
	}
	return relay.Job{
		ID:                "cli",
		ExpectedMinerAuth: minerAuth,
		ExpectedBatchHash: batchHash,
		TotalFee:          cfg.TotalFee,
		CallerProgram:     callerProgram,
		CurrentSlot:       cfg.CurrentSlot,
		RegistryProgram:   registryProgram,
	}, nil
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
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	prog := registry.NewProgram(store)
	finder := relay.NewFinder(func(ctx context.Context) ([]registry.ClaimView, error) {
		return prog.ListClaimViews()
	})
	worker := relay.NewWorker(finder, prog, cfg.JobTimeout)

	if cfg.JobsFile != "" {
		jobs, err := readJobs(cfg.JobsFile)
		if err != nil {
			return fmt.Errorf("read jobs: %w", err)
		}
		log.Infof("processing %d jobs with %d workers", len(jobs), cfg.Workers)

		pool := relay.NewPool(worker, cfg.Workers, cfg.QueueDepth)
		go func() {
			for _, job := range jobs {
				pool.Submit(job)
			}
		}()
		for i := 0; i < len(jobs); i++ {
			logResult(<-pool.Results())
		}
		pool.Stop()
		return nil
	}

	job, err := singleJob(cfg)
	if err != nil {
		return err
	}
	res := worker.Process(context.Background(), job)
	logResult(res)
	if res.Err != nil && !errors.Is(res.Err, relay.ErrNoClaimAvailable) {
		return res.Err
	}
	return nil
}
