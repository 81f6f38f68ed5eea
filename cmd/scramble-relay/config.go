// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogDir      = "scramblerelay_logs"
	defaultLogFile     = "scramble-relay.log"
	defaultWorkers     = 4
	defaultQueueDepth  = 64
	defaultJobTimeout  = 5 * time.Second
	defaultTotalFee    = 7_500_000
	defaultCurrentSlot = 1
)

// defaultShieldPoolProgram must match cmd/scramble-miner's default so the
// relay's --callerprogram identity is the one the registry's bootstrap
// recorded as shield_pool_program (spec.md §4.2.6).
const defaultShieldPoolProgram = "00000000000000000000000000000000000000000000000000000000005e17"

// config holds cmd/scramble-relay's command-line options. The relay owns
// no miner keypair and no transport of its own (spec.md §4.5); every
// chain-access decision is wired directly against an in-process
// registry.Program in main.go, the same no-RPC stance cmd/scramble-miner
// takes.
type config struct {
	DataDir           string        `long:"datadir" description:"Directory holding the registry's leveldb state (shared with a prior cmd/scramble-miner run). Empty uses an empty in-memory store."`
	LogDir            string        `long:"logdir" description:"Directory to log output."`
	CallerProgram     string        `long:"callerprogram" description:"Hex-encoded 32-byte identity this withdrawal coupler presents as the consume_claim caller."`
	RegistryProgram   string        `long:"registryprogram" description:"Hex-encoded 32-byte registry program identity appended to the withdrawal account list."`
	ExpectedMinerAuth string        `long:"expectedminer" description:"Hex-encoded 32-byte miner authority the withdrawal expects to pay, empty accepts any."`
	ExpectedBatchHash string        `long:"expectedbatch" description:"Hex-encoded 32-byte batch commitment this withdrawal authorizes."`
	TotalFee          uint64        `long:"totalfee" description:"Total withdrawal fee, split between miner and protocol treasury per fee_share_bps."`
	CurrentSlot       uint64        `long:"currentslot" description:"Current slot, as read from the clock/slot sysvar."`
	JobsFile          string        `long:"jobsfile" description:"Path to a newline-delimited JSON jobs file; processed through a worker pool instead of a single job."`
	Workers           int           `long:"workers" description:"Number of pool workers when --jobsfile is set."`
	QueueDepth        int           `long:"queuedepth" description:"Job queue depth when --jobsfile is set."`
	JobTimeout        time.Duration `long:"jobtimeout" description:"Per-job processing timeout."`
	Debug             string        `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical."`
}

func defaultConfig() config {
	return config{
		LogDir:          defaultLogDir,
		CallerProgram:   defaultShieldPoolProgram,
		RegistryProgram: defaultShieldPoolProgram,
		TotalFee:        defaultTotalFee,
		CurrentSlot:     defaultCurrentSlot,
		Workers:         defaultWorkers,
		QueueDepth:      defaultQueueDepth,
		JobTimeout:      defaultJobTimeout,
		Debug:           "info",
	}
}

func loadConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("create logdir: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	return &cfg, nil
}

func (c *config) logFile() string {
	return filepath.Join(c.LogDir, defaultLogFile)
}

// parseHex32 decodes a hex string into a 32-byte array. An empty string
// decodes to the all-zero wildcard value.
func parseHex32(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("want 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
