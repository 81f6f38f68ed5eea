// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDir    = "scrambleminer_data"
	defaultLogDir     = "scrambleminer_logs"
	defaultLogFile    = "scramble-miner.log"
	defaultKeyFile    = "miner.key"
	defaultNetwork    = "localnet"
	defaultMaxConsume = 1
	defaultWorkers    = 4
	defaultSlotMillis = 400
)

// defaultShieldPoolProgram is the demo shield-pool program identity both
// cmd/scramble-miner (at registry bootstrap) and cmd/scramble-relay (as the
// consume_claim caller) default to, so the two binaries agree on the
// authorized cross-program caller without a real deployment registry to
// look it up in.
const defaultShieldPoolProgram = "00000000000000000000000000000000000000000000000000000000005e17"

// config holds the miner's command-line and config-file settable options,
// mirroring the function-fields-over-transport split of
// mining/randomx.Config: every chain-access decision lives in main.go's
// wiring, not here.
type config struct {
	DataDir     string `long:"datadir" description:"Directory to store claim/miner/registry state (leveldb). Empty uses an in-memory store."`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	KeyFile     string `long:"keyfile" description:"Path to this miner's hex-encoded BIP-340 private key."`
	GenerateKey bool   `long:"generatekey" description:"Generate a new keypair at --keyfile if it does not already exist."`
	Network     string `long:"network" choice:"mainnet" choice:"devnet" choice:"localnet" description:"Registry policy preset to bootstrap with if no registry exists yet."`
	BatchHash   string `long:"batchhash" description:"Hex-encoded 32-byte batch commitment. Empty or all-zero mines wildcard claims."`
	MaxConsumes uint16 `long:"maxconsumes" description:"max_consumes attached to every claim this miner mines."`
	ClaimPow    bool   `long:"claimpow" description:"Use the combined claim_pow instruction instead of mine_claim+reveal_claim."`
	Workers     uint32 `long:"workers" description:"Number of parallel nonce-search workers."`
	SlotMillis  int    `long:"slotmillis" description:"Milliseconds per simulated slot tick."`
	ShieldPool  string `long:"shieldpool" description:"Hex-encoded 32-byte shield-pool program identity, recorded at registry bootstrap."`
	Debug       string `long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical."`
}

func defaultConfig() config {
	return config{
		DataDir:     defaultDataDir,
		LogDir:      defaultLogDir,
		KeyFile:     defaultKeyFile,
		Network:     defaultNetwork,
		MaxConsumes: defaultMaxConsume,
		Workers:     defaultWorkers,
		SlotMillis:  defaultSlotMillis,
		ShieldPool:  defaultShieldPoolProgram,
		Debug:       "info",
	}
}

// loadConfig parses command-line flags over the defaults and validates
// the result.
func loadConfig() (*config, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create datadir: %w", err)
		}
	}
	if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
		return nil, fmt.Errorf("create logdir: %w", err)
	}

	if _, err := parseHex32(cfg.ShieldPool); err != nil {
		return nil, fmt.Errorf("--shieldpool: %w", err)
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
