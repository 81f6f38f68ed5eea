// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/Machine-Labz/cloak-scramble/miner"
	"github.com/Machine-Labz/cloak-scramble/registry"
)

// logRotator writes logged output to a rotating file in addition to
// stdout, the same logWriter/rotator split every btcsuite-family daemon
// in this corpus uses.
var logRotator *rotator.Rotator

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

var backendLog = btclog.NewBackend(logWriter{})

var log = backendLog.Logger("MINR")

// initLogRotator opens the rotating log file at logFile. It must be
// called before any logging occurs.
func initLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

// setLogLevels wires every package's logger to backendLog at the given
// level, mirroring the per-subsystem logger table a btcd-family daemon
// keeps in its own log.go.
func setLogLevels(levelStr string) {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		level = btclog.LevelInfo
	}
	log.SetLevel(level)

	registryLog := backendLog.Logger("REGY")
	registryLog.SetLevel(level)
	registry.UseLogger(registryLog)

	minerLog := backendLog.Logger("MINR")
	minerLog.SetLevel(level)
	miner.UseLogger(minerLog)
}
