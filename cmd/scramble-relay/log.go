// Copyright (c) 2025 The Cloak developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/Machine-Labz/cloak-scramble/registry"
	"github.com/Machine-Labz/cloak-scramble/relay"
)

var logRotator *rotator.Rotator

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

var backendLog = btclog.NewBackend(logWriter{})

var log = backendLog.Logger("RLAY")

func initLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return err
	}
	logRotator = r
	return nil
}

func setLogLevels(levelStr string) {
	level, ok := btclog.LevelFromString(levelStr)
	if !ok {
		level = btclog.LevelInfo
	}
	log.SetLevel(level)

	registryLog := backendLog.Logger("REGY")
	registryLog.SetLevel(level)
	registry.UseLogger(registryLog)

	relayLog := backendLog.Logger("RLAY")
	relayLog.SetLevel(level)
	relay.UseLogger(relayLog)
}
