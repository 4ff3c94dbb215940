// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
	"github.com/lumowallet/lumowallet/chain"
	"github.com/lumowallet/lumowallet/engine"
	"github.com/lumowallet/lumowallet/lumo"
	"github.com/lumowallet/lumowallet/lumodb"
	"github.com/lumowallet/lumowallet/wallet"
)

// logWriter implements an io.Writer that outputs to the log rotator and,
// when enabled, to standard error.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	if logToStderr {
		os.Stderr.Write(p)
	}
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

// Loggers per subsystem.  A single backend logger is created and all subsystem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by
// calling initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.  The backend must not be used before the log rotator has
	// been initialized, or data races and/or nil pointer dereferences
	// will occur.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	// logToStderr mirrors log output to standard error.
	logToStderr bool

	log      = backendLog.Logger("LUMO")
	lmdbLog  = backendLog.Logger("LMDB")
	wlltLog  = backendLog.Logger("WLLT")
	engnLog  = backendLog.Logger("ENGN")
	chainLog = backendLog.Logger("CHNS")
	applLog  = backendLog.Logger("APPL")
)

// Initialize package-global logger variables.
func init() {
	lumodb.UseLogger(lmdbLog)
	wallet.UseLogger(wlltLog)
	engine.UseLogger(engnLog)
	chain.UseLogger(chainLog)
	lumo.UseLogger(applLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"LUMO": log,
	"LMDB": lmdbLog,
	"WLLT": wlltLog,
	"ENGN": engnLog,
	"CHNS": chainLog,
	"APPL": applLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string) error {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}

	logRotator = r
	return nil
}

// closeLogRotator flushes and closes the log file, if one is open.
func closeLogRotator() {
	if logRotator != nil {
		logRotator.Close()
		logRotator = nil
	}
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, logLevel string) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := btclog.LevelFromString(logLevel)
	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(logLevel string) {
	// Configure all sub-systems with the new logging level.
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, logLevel)
	}
}

// output receives command results.
var output io.Writer = os.Stdout

// printf writes command output.
func printf(format string, args ...interface{}) {
	fmt.Fprintf(output, format, args...)
}
