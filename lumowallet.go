// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/lumowallet/lumowallet/internal/prompt"
	"github.com/lumowallet/lumowallet/wallet"
)

// Semantic version of the application.
const (
	appMajor uint = 0
	appMinor uint = 3
	appPatch uint = 0
)

// appBuild is set at link time for release builds.
var appBuild string

// version returns the application version as a semver string.
func version() string {
	v := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if appBuild != "" {
		v += "+" + appBuild
	}
	return v
}

func main() {
	// Work around defer not working after os.Exit.
	if err := walletMain(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// walletMain is a work-around main function that is required since deferred
// functions (such as log flushing) are not called with calls to os.Exit.
// Instead, main runs this function and checks for a non-nil error, at which
// point any defers have already run, and if the error is non-nil, the program
// can be exited with an error exit status.
func walletMain(args []string) error {
	defer closeLogRotator()

	err := loadConfig(args)
	switch {
	case err == nil, errors.Is(err, errShowSubsystems):
		return nil

	case errors.Is(err, prompt.ErrNotConfirmed):
		fmt.Fprintln(os.Stderr, "Aborted")
		return err
	}

	log.Errorf("Command failed: %v", err)
	fmt.Fprintln(os.Stderr, errorLine(err))
	return err
}

// errorLine formats err for the terminal, prefixed with its wallet error code
// when it carries one.
func errorLine(err error) string {
	code, ok := wallet.ErrorCodeOf(err)
	if !ok {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("%v: %v", code, err)
}
