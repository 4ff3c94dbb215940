// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import "errors"

var (
	// ErrInsufficientFunds is returned when the spendable outputs cannot
	// cover the amount and fee of a payment.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidMnemonic is returned for a mnemonic that fails BIP39
	// validation.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrInvalidXpub is returned for an extended key that cannot serve as
	// a BIP84 account key.
	ErrInvalidXpub = errors.New("invalid account extended public key")

	// ErrWalletExists is returned when creating an engine for an id that
	// already has a storage file.
	ErrWalletExists = errors.New("engine storage already exists")

	// ErrNetworkMismatch is returned when persisted state belongs to a
	// different network than requested.
	ErrNetworkMismatch = errors.New("engine network mismatch")
)
