// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of wallet error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrWalletNotFound indicates the requested wallet id is not present
	// in the registry, the metadata table or the engine storage.
	ErrWalletNotFound ErrorCode = iota

	// ErrNoActiveWallet indicates an operation needed the active wallet
	// but none has been set.
	ErrNoActiveWallet

	// ErrInvalidNetwork indicates a network name could not be parsed or a
	// wallet was used on a network other than its own.
	ErrInvalidNetwork

	// ErrInvalidWalletID indicates a string is not a valid wallet id.
	ErrInvalidWalletID

	// ErrInvalidMetadata indicates a metadata record violates one of its
	// invariants.
	ErrInvalidMetadata

	// ErrDatabase indicates a failure in the metadata store. The Err
	// field holds the store error unchanged.
	ErrDatabase

	// ErrEngine indicates a failure in the chain wallet engine.
	ErrEngine

	// ErrChain indicates a failure while talking to the chain backend.
	ErrChain

	// ErrWatchOnly indicates a signing operation on a wallet that holds
	// no private key material.
	ErrWatchOnly

	// ErrInvalidAddress indicates a recipient address could not be used.
	ErrInvalidAddress

	// ErrInvalidAmount indicates an amount below the send minimum, a dust
	// output or a malformed amount.
	ErrInvalidAmount

	// ErrAddressGeneration indicates the external keychain cannot produce
	// another address.
	ErrAddressGeneration

	// ErrAlreadyExists indicates a wallet with the same id or name is
	// already known.
	ErrAlreadyExists
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrWalletNotFound:    "ErrWalletNotFound",
	ErrNoActiveWallet:    "ErrNoActiveWallet",
	ErrInvalidNetwork:    "ErrInvalidNetwork",
	ErrInvalidWalletID:   "ErrInvalidWalletID",
	ErrInvalidMetadata:   "ErrInvalidMetadata",
	ErrDatabase:          "ErrDatabase",
	ErrEngine:            "ErrEngine",
	ErrChain:             "ErrChain",
	ErrWatchOnly:         "ErrWatchOnly",
	ErrInvalidAddress:    "ErrInvalidAddress",
	ErrInvalidAmount:     "ErrInvalidAmount",
	ErrAddressGeneration: "ErrAddressGeneration",
	ErrAlreadyExists:     "ErrAlreadyExists",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen while operating on
// wallets. Lower layer errors are kept in Err so callers can still match on
// them with errors.Is and errors.As.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error given a set of arguments.
func NewError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether err is, or wraps, an Error with the given code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}

// ErrorCodeOf returns the code of the outermost Error in err's chain.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var e Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.ErrorCode, true
}

// engineError wraps an engine failure unless it already carries a wallet
// error code.
func engineError(desc string, err error) error {
	if _, ok := ErrorCodeOf(err); ok {
		return err
	}
	if errors.Is(err, ErrNoPrivateKeys) {
		return NewError(ErrWatchOnly, desc, err)
	}
	return NewError(ErrEngine, desc, err)
}
