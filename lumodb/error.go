// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of store error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrStorageUnavailable indicates the store file could not be created
	// or opened.
	ErrStorageUnavailable ErrorCode = iota

	// ErrCorruptStore indicates an existing file failed format
	// validation.
	ErrCorruptStore

	// ErrTableNotFound indicates a read transaction opened a table that
	// was never created.
	ErrTableNotFound

	// ErrRead indicates a failure while reading within a transaction.
	ErrRead

	// ErrWrite indicates a failure while mutating a table.
	ErrWrite

	// ErrCommit indicates a write transaction failed to commit. None of
	// its mutations are visible.
	ErrCommit

	// ErrSerialization indicates stored bytes could not be decoded or a
	// record could not be encoded.
	ErrSerialization

	// ErrDuplicateWallet indicates SaveNew found an existing record with
	// the same id.
	ErrDuplicateWallet

	// ErrTxClosed indicates use of a committed or rolled back
	// transaction.
	ErrTxClosed
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrStorageUnavailable: "ErrStorageUnavailable",
	ErrCorruptStore:       "ErrCorruptStore",
	ErrTableNotFound:      "ErrTableNotFound",
	ErrRead:               "ErrRead",
	ErrWrite:              "ErrWrite",
	ErrCommit:             "ErrCommit",
	ErrSerialization:      "ErrSerialization",
	ErrDuplicateWallet:    "ErrDuplicateWallet",
	ErrTxClosed:           "ErrTxClosed",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during store
// operation. It is similar to wallet.Error.
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

// storeError creates an Error given a set of arguments.
func storeError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether err is, or wraps, an Error with the given code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}
