// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFeeEstimationUnsupported is returned for networks without a
	// public fee estimation service.
	ErrFeeEstimationUnsupported = errors.New("fee estimation is not " +
		"supported on this network")

	// ErrNoEndpoints is returned when a client is built without any
	// server URL.
	ErrNoEndpoints = errors.New("no esplora endpoints configured")
)

// HTTPError is returned for responses with an unexpected status code.
type HTTPError struct {
	URL    string
	Status int
	Body   string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.URL, e.Status, e.Body)
}

// temporary reports whether the request may succeed when retried.
func (e *HTTPError) temporary() bool {
	return e.Status == 429 || e.Status >= 500
}

// BroadcastErr is an error class of a transaction rejected by the server's
// node.
type BroadcastErr uint32

const (
	// ErrTxAlreadyKnown is returned when the transaction is already in
	// the mempool.
	ErrTxAlreadyKnown BroadcastErr = iota

	// ErrTxAlreadyConfirmed is returned when the transaction is already
	// in a block.
	ErrTxAlreadyConfirmed

	// ErrMissingInputs is returned when an input is unknown or already
	// spent.
	ErrMissingInputs

	// ErrInsufficientFee is returned when the fee is below the node's
	// relay or mempool minimum.
	ErrInsufficientFee

	// ErrReplacementRejected is returned when a conflicting transaction
	// could not be replaced.
	ErrReplacementRejected

	// ErrNonStandard is returned for transactions violating standardness
	// policy, including dust outputs.
	ErrNonStandard

	// ErrTxRejected is returned for every other rejection.
	ErrTxRejected

	// errSentinel marks the end of the error list. It must stay last.
	errSentinel
)

// Error implements the error interface.
func (r BroadcastErr) Error() string {
	switch r {
	case ErrTxAlreadyKnown:
		return "transaction already in mempool"
	case ErrTxAlreadyConfirmed:
		return "transaction already confirmed"
	case ErrMissingInputs:
		return "missing or spent inputs"
	case ErrInsufficientFee:
		return "fee below relay minimum"
	case ErrReplacementRejected:
		return "replacement rejected"
	case ErrNonStandard:
		return "non-standard transaction"
	case ErrTxRejected:
		return "transaction rejected"
	}
	return "unknown error"
}

// broadcastErrPatterns maps node reject reasons to error classes. Patterns
// are matched after normalization by matchErrStr.
var broadcastErrPatterns = []struct {
	pattern string
	err     BroadcastErr
}{
	{"txn already in mempool", ErrTxAlreadyKnown},
	{"txn already known", ErrTxAlreadyKnown},
	{"transaction already in block chain", ErrTxAlreadyConfirmed},
	{"txn already confirmed", ErrTxAlreadyConfirmed},
	{"missing inputs", ErrMissingInputs},
	{"missingorspent", ErrMissingInputs},
	{"bad txns inputs missingorspent", ErrMissingInputs},
	{"txn mempool conflict", ErrMissingInputs},
	{"min relay fee not met", ErrInsufficientFee},
	{"mempool min fee not met", ErrInsufficientFee},
	{"insufficient fee", ErrReplacementRejected},
	{"too many potential replacements", ErrReplacementRejected},
	{"dust", ErrNonStandard},
	{"scriptpubkey", ErrNonStandard},
	{"tx size", ErrNonStandard},
	{"non mandatory script verify flag", ErrNonStandard},
}

// mapBroadcastErr classifies a rejection message. The original error is
// kept in the chain.
func mapBroadcastErr(err error) error {
	for _, p := range broadcastErrPatterns {
		if matchErrStr(err, p.pattern) {
			return fmt.Errorf("%w: %v", p.err, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrTxRejected, err)
}

// matchErrStr reports whether err contains match, ignoring case and treating
// dashes as spaces.
func matchErrStr(err error, match string) bool {
	if err == nil {
		return false
	}

	normalize := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "-", " "))
	}
	return strings.Contains(normalize(err.Error()), normalize(match))
}
