// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMatchErrStr checks that matchErrStr ignores dashes and case.
func TestMatchErrStr(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		nodeErr  error
		matchStr string
		matched  bool
	}{
		{
			name:     "error without dashes",
			nodeErr:  errors.New("missing input"),
			matchStr: "missing input",
			matched:  true,
		},
		{
			name:     "match str without dashes",
			nodeErr:  errors.New("missing-input"),
			matchStr: "missing input",
			matched:  true,
		},
		{
			name:     "error with dashes",
			nodeErr:  errors.New("missing-input"),
			matchStr: "missing input",
			matched:  true,
		},
		{
			name:     "match str with dashes",
			nodeErr:  errors.New("missing-input"),
			matchStr: "missing-input",
			matched:  true,
		},
		{
			name:     "error with title case and dash",
			nodeErr:  errors.New("Missing-Input"),
			matchStr: "missing input",
			matched:  true,
		},
		{
			name:     "match str with title case and dash",
			nodeErr:  errors.New("missing-input"),
			matchStr: "Missing-Input",
			matched:  true,
		},
		{
			name:     "unmatched error",
			nodeErr:  errors.New("missing input"),
			matchStr: "missingorspent",
			matched:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			matched := matchErrStr(tc.nodeErr, tc.matchStr)
			require.Equal(t, tc.matched, matched)
		})
	}
}

// TestBroadcastErrSentinel checks that every BroadcastErr has a message.
func TestBroadcastErrSentinel(t *testing.T) {
	t.Parallel()

	rt := require.New(t)

	for i := uint32(0); i < uint32(errSentinel); i++ {
		err := BroadcastErr(i)
		rt.NotEqualf(err.Error(), "unknown error", "error code %d is "+
			"not defined, make sure to update it inside the Error "+
			"method", i)
	}
}

// TestMapBroadcastErr checks node reject reasons map to their class.
func TestMapBroadcastErr(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		reason string
		want   BroadcastErr
	}{
		{"txn-already-in-mempool", ErrTxAlreadyKnown},
		{"Transaction already in block chain", ErrTxAlreadyConfirmed},
		{"bad-txns-inputs-missingorspent", ErrMissingInputs},
		{"txn-mempool-conflict", ErrMissingInputs},
		{"min relay fee not met, 110 < 141", ErrInsufficientFee},
		{"mempool min fee not met", ErrInsufficientFee},
		{"insufficient fee, rejecting replacement", ErrReplacementRejected},
		{"dust", ErrNonStandard},
		{"something new", ErrTxRejected},
	}

	for _, tc := range testCases {
		err := mapBroadcastErr(errors.New(tc.reason))
		require.ErrorIs(t, err, tc.want, tc.reason)
		require.Contains(t, err.Error(), tc.reason)
	}
}
