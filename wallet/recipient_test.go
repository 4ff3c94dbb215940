// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/stretchr/testify/require"
)

const (
	mainnetSegwit = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	testnetSegwit = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"
	mainnetLegacy = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
)

func regtestAddress(t *testing.T) string {
	t.Helper()

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160([]byte("regtest")),
		netparams.Regtest.ChainParams(),
	)
	require.NoError(t, err)
	return addr.String()
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress(mainnetSegwit, netparams.Bitcoin)
	require.NoError(t, err)
	require.Equal(t, mainnetSegwit, addr.String())

	addr, err = ParseAddress("  "+mainnetLegacy+"\n", netparams.Bitcoin)
	require.NoError(t, err)
	require.Equal(t, mainnetLegacy, addr.String())

	// Testnet encodings are shared by testnet4 and signet.
	for _, net := range []netparams.Network{
		netparams.Testnet, netparams.Testnet4, netparams.Signet,
	} {
		_, err := ParseAddress(testnetSegwit, net)
		require.NoError(t, err, net.String())
	}

	_, err = ParseAddress(regtestAddress(t), netparams.Regtest)
	require.NoError(t, err)
}

func TestParseAddressErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseAddress("", netparams.Bitcoin)
	require.ErrorIs(t, err, ErrEmptyAddress)
	require.True(t, IsError(err, ErrInvalidAddress))

	_, err = ParseAddress("definitely-not-an-address", netparams.Bitcoin)
	require.ErrorIs(t, err, ErrInvalidAddressFormat)

	_, err = ParseAddress(mainnetSegwit, netparams.Testnet)
	var wrongNet *WrongNetworkError
	require.ErrorAs(t, err, &wrongNet)
	require.Equal(t, netparams.Testnet, wrongNet.Expected)
	require.Equal(t, netparams.Bitcoin, wrongNet.Actual)

	_, err = ParseAddress(regtestAddress(t), netparams.Bitcoin)
	require.ErrorAs(t, err, &wrongNet)
	require.Equal(t, netparams.Regtest, wrongNet.Actual)
}

func TestParsePaymentRequest(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		network netparams.Network
		amount  fn.Option[btcutil.Amount]
		label   fn.Option[string]
	}{
		{
			name:    "bare address",
			input:   mainnetSegwit,
			network: netparams.Bitcoin,
			amount:  fn.None[btcutil.Amount](),
			label:   fn.None[string](),
		},
		{
			name:    "uri with amount",
			input:   "bitcoin:" + mainnetSegwit + "?amount=0.001",
			network: netparams.Bitcoin,
			amount:  fn.Some(btcutil.Amount(100_000)),
			label:   fn.None[string](),
		},
		{
			name: "uri with extra params",
			input: "BITCOIN:" + testnetSegwit +
				"?amount=0.002&label=coffee%20shop",
			network: netparams.Testnet,
			amount:  fn.Some(btcutil.Amount(200_000)),
			label:   fn.Some("coffee shop"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req, err := ParsePaymentRequest(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.network, req.Network)
			require.Equal(t, tc.amount, req.Amount)
			require.Equal(t, tc.label, req.Label)
		})
	}
}

func TestParsePaymentRequestErrors(t *testing.T) {
	t.Parallel()

	_, err := ParsePaymentRequest("   ")
	require.ErrorIs(t, err, ErrEmptyAddress)

	_, err = ParsePaymentRequest("bitcoin:" + mainnetSegwit + "?amount=abc")
	require.ErrorIs(t, err, ErrInvalidURIAmount)
	require.True(t, IsError(err, ErrInvalidAmount))

	_, err = ParsePaymentRequest("bitcoin:garbage")
	require.ErrorIs(t, err, ErrInvalidAddressFormat)

	req, err := ParsePaymentRequest(testnetSegwit)
	require.NoError(t, err)
	require.True(t, req.IsValidFor(netparams.Testnet4))
	require.False(t, req.IsValidFor(netparams.Bitcoin))
}
