// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

func TestProjectTransaction(t *testing.T) {
	t.Parallel()

	blockTime := time.Unix(1_700_000_000, 0).UTC()
	txid := chainhash.HashH([]byte("tx"))

	testCases := []struct {
		name      string
		tx        CanonicalTx
		direction Direction
		amount    btcutil.Amount
		status    ConfirmationStatus
		timestamp fn.Option[time.Time]
	}{
		{
			name: "pure receive",
			tx: CanonicalTx{
				Received: 50_000,
				Position: ConfirmedAt(100, blockTime),
			},
			direction: DirectionIncoming,
			amount:    50_000,
			status:    StatusConfirmed(100),
			timestamp: fn.Some(blockTime),
		},
		{
			name: "spend with change",
			tx: CanonicalTx{
				Sent:     100_000,
				Received: 40_000,
				Position: Unconfirmed(),
			},
			direction: DirectionOutgoing,
			amount:    100_000,
			status:    StatusUnconfirmed,
			timestamp: fn.None[time.Time](),
		},
		{
			name: "sent equals received",
			tx: CanonicalTx{
				Sent:     30_000,
				Received: 30_000,
				Position: ConfirmedAt(7, time.Time{}),
			},
			direction: DirectionIncoming,
			amount:    30_000,
			status:    StatusConfirmed(7),
			timestamp: fn.None[time.Time](),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tc.tx.Txid = txid
			got := ProjectTransaction(tc.tx)

			require.Equal(t, txid, got.ID)
			require.Equal(t, tc.direction, got.Direction)
			require.Equal(t, tc.amount, got.Amount)
			require.Equal(t, tc.status, got.Status)
			require.Equal(t, tc.timestamp, got.Timestamp)
			require.NotEqual(t, DirectionSelfTransfer, got.Direction)
		})
	}
}

func TestConfirmations(t *testing.T) {
	t.Parallel()

	unconfirmed := Transaction{Status: StatusUnconfirmed}
	require.False(t, unconfirmed.IsConfirmed())
	require.Zero(t, unconfirmed.Confirmations(1000))
	require.True(t, unconfirmed.Status.Height().IsNone())

	confirmed := Transaction{Status: StatusConfirmed(100)}
	require.True(t, confirmed.IsConfirmed())
	require.Equal(t, fn.Some(uint32(100)), confirmed.Status.Height())

	require.EqualValues(t, 1, confirmed.Confirmations(100))
	require.EqualValues(t, 6, confirmed.Confirmations(105))

	// A tip behind the confirmation height never goes negative.
	require.EqualValues(t, 1, confirmed.Confirmations(50))
}

func TestBalanceViews(t *testing.T) {
	t.Parallel()

	b := Balance{
		Immature:         1,
		TrustedPending:   20,
		UntrustedPending: 300,
		Confirmed:        4000,
	}
	require.EqualValues(t, 4020, b.TrustedSpendable())
	require.EqualValues(t, 4321, b.Total())
}
