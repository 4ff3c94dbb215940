// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"testing"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
	"github.com/stretchr/testify/require"
)

// fundedEngine returns an engine owning two confirmed outputs of 100k and
// 30k satoshis.
func fundedEngine(t *testing.T) *Engine {
	t.Helper()

	e, _ := newTestEngine(t, netparams.Testnet)
	applyTxs(t, e, 200, map[wallet.Keychain]uint32{
		wallet.KeychainExternal: 1,
	},
		wallet.ScannedTx{
			Tx: externalTx(
				10, script(t, e, wallet.KeychainExternal, 0),
				30_000,
			),
			Position: confirmedAt(150),
		},
		wallet.ScannedTx{
			Tx: externalTx(
				11, script(t, e, wallet.KeychainExternal, 1),
				100_000,
			),
			Position: confirmedAt(160),
		},
	)

	return e
}

// verifyTx runs every input script of a signed transaction.
func verifyTx(t *testing.T, tx *wire.MsgTx, prevOuts []*wire.TxOut) {
	t.Helper()

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		fetcher.AddPrevOut(in.PreviousOutPoint, prevOuts[i])
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i := range tx.TxIn {
		vm, err := txscript.NewEngine(
			prevOuts[i].PkScript, tx, i,
			txscript.StandardVerifyFlags, nil, sigHashes,
			prevOuts[i].Value, fetcher,
		)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}

func vsize(tx *wire.MsgTx) int {
	weight := blockchain.GetTransactionWeight(btcutil.NewTx(tx))
	return int((weight + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor)
}

// TestBuildAndSign builds a payment with change, signs it and checks the
// result validates and pays at least the requested rate.
func TestBuildAndSign(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)
	recipient := foreignAddress(t, netparams.Testnet)

	feeRate, err := wallet.FeeRateFromSatPerVByte(2)
	require.NoError(t, err)

	unsigned, err := e.BuildTx(recipient, 50_000, feeRate)
	require.NoError(t, err)

	// Largest first: the 100k output alone covers the payment.
	require.Len(t, unsigned.Tx.TxIn, 1)
	require.EqualValues(t, 100_000, unsigned.TotalInput())
	require.Equal(t, wallet.KeyPath{
		Keychain: wallet.KeychainExternal, Index: 1,
	}, unsigned.KeyPaths[0])

	tx := unsigned.Tx
	require.EqualValues(t, 2, tx.Version)
	require.EqualValues(t, 200, tx.LockTime)
	require.EqualValues(t, rbfSequence, tx.TxIn[0].Sequence)

	require.Len(t, tx.TxOut, 2)
	require.Equal(t, 1, unsigned.ChangeIndex)
	require.EqualValues(t, 50_000, tx.TxOut[0].Value)
	require.Equal(t, script(t, e, wallet.KeychainInternal, 0),
		tx.TxOut[1].PkScript)

	change := btcutil.Amount(tx.TxOut[1].Value)
	require.Equal(t, unsigned.TotalInput(), 50_000+change+unsigned.Fee)

	signed, err := e.Sign(unsigned)
	require.NoError(t, err)
	verifyTx(t, signed, unsigned.PrevOutputs)

	// The unsigned template is left untouched.
	require.Empty(t, unsigned.Tx.TxIn[0].Witness)

	require.GreaterOrEqual(t, unsigned.Fee, feeRate.FeeForVSize(vsize(signed)))

	// Applying the spend turns the change into trusted pending value.
	applyTxs(t, e, 200, nil, wallet.ScannedTx{
		Tx: signed, Position: wallet.Unconfirmed(),
	})

	bal, err := e.Balance()
	require.NoError(t, err)
	require.Equal(t, wallet.Balance{
		Confirmed:      30_000,
		TrustedPending: change,
	}, bal)

	txs, err := e.Transactions()
	require.NoError(t, err)
	require.Len(t, txs, 3)

	spend := txs[2]
	require.Equal(t, signed.TxHash(), spend.Txid)
	require.EqualValues(t, 100_000, spend.Sent)
	require.Equal(t, change, spend.Received)
	require.Equal(t, unsigned.Fee, spend.Fee.UnwrapOr(0))

	// The change address is now used so the next change goes elsewhere.
	next, err := e.BuildTx(recipient, 10_000, feeRate)
	require.NoError(t, err)
	require.Equal(t, script(t, e, wallet.KeychainInternal, 1),
		next.Tx.TxOut[next.ChangeIndex].PkScript)
}

// TestBuildMultipleInputs ensures inputs are added until the payment and
// fee are covered.
func TestBuildMultipleInputs(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)

	unsigned, err := e.BuildTx(
		foreignAddress(t, netparams.Testnet), 110_000, 1000,
	)
	require.NoError(t, err)
	require.Len(t, unsigned.Tx.TxIn, 2)
	require.EqualValues(t, 130_000, unsigned.TotalInput())

	packet, err := unsigned.PSBT()
	require.NoError(t, err)
	require.Len(t, packet.Inputs, 2)
	for i, in := range packet.Inputs {
		require.Equal(t, unsigned.PrevOutputs[i].Value,
			in.WitnessUtxo.Value)
	}

	signed, err := e.Sign(unsigned)
	require.NoError(t, err)
	verifyTx(t, signed, unsigned.PrevOutputs)
}

// TestBuildDustChange ensures change below the dust limit goes to fees.
func TestBuildDustChange(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)
	recipient := foreignAddress(t, netparams.Testnet)

	const feeRate wallet.FeeRate = 500
	pkScript, err := txscript.PayToAddrScript(recipient)
	require.NoError(t, err)

	withChange := feeRate.FeeForVSize(txsizes.EstimateVirtualSize(
		0, 0, 1, 0, []*wire.TxOut{wire.NewTxOut(0, pkScript)},
		txsizes.P2WPKHPkScriptSize,
	))

	// Leave 300 satoshis of change, well below the dust limit.
	amount := 100_000 - withChange - 300

	unsigned, err := e.BuildTx(recipient, amount, feeRate)
	require.NoError(t, err)
	require.Len(t, unsigned.Tx.TxOut, 1)
	require.Equal(t, -1, unsigned.ChangeIndex)
	require.Equal(t, 100_000-amount, unsigned.Fee)
}

// TestIsDustChange checks the P2WPKH dust boundary at the default relay fee.
func TestIsDustChange(t *testing.T) {
	t.Parallel()

	relayFee := txrules.DefaultRelayFeePerKb

	require.Len(t, changeTemplate, txsizes.P2WPKHPkScriptSize)
	require.True(t, isDustChange(0, relayFee))
	require.True(t, isDustChange(536, relayFee))
	require.False(t, isDustChange(537, relayFee))
	require.False(t, isDustChange(10_000, relayFee))
}

// TestBuildKeepsChangeAboveDust ensures change just above the dust limit is
// paid back to the wallet.
func TestBuildKeepsChangeAboveDust(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)
	recipient := foreignAddress(t, netparams.Testnet)

	const feeRate wallet.FeeRate = 500
	pkScript, err := txscript.PayToAddrScript(recipient)
	require.NoError(t, err)

	withChange := feeRate.FeeForVSize(txsizes.EstimateVirtualSize(
		0, 0, 1, 0, []*wire.TxOut{wire.NewTxOut(0, pkScript)},
		txsizes.P2WPKHPkScriptSize,
	))

	const change = 1_000
	amount := 100_000 - withChange - change

	unsigned, err := e.BuildTx(recipient, amount, feeRate)
	require.NoError(t, err)
	require.Len(t, unsigned.Tx.TxOut, 2)
	require.Equal(t, 1, unsigned.ChangeIndex)
	require.EqualValues(t, change,
		unsigned.Tx.TxOut[unsigned.ChangeIndex].Value)
	require.Equal(t, withChange, unsigned.Fee)

	signed, err := e.Sign(unsigned)
	require.NoError(t, err)
	verifyTx(t, signed, unsigned.PrevOutputs)
}

// TestBuildErrors covers unfundable and invalid payments.
func TestBuildErrors(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)

	_, err := e.BuildTx(foreignAddress(t, netparams.Testnet), 200_000, 250)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = e.BuildTx(foreignAddress(t, netparams.Testnet), 100, 250)
	require.True(t, wallet.IsError(err, wallet.ErrInvalidAmount))

	_, err = e.BuildTx(foreignAddress(t, netparams.Bitcoin), 10_000, 250)
	require.True(t, wallet.IsError(err, wallet.ErrInvalidAddress))
}

// TestSignRejectsForeignScript ensures a key path that does not control the
// spent output is refused.
func TestSignRejectsForeignScript(t *testing.T) {
	t.Parallel()

	e := fundedEngine(t)

	unsigned, err := e.BuildTx(
		foreignAddress(t, netparams.Testnet), 20_000, 250,
	)
	require.NoError(t, err)

	unsigned.KeyPaths[0].Index = 7
	_, err = e.Sign(unsigned)
	require.Error(t, err)
}
