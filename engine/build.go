// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/lumowallet/lumowallet/wallet"
)

const (
	// txVersion enables relative lock times.
	txVersion = 2

	// rbfSequence signals replaceability per BIP125.
	rbfSequence = wire.MaxTxInSequenceNum - 2
)

// spendable returns the outputs that may fund a payment: confirmed mature
// outputs and unconfirmed change. Larger values come first.
func (e *Engine) spendable() []utxo {
	var coins []utxo
	for _, u := range e.graph().unspent(e.isMine) {
		switch {
		case u.coinbase && !isMature(u.position, e.tip,
			e.params.CoinbaseMaturity):

			continue

		case !u.position.Confirmed &&
			u.path.Keychain != wallet.KeychainInternal:

			continue
		}
		coins = append(coins, u)
	}

	sort.SliceStable(coins, func(i, j int) bool {
		a, b := coins[i], coins[j]
		if a.output.Value != b.output.Value {
			return a.output.Value > b.output.Value
		}
		if a.position.Confirmed != b.position.Confirmed {
			return a.position.Confirmed
		}
		return a.outPoint.String() < b.outPoint.String()
	})

	return coins
}

// BuildTx funds a payment of amount to recipient with the largest spendable
// outputs first. Change below the dust limit is left to the miner.
func (e *Engine) BuildTx(recipient btcutil.Address, amount btcutil.Amount,
	feeRate wallet.FeeRate) (*wallet.UnsignedTx, error) {

	if !recipient.IsForNet(e.params.Params) {
		return nil, wallet.NewError(wallet.ErrInvalidAddress,
			fmt.Sprintf("address %v is not for %v", recipient,
				e.params.Network), nil)
	}

	pkScript, err := txscript.PayToAddrScript(recipient)
	if err != nil {
		return nil, wallet.NewError(wallet.ErrInvalidAddress,
			fmt.Sprintf("address %v", recipient), err)
	}

	payment := wire.NewTxOut(int64(amount), pkScript)
	relayFee := txrules.DefaultRelayFeePerKb
	if txrules.IsDustOutput(payment, relayFee) {
		return nil, wallet.NewError(wallet.ErrInvalidAmount,
			fmt.Sprintf("amount %v is dust", amount), nil)
	}

	// Never pay less than the relay floor.
	if floor := wallet.FeeRate(relayFee / 4); feeRate < floor {
		feeRate = floor
	}

	outputs := []*wire.TxOut{payment}

	var (
		selected []utxo
		total    btcutil.Amount
		fee      btcutil.Amount
		change   btcutil.Amount
		funded   bool
	)
	for _, coin := range e.spendable() {
		selected = append(selected, coin)
		total += btcutil.Amount(coin.output.Value)

		withChange := txsizes.EstimateVirtualSize(
			0, 0, len(selected), 0, outputs,
			txsizes.P2WPKHPkScriptSize,
		)
		fee = feeRate.FeeForVSize(withChange)
		if total < amount+fee {
			continue
		}

		change = total - amount - fee
		if isDustChange(change, relayFee) {

			noChange := txsizes.EstimateVirtualSize(
				0, 0, len(selected), 0, outputs, 0,
			)
			if total < amount+feeRate.FeeForVSize(noChange) {
				continue
			}
			fee = total - amount
			change = 0
		}

		funded = true
		break
	}
	if !funded {
		return nil, fmt.Errorf("%w: need %v plus fee at %v, have %v",
			ErrInsufficientFunds, amount, feeRate, total)
	}

	tx := wire.NewMsgTx(txVersion)
	tx.LockTime = e.tip

	unsigned := &wallet.UnsignedTx{
		Tx:          tx,
		Amount:      amount,
		Fee:         fee,
		FeeRate:     feeRate,
		ChangeIndex: -1,
	}
	for _, coin := range selected {
		in := wire.NewTxIn(&coin.outPoint, nil, nil)
		in.Sequence = rbfSequence
		tx.AddTxIn(in)

		unsigned.PrevOutputs = append(unsigned.PrevOutputs, coin.output)
		unsigned.KeyPaths = append(unsigned.KeyPaths, coin.path)
	}
	tx.AddTxOut(payment)

	if change > 0 {
		changeScript, err := e.changeScript()
		if err != nil {
			return nil, err
		}
		tx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
		unsigned.ChangeIndex = len(tx.TxOut) - 1
	}

	log.Debugf("Built tx %v: %d inputs, amount %v, fee %v, change %v",
		tx.TxHash(), len(tx.TxIn), amount, fee, change)

	return unsigned, nil
}

// changeTemplate has the shape of a P2WPKH change script. The change address
// is only revealed once the change is known to be kept.
var changeTemplate = append(
	[]byte{txscript.OP_0, txscript.OP_DATA_20},
	make([]byte, txsizes.P2WPKHPkScriptSize-2)...,
)

// isDustChange reports whether a P2WPKH change output of the given value
// would be dust at relayFee.
func isDustChange(change, relayFee btcutil.Amount) bool {
	return txrules.IsDustOutput(
		wire.NewTxOut(int64(change), changeTemplate), relayFee,
	)
}

// changeScript returns the lowest unused revealed internal script, revealing
// a new one when all are used.
func (e *Engine) changeScript() ([]byte, error) {
	unused, err := e.ListUnusedAddresses(wallet.KeychainInternal)
	if err != nil {
		return nil, err
	}

	var addr btcutil.Address
	if len(unused) > 0 {
		addr = unused[0].Address
	} else {
		rec, err := e.RevealNextAddress(wallet.KeychainInternal)
		if err != nil {
			return nil, err
		}
		addr = rec.Address
	}

	return txscript.PayToAddrScript(addr)
}
