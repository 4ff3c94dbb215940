// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

// KeyPath locates the key controlling an input.
type KeyPath struct {
	Keychain Keychain
	Index    uint32
}

// UnsignedTx is a payment built by an Engine and not yet signed.
type UnsignedTx struct {
	Tx *wire.MsgTx

	// PrevOutputs holds the output spent by each input, in input order.
	PrevOutputs []*wire.TxOut

	// KeyPaths holds the derivation of each input key, in input order.
	KeyPaths []KeyPath

	Amount  btcutil.Amount
	Fee     btcutil.Amount
	FeeRate FeeRate

	// ChangeIndex is the output index of the change output or -1.
	ChangeIndex int
}

// TotalInput returns the sum of the spent outputs.
func (u *UnsignedTx) TotalInput() btcutil.Amount {
	var total btcutil.Amount
	for _, out := range u.PrevOutputs {
		total += btcutil.Amount(out.Value)
	}
	return total
}

// PSBT exports the transaction as a BIP174 packet carrying the witness UTXO
// of every input so an external signer can verify amounts.
func (u *UnsignedTx) PSBT() (*psbt.Packet, error) {
	if len(u.PrevOutputs) != len(u.Tx.TxIn) {
		return nil, fmt.Errorf("have %d previous outputs for %d inputs",
			len(u.PrevOutputs), len(u.Tx.TxIn))
	}

	packet, err := psbt.NewFromUnsignedTx(u.Tx.Copy())
	if err != nil {
		return nil, err
	}

	for i, out := range u.PrevOutputs {
		packet.Inputs[i].WitnessUtxo = wire.NewTxOut(
			out.Value, out.PkScript,
		)
	}

	return packet, nil
}
