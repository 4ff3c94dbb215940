// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/wallet"
)

// Sign returns a copy of the transaction with a P2WPKH witness on every
// input.
func (e *Engine) Sign(unsigned *wallet.UnsignedTx) (*wire.MsgTx, error) {
	if !e.keys.canSign() {
		return nil, wallet.ErrNoPrivateKeys
	}

	tx := unsigned.Tx.Copy()
	if len(unsigned.PrevOutputs) != len(tx.TxIn) ||
		len(unsigned.KeyPaths) != len(tx.TxIn) {

		return nil, fmt.Errorf("tx has %d inputs but %d previous "+
			"outputs and %d key paths", len(tx.TxIn),
			len(unsigned.PrevOutputs), len(unsigned.KeyPaths))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range tx.TxIn {
		fetcher.AddPrevOut(in.PreviousOutPoint, unsigned.PrevOutputs[i])
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range tx.TxIn {
		prev := unsigned.PrevOutputs[i]
		path := unsigned.KeyPaths[i]

		priv, err := e.keys.privKey(path.Keychain, path.Index)
		if err != nil {
			return nil, err
		}

		// The key must control the output being spent.
		_, script, err := e.keys.address(path.Keychain, path.Index)
		if err != nil {
			return nil, err
		}
		if string(script) != string(prev.PkScript) {
			return nil, fmt.Errorf("input %d (%v): key %v/%d does "+
				"not match the spent script", i,
				in.PreviousOutPoint, path.Keychain, path.Index)
		}

		witness, err := txscript.WitnessSignature(
			tx, sigHashes, i, prev.Value, prev.PkScript,
			txscript.SigHashAll, priv, true,
		)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		in.Witness = witness
	}

	return tx, nil
}
