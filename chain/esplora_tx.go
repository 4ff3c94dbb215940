// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/wallet"
)

// esploraStatus is the confirmation status of a transaction.
type esploraStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint32 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

// position converts the status to a chain position.
func (s esploraStatus) position() wallet.ChainPosition {
	if !s.Confirmed {
		return wallet.Unconfirmed()
	}
	return wallet.ConfirmedAt(s.BlockHeight, time.Unix(s.BlockTime, 0))
}

type esploraVin struct {
	Txid      string   `json:"txid"`
	Vout      uint32   `json:"vout"`
	ScriptSig string   `json:"scriptsig"`
	Witness   []string `json:"witness"`
	Sequence  uint32   `json:"sequence"`
	Coinbase  bool     `json:"is_coinbase"`
}

type esploraVout struct {
	ScriptPubKey string `json:"scriptpubkey"`
	Value        int64  `json:"value"`
}

// esploraTx is a transaction as returned by the esplora REST API.
type esploraTx struct {
	Txid     string        `json:"txid"`
	Version  int32         `json:"version"`
	LockTime uint32        `json:"locktime"`
	Vin      []esploraVin  `json:"vin"`
	Vout     []esploraVout `json:"vout"`
	Status   esploraStatus `json:"status"`
}

// msgTx rebuilds the wire transaction. An error is returned if a field does
// not decode or the rebuilt transaction does not hash to the reported txid.
func (e *esploraTx) msgTx() (*wire.MsgTx, error) {
	txid, err := chainhash.NewHashFromStr(e.Txid)
	if err != nil {
		return nil, fmt.Errorf("txid %q: %w", e.Txid, err)
	}

	tx := wire.NewMsgTx(e.Version)
	tx.LockTime = e.LockTime

	for i, vin := range e.Vin {
		var prev wire.OutPoint
		if vin.Coinbase {
			prev.Index = wire.MaxPrevOutIndex
		} else {
			hash, err := chainhash.NewHashFromStr(vin.Txid)
			if err != nil {
				return nil, fmt.Errorf("%v input %d: %w", txid, i,
					err)
			}
			prev = wire.OutPoint{Hash: *hash, Index: vin.Vout}
		}

		sigScript, err := hex.DecodeString(vin.ScriptSig)
		if err != nil {
			return nil, fmt.Errorf("%v input %d script: %w", txid, i,
				err)
		}

		var witness wire.TxWitness
		for _, item := range vin.Witness {
			b, err := hex.DecodeString(item)
			if err != nil {
				return nil, fmt.Errorf("%v input %d witness: %w",
					txid, i, err)
			}
			witness = append(witness, b)
		}

		in := wire.NewTxIn(&prev, sigScript, witness)
		in.Sequence = vin.Sequence
		tx.AddTxIn(in)
	}

	for i, vout := range e.Vout {
		pkScript, err := hex.DecodeString(vout.ScriptPubKey)
		if err != nil {
			return nil, fmt.Errorf("%v output %d: %w", txid, i, err)
		}
		tx.AddTxOut(wire.NewTxOut(vout.Value, pkScript))
	}

	if got := tx.TxHash(); got != *txid {
		return nil, fmt.Errorf("rebuilt tx hashes to %v, want %v", got,
			txid)
	}

	return tx, nil
}
