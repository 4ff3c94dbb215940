// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"sort"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/wallet"
)

// utxo is an unspent wallet output of the canonical set.
type utxo struct {
	outPoint wire.OutPoint
	output   *wire.TxOut
	path     wallet.KeyPath
	position wallet.ChainPosition
	coinbase bool
}

// graph is a conflict free view of the stored transactions.
type graph struct {
	// canonical holds the surviving transactions, confirmed first by
	// height and then unconfirmed by first seen time.
	canonical []*txRecord
	byID      map[chainhash.Hash]*txRecord
	spent     map[wire.OutPoint]chainhash.Hash
}

// buildGraph selects the canonical set: every confirmed transaction and each
// unconfirmed transaction that neither double spends an accepted one nor
// descends from a rejected one.
func buildGraph(txs map[chainhash.Hash]*txRecord) *graph {
	g := &graph{
		byID:  make(map[chainhash.Hash]*txRecord, len(txs)),
		spent: make(map[wire.OutPoint]chainhash.Hash),
	}

	var confirmed, pending []*txRecord
	for _, rec := range txs {
		if rec.position.Confirmed {
			confirmed = append(confirmed, rec)
		} else {
			pending = append(pending, rec)
		}
	}

	sort.Slice(confirmed, func(i, j int) bool {
		a, b := confirmed[i], confirmed[j]
		if a.position.Height != b.position.Height {
			return a.position.Height < b.position.Height
		}
		return a.txid.String() < b.txid.String()
	})
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if !a.firstSeen.Equal(b.firstSeen) {
			return a.firstSeen.Before(b.firstSeen)
		}
		return a.txid.String() < b.txid.String()
	})

	for _, rec := range confirmed {
		g.accept(rec)
	}

	// Parents are visited before children so a child never claims an
	// outpoint its conflicting parent would have lost.
	const (
		unvisited = iota
		visiting
		accepted
		rejected
	)
	state := make(map[chainhash.Hash]int, len(pending))
	isPending := make(map[chainhash.Hash]bool, len(pending))
	for _, rec := range pending {
		isPending[rec.txid] = true
	}

	var visit func(rec *txRecord) bool
	visit = func(rec *txRecord) bool {
		switch state[rec.txid] {
		case accepted:
			return true
		case rejected, visiting:
			return false
		}
		state[rec.txid] = visiting

		for _, in := range rec.tx.TxIn {
			prev := in.PreviousOutPoint
			if isPending[prev.Hash] && !visit(txs[prev.Hash]) {
				state[rec.txid] = rejected
				return false
			}
			if _, ok := g.spent[prev]; ok {
				state[rec.txid] = rejected
				return false
			}
		}

		state[rec.txid] = accepted
		g.accept(rec)

		return true
	}
	for _, rec := range pending {
		visit(rec)
	}

	return g
}

func (g *graph) accept(rec *txRecord) {
	g.canonical = append(g.canonical, rec)
	g.byID[rec.txid] = rec
	for _, in := range rec.tx.TxIn {
		g.spent[in.PreviousOutPoint] = rec.txid
	}
}

// prevOutput returns the output spent by in if its transaction is known.
func (g *graph) prevOutput(in *wire.TxIn) (*wire.TxOut, bool) {
	prev, ok := g.byID[in.PreviousOutPoint.Hash]
	if !ok || int(in.PreviousOutPoint.Index) >= len(prev.tx.TxOut) {
		return nil, false
	}
	return prev.tx.TxOut[in.PreviousOutPoint.Index], true
}

// owner maps output scripts to wallet key paths.
type owner func(pkScript []byte) (wallet.KeyPath, bool)

// canonicalTxs computes the wallet's stake in every canonical transaction.
func (g *graph) canonicalTxs(isMine owner) []wallet.CanonicalTx {
	result := make([]wallet.CanonicalTx, 0, len(g.canonical))
	for _, rec := range g.canonical {
		var (
			sent, received btcutil.Amount
			totalIn        btcutil.Amount
			allKnown       = true
		)

		for _, in := range rec.tx.TxIn {
			prev, ok := g.prevOutput(in)
			if !ok {
				allKnown = false
				continue
			}
			totalIn += btcutil.Amount(prev.Value)
			if _, mine := isMine(prev.PkScript); mine {
				sent += btcutil.Amount(prev.Value)
			}
		}

		var totalOut btcutil.Amount
		for _, out := range rec.tx.TxOut {
			totalOut += btcutil.Amount(out.Value)
			if _, mine := isMine(out.PkScript); mine {
				received += btcutil.Amount(out.Value)
			}
		}

		fee := fn.None[btcutil.Amount]()
		if allKnown && !blockchain.IsCoinBaseTx(rec.tx) {
			fee = fn.Some(totalIn - totalOut)
		}

		result = append(result, wallet.CanonicalTx{
			Txid:     rec.txid,
			Tx:       rec.tx,
			Sent:     sent,
			Received: received,
			Fee:      fee,
			Position: rec.position,
		})
	}

	return result
}

// unspent returns the wallet outputs no canonical transaction spends.
func (g *graph) unspent(isMine owner) []utxo {
	var utxos []utxo
	for _, rec := range g.canonical {
		coinbase := blockchain.IsCoinBaseTx(rec.tx)
		for i, out := range rec.tx.TxOut {
			path, mine := isMine(out.PkScript)
			if !mine {
				continue
			}

			op := wire.OutPoint{Hash: rec.txid, Index: uint32(i)}
			if _, spent := g.spent[op]; spent {
				continue
			}

			utxos = append(utxos, utxo{
				outPoint: op,
				output:   out,
				path:     path,
				position: rec.position,
				coinbase: coinbase,
			})
		}
	}
	return utxos
}

// usedPaths returns the key paths of every wallet script paid by the
// canonical set.
func (g *graph) usedPaths(isMine owner) map[wallet.KeyPath]bool {
	used := make(map[wallet.KeyPath]bool)
	for _, rec := range g.canonical {
		for _, out := range rec.tx.TxOut {
			if path, mine := isMine(out.PkScript); mine {
				used[path] = true
			}
		}
	}
	return used
}

// isMature reports whether a coinbase output confirmed at height can be
// spent in the block after tip.
func isMature(position wallet.ChainPosition, tip uint32,
	maturity uint16) bool {

	if !position.Confirmed || tip < position.Height {
		return false
	}
	return tip-position.Height+1 >= uint32(maturity)
}

// balance splits the unspent outputs by trust and confirmation. Unconfirmed
// outputs paying the internal keychain are trusted.
func balance(utxos []utxo, tip uint32, maturity uint16) wallet.Balance {
	var b wallet.Balance
	for _, u := range utxos {
		value := btcutil.Amount(u.output.Value)
		switch {
		case u.coinbase && !isMature(u.position, tip, maturity):
			b.Immature += value

		case u.position.Confirmed:
			b.Confirmed += value

		case u.path.Keychain == wallet.KeychainInternal:
			b.TrustedPending += value

		default:
			b.UntrustedPending += value
		}
	}
	return b
}
