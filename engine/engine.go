// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// lookahead is the number of scripts past the highest revealed index of each
// keychain that are watched for payments.
const lookahead = wallet.GapLimit

// Engine is a single account BIP84 wallet persisted in its own SQLite file.
// It is not safe for concurrent use; wallet.Session serializes callers.
type Engine struct {
	id     wallet.ID
	params *netparams.Params
	store  *sqlStore
	keys   *accountKeys

	// revealed holds the highest revealed index per keychain, -1 when
	// nothing was revealed.
	revealed [2]int64
	tip      uint32
	txs      map[chainhash.Hash]*txRecord

	// scripts indexes every derived script up to the revealed index plus
	// lookahead, and indexed tracks how far each keychain was derived.
	scripts map[string]wallet.KeyPath
	indexed [2]int64

	// cached is the canonical view, rebuilt after each update.
	cached *graph
}

// Compile-time check to ensure Engine satisfies wallet.Engine.
var _ wallet.Engine = (*Engine)(nil)

// newEngine loads the persisted state of store.
func newEngine(id wallet.ID, params *netparams.Params, store *sqlStore,
	keys *accountKeys) (*Engine, error) {

	revealed, err := store.lastRevealed()
	if err != nil {
		return nil, err
	}
	tip, err := store.tipHeight()
	if err != nil {
		return nil, err
	}
	txs, err := store.transactions()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:       id,
		params:   params,
		store:    store,
		keys:     keys,
		revealed: revealed,
		tip:      tip,
		txs:      txs,
		scripts:  make(map[string]wallet.KeyPath),
		indexed:  [2]int64{-1, -1},
	}
	if err := e.indexScripts(); err != nil {
		return nil, err
	}

	log.Debugf("Loaded engine for wallet %v: %d txs, tip %d, revealed %v",
		id, len(txs), tip, revealed)

	return e, nil
}

// indexScripts derives scripts until each keychain covers its lookahead.
func (e *Engine) indexScripts() error {
	for _, k := range wallet.Keychains {
		target := e.revealed[k] + lookahead
		if target >= hdkeychain.HardenedKeyStart {
			target = hdkeychain.HardenedKeyStart - 1
		}

		for i := e.indexed[k] + 1; i <= target; i++ {
			_, script, err := e.keys.address(k, uint32(i))
			if err != nil {
				return err
			}
			e.scripts[string(script)] = wallet.KeyPath{
				Keychain: k, Index: uint32(i),
			}
			e.indexed[k] = i
		}
	}
	return nil
}

// isMine looks up the key path of a script.
func (e *Engine) isMine(pkScript []byte) (wallet.KeyPath, bool) {
	path, ok := e.scripts[string(pkScript)]
	return path, ok
}

func (e *Engine) graph() *graph {
	if e.cached == nil {
		e.cached = buildGraph(e.txs)
	}
	return e.cached
}

// ID returns the wallet id the engine belongs to.
func (e *Engine) ID() wallet.ID {
	return e.id
}

// Network returns the network of the engine.
func (e *Engine) Network() netparams.Network {
	return e.params.Network
}

// CanSign reports whether the engine holds private keys.
func (e *Engine) CanSign() bool {
	return e.keys.canSign()
}

// AccountXpub returns the serialized account extended public key.
func (e *Engine) AccountXpub() string {
	return e.keys.xpub.String()
}

func (e *Engine) record(k wallet.Keychain,
	index uint32) (wallet.AddressRecord, error) {

	addr, _, err := e.keys.address(k, index)
	if err != nil {
		return wallet.AddressRecord{}, err
	}

	used := e.graph().usedPaths(e.isMine)
	return wallet.AddressRecord{
		Keychain: k,
		Index:    index,
		Address:  addr,
		IsUsed:   used[wallet.KeyPath{Keychain: k, Index: index}],
	}, nil
}

// RevealNextAddress derives the address after the highest revealed one and
// persists the new index.
func (e *Engine) RevealNextAddress(
	k wallet.Keychain) (wallet.AddressRecord, error) {

	next := e.revealed[k] + 1
	if next >= hdkeychain.HardenedKeyStart {
		return wallet.AddressRecord{}, wallet.ErrKeychainExhausted
	}

	rec, err := e.record(k, uint32(next))
	if err != nil {
		return wallet.AddressRecord{}, err
	}

	err = e.store.withTx(func(ctx context.Context, tx *sql.Tx) error {
		return putLastRevealed(ctx, tx, k, uint32(next))
	})
	if err != nil {
		return wallet.AddressRecord{}, err
	}

	e.revealed[k] = next
	if err := e.indexScripts(); err != nil {
		return wallet.AddressRecord{}, err
	}

	log.Tracef("Revealed %v address %d: %v", k, next, rec.Address)

	return rec, nil
}

// PeekAddress derives the address at index without revealing it.
func (e *Engine) PeekAddress(k wallet.Keychain,
	index uint32) (wallet.AddressRecord, error) {

	return e.record(k, index)
}

// ListUnusedAddresses returns revealed addresses of k that were never paid.
func (e *Engine) ListUnusedAddresses(
	k wallet.Keychain) ([]wallet.AddressRecord, error) {

	used := e.graph().usedPaths(e.isMine)

	var unused []wallet.AddressRecord
	for i := int64(0); i <= e.revealed[k]; i++ {
		path := wallet.KeyPath{Keychain: k, Index: uint32(i)}
		if used[path] {
			continue
		}

		addr, _, err := e.keys.address(k, uint32(i))
		if err != nil {
			return nil, err
		}
		unused = append(unused, wallet.AddressRecord{
			Keychain: k,
			Index:    uint32(i),
			Address:  addr,
		})
	}

	return unused, nil
}

// Balance returns the value of the unspent canonical outputs.
func (e *Engine) Balance() (wallet.Balance, error) {
	utxos := e.graph().unspent(e.isMine)
	return balance(utxos, e.tip, e.params.CoinbaseMaturity), nil
}

// Transactions returns the canonical transaction set.
func (e *Engine) Transactions() ([]wallet.CanonicalTx, error) {
	return e.graph().canonicalTxs(e.isMine), nil
}

// TipHeight returns the tip height of the last applied update.
func (e *Engine) TipHeight() uint32 {
	return e.tip
}

// StartFullScan returns a request covering both keychains. ScriptAt is safe
// for concurrent use.
func (e *Engine) StartFullScan() wallet.ScanRequest {
	keys := e.keys
	return wallet.ScanRequest{
		Keychains: wallet.Keychains,
		ScriptAt: func(k wallet.Keychain, index uint32) ([]byte, error) {
			_, script, err := keys.address(k, index)
			return script, err
		},
	}
}

// ApplyUpdate merges a scan result. Positions reported by the update replace
// stored ones and revealed indexes grow to the last active index.
func (e *Engine) ApplyUpdate(update *wallet.ChainUpdate) error {
	now := time.Now()

	records := make([]*txRecord, 0, len(update.Txs))
	for _, scanned := range update.Txs {
		txid := scanned.Tx.TxHash()
		rec := &txRecord{
			tx:        scanned.Tx,
			txid:      txid,
			position:  scanned.Position,
			firstSeen: now,
		}
		if old, ok := e.txs[txid]; ok {
			rec.firstSeen = old.firstSeen
		}
		records = append(records, rec)
	}

	revealed := e.revealed
	for k, last := range update.LastActive {
		if int64(last) > revealed[k] {
			revealed[k] = int64(last)
		}
	}

	err := e.store.withTx(func(ctx context.Context, tx *sql.Tx) error {
		for _, rec := range records {
			if err := putTx(ctx, tx, rec); err != nil {
				return err
			}
		}

		for _, k := range wallet.Keychains {
			if revealed[k] == e.revealed[k] {
				continue
			}
			err := putLastRevealed(ctx, tx, k, uint32(revealed[k]))
			if err != nil {
				return err
			}
		}

		return putMeta(ctx, tx, metaTipHeight,
			strconv.FormatUint(uint64(update.TipHeight), 10))
	})
	if err != nil {
		return err
	}

	for _, rec := range records {
		e.txs[rec.txid] = rec
	}
	e.revealed = revealed
	e.tip = update.TipHeight
	e.cached = nil

	log.Debugf("Applied update to wallet %v: %d txs, tip %d", e.id,
		len(records), e.tip)

	return e.indexScripts()
}

// Close closes the engine file.
func (e *Engine) Close() error {
	return e.store.close()
}

// Fingerprint returns the master key fingerprint recorded at creation.
func (e *Engine) Fingerprint() (fn.Option[string], error) {
	fp, ok, err := e.store.meta(metaFingerprint)
	if err != nil || !ok {
		return fn.None[string](), err
	}
	return fn.Some(fp), nil
}
