// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
)

var (
	// ErrEngineNotFound is returned by an EngineLoader when no persisted
	// engine state exists for a wallet id.
	ErrEngineNotFound = errors.New("no persisted engine state")

	// ErrNoPrivateKeys is returned by an Engine asked to sign while only
	// holding public key material.
	ErrNoPrivateKeys = errors.New("engine holds no private keys")

	// ErrKeychainExhausted is returned by an Engine when the next
	// derivation index would leave the non-hardened index space.
	ErrKeychainExhausted = errors.New("keychain index space exhausted")
)

// Keychain selects one of the two derivation branches of a wallet.
type Keychain uint8

const (
	// KeychainExternal derives receiving addresses.
	KeychainExternal Keychain = 0

	// KeychainInternal derives change addresses.
	KeychainInternal Keychain = 1
)

// Keychains lists both branches in derivation order.
var Keychains = []Keychain{KeychainExternal, KeychainInternal}

// String returns the branch name.
func (k Keychain) String() string {
	if k == KeychainInternal {
		return "internal"
	}
	return "external"
}

// AddressRecord describes one derived address of a keychain.
type AddressRecord struct {
	Keychain Keychain
	Index    uint32
	Address  btcutil.Address
	IsUsed   bool
}

// ChainPosition tells whether a transaction is in a block.
type ChainPosition struct {
	Confirmed bool
	Height    uint32
	BlockTime time.Time
}

// Unconfirmed returns the position of a mempool transaction.
func Unconfirmed() ChainPosition {
	return ChainPosition{}
}

// ConfirmedAt returns the position of a transaction mined at height.
func ConfirmedAt(height uint32, blockTime time.Time) ChainPosition {
	return ChainPosition{
		Confirmed: true,
		Height:    height,
		BlockTime: blockTime,
	}
}

// CanonicalTx is a transaction of the engine's conflict free transaction set
// together with the wallet's stake in it.
type CanonicalTx struct {
	Txid     chainhash.Hash
	Tx       *wire.MsgTx
	Sent     btcutil.Amount
	Received btcutil.Amount

	// Fee is known only when every input spends a wallet output.
	Fee fn.Option[btcutil.Amount]

	Position ChainPosition
}

// Balance splits the wallet's unspent value by trust and confirmation.
type Balance struct {
	// Immature is coinbase value not yet spendable.
	Immature btcutil.Amount

	// TrustedPending is unconfirmed value the wallet created itself, such
	// as change.
	TrustedPending btcutil.Amount

	// UntrustedPending is unconfirmed value received from others.
	UntrustedPending btcutil.Amount

	// Confirmed is value in blocks.
	Confirmed btcutil.Amount
}

// TrustedSpendable is the value that can be spent right away.
func (b Balance) TrustedSpendable() btcutil.Amount {
	return b.Confirmed + b.TrustedPending
}

// Total is the sum of every category.
func (b Balance) Total() btcutil.Amount {
	return b.Immature + b.TrustedPending + b.UntrustedPending + b.Confirmed
}

// ScanRequest tells a ChainSource which scripts to look up. ScriptAt must
// return the output script of the address at index of keychain k.
type ScanRequest struct {
	Keychains []Keychain
	ScriptAt  func(k Keychain, index uint32) ([]byte, error)
}

// ScannedTx is a transaction found during a scan.
type ScannedTx struct {
	Tx       *wire.MsgTx
	Position ChainPosition
}

// ChainUpdate is the result of a full scan.
type ChainUpdate struct {
	TipHeight uint32
	Txs       []ScannedTx

	// LastActive holds, per keychain, the highest index with history.
	// Keychains without any history are absent.
	LastActive map[Keychain]uint32
}

// Engine owns the key material, derived addresses and transaction graph of
// one wallet. Implementations are not required to be safe for concurrent
// mutation; Session serializes access.
type Engine interface {
	// RevealNextAddress derives the next address of k and persists the
	// new highest revealed index.
	RevealNextAddress(k Keychain) (AddressRecord, error)

	// PeekAddress derives the address at index without revealing it.
	PeekAddress(k Keychain, index uint32) (AddressRecord, error)

	// ListUnusedAddresses returns the revealed addresses of k without
	// any transaction history, ordered by index.
	ListUnusedAddresses(k Keychain) ([]AddressRecord, error)

	// Balance returns the wallet balance.
	Balance() (Balance, error)

	// Transactions returns the canonical transaction set.
	Transactions() ([]CanonicalTx, error)

	// TipHeight returns the chain height of the last applied update.
	TipHeight() uint32

	// StartFullScan returns the request a ChainSource needs to rebuild
	// the wallet's history from scratch.
	StartFullScan() ScanRequest

	// ApplyUpdate merges a scan result into the engine and persists it.
	ApplyUpdate(update *ChainUpdate) error

	// BuildTx selects coins and creates an unsigned payment.
	BuildTx(recipient btcutil.Address, amount btcutil.Amount,
		feeRate FeeRate) (*UnsignedTx, error)

	// Sign returns a fully signed copy of tx.
	Sign(tx *UnsignedTx) (*wire.MsgTx, error)

	// Close releases the engine storage.
	Close() error
}

// EngineLoader opens persisted engines.
type EngineLoader interface {
	// LoadEngine opens the engine of wallet id. ErrEngineNotFound is
	// returned when nothing was persisted for it.
	LoadEngine(id ID, net netparams.Network) (Engine, error)
}

// ChainSource synchronizes engines with the block chain.
type ChainSource interface {
	// FullScan looks up every script of the request until stopGap
	// consecutive scripts of a keychain have no history.
	FullScan(ctx context.Context, req ScanRequest,
		stopGap uint32) (*ChainUpdate, error)

	// Broadcast publishes tx and returns its txid.
	Broadcast(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error)
}
