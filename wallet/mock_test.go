// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// This file contains test doubles for the engine, engine loader and chain
// source interfaces.

package wallet

import (
	"context"
	"encoding/binary"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/stretchr/testify/mock"
)

// mockEngineLoader is a mock implementation of the EngineLoader interface.
type mockEngineLoader struct {
	mock.Mock
}

// A compile-time assertion to ensure that mockEngineLoader implements the
// EngineLoader interface.
var _ EngineLoader = (*mockEngineLoader)(nil)

// LoadEngine implements the EngineLoader interface.
func (m *mockEngineLoader) LoadEngine(id ID,
	net netparams.Network) (Engine, error) {

	args := m.Called(id, net)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Engine), args.Error(1)
}

// mockChainSource is a mock implementation of the ChainSource interface.
type mockChainSource struct {
	mock.Mock
}

var _ ChainSource = (*mockChainSource)(nil)

// FullScan implements the ChainSource interface.
func (m *mockChainSource) FullScan(ctx context.Context, req ScanRequest,
	stopGap uint32) (*ChainUpdate, error) {

	args := m.Called(ctx, req, stopGap)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChainUpdate), args.Error(1)
}

// Broadcast implements the ChainSource interface.
func (m *mockChainSource) Broadcast(ctx context.Context,
	tx *wire.MsgTx) (chainhash.Hash, error) {

	args := m.Called(ctx, tx)
	return args.Get(0).(chainhash.Hash), args.Error(1)
}

// fakeEngine is an in-memory Engine with deterministic addresses. Usage is
// driven directly by the tests through markUsed.
type fakeEngine struct {
	net      netparams.Network
	revealed map[Keychain]int64
	used     map[Keychain]map[uint32]bool
	balance  Balance
	txs      []CanonicalTx
	tip      uint32
	applied  []*ChainUpdate
	closed   bool
	canSign  bool
}

var _ Engine = (*fakeEngine)(nil)

func newFakeEngine(net netparams.Network) *fakeEngine {
	return &fakeEngine{
		net: net,
		revealed: map[Keychain]int64{
			KeychainExternal: -1,
			KeychainInternal: -1,
		},
		used: map[Keychain]map[uint32]bool{
			KeychainExternal: {},
			KeychainInternal: {},
		},
		canSign: true,
	}
}

// fakeAddress derives a stable P2WPKH address from keychain and index.
func (f *fakeEngine) fakeAddress(k Keychain, index uint32) btcutil.Address {
	var seed [5]byte
	seed[0] = byte(k)
	binary.BigEndian.PutUint32(seed[1:], index)

	addr, err := btcutil.NewAddressWitnessPubKeyHash(
		btcutil.Hash160(seed[:]), f.net.ChainParams(),
	)
	if err != nil {
		panic(err)
	}
	return addr
}

func (f *fakeEngine) record(k Keychain, index uint32) AddressRecord {
	return AddressRecord{
		Keychain: k,
		Index:    index,
		Address:  f.fakeAddress(k, index),
		IsUsed:   f.used[k][index],
	}
}

// markUsed flags an address as having history, revealing it if needed.
func (f *fakeEngine) markUsed(k Keychain, index uint32) {
	f.used[k][index] = true
	if int64(index) > f.revealed[k] {
		f.revealed[k] = int64(index)
	}
}

func (f *fakeEngine) RevealNextAddress(k Keychain) (AddressRecord, error) {
	f.revealed[k]++
	return f.record(k, uint32(f.revealed[k])), nil
}

func (f *fakeEngine) PeekAddress(k Keychain, index uint32) (AddressRecord,
	error) {

	return f.record(k, index), nil
}

func (f *fakeEngine) ListUnusedAddresses(k Keychain) ([]AddressRecord,
	error) {

	var unused []AddressRecord
	for i := int64(0); i <= f.revealed[k]; i++ {
		if !f.used[k][uint32(i)] {
			unused = append(unused, f.record(k, uint32(i)))
		}
	}
	return unused, nil
}

func (f *fakeEngine) Balance() (Balance, error) {
	return f.balance, nil
}

func (f *fakeEngine) Transactions() ([]CanonicalTx, error) {
	return f.txs, nil
}

func (f *fakeEngine) TipHeight() uint32 {
	return f.tip
}

func (f *fakeEngine) StartFullScan() ScanRequest {
	return ScanRequest{
		Keychains: Keychains,
		ScriptAt: func(k Keychain, index uint32) ([]byte, error) {
			return txscript.PayToAddrScript(f.fakeAddress(k, index))
		},
	}
}

func (f *fakeEngine) ApplyUpdate(update *ChainUpdate) error {
	f.applied = append(f.applied, update)
	f.tip = update.TipHeight
	return nil
}

func (f *fakeEngine) BuildTx(recipient btcutil.Address, amount btcutil.Amount,
	feeRate FeeRate) (*UnsignedTx, error) {

	pkScript, err := txscript.PayToAddrScript(recipient)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(int64(amount), pkScript))

	return &UnsignedTx{
		Tx:          tx,
		PrevOutputs: []*wire.TxOut{wire.NewTxOut(int64(amount)+1000, pkScript)},
		KeyPaths:    []KeyPath{{Keychain: KeychainExternal}},
		Amount:      amount,
		Fee:         1000,
		FeeRate:     feeRate,
		ChangeIndex: -1,
	}, nil
}

func (f *fakeEngine) Sign(tx *UnsignedTx) (*wire.MsgTx, error) {
	if !f.canSign {
		return nil, ErrNoPrivateKeys
	}
	return tx.Tx.Copy(), nil
}

func (f *fakeEngine) Close() error {
	f.closed = true
	return nil
}
