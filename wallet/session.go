// Copyright (c) 2017 The btcsuite developers
// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/netparams"
)

const (
	// MinSendAmount is the smallest payment the wallet will build.
	MinSendAmount btcutil.Amount = 5000

	// DustLimit is the smallest output value the wallet will create.
	DustLimit btcutil.Amount = 546
)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("wallet session closed")

// Session pairs a wallet's metadata with its loaded engine. All engine access
// goes through mu, so a session may be shared between goroutines.
type Session struct {
	meta   Metadata
	engine Engine

	mu     sync.Mutex
	closed bool
}

// NewSession wraps a loaded engine.
func NewSession(meta Metadata, engine Engine) *Session {
	return &Session{meta: meta, engine: engine}
}

// ID returns the wallet id.
func (s *Session) ID() ID {
	return s.meta.ID
}

// Metadata returns the metadata snapshot the session was loaded with.
func (s *Session) Metadata() Metadata {
	return s.meta
}

// Name returns the wallet name.
func (s *Session) Name() string {
	return s.meta.Name
}

// Network returns the wallet network.
func (s *Session) Network() netparams.Network {
	return s.meta.Network
}

// withEngine runs f with exclusive access to the engine.
func (s *Session) withEngine(f func(Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	return f(s.engine)
}

// Balance returns the engine balance.
func (s *Session) Balance() (Balance, error) {
	var balance Balance
	err := s.withEngine(func(e Engine) error {
		var err error
		balance, err = e.Balance()
		return err
	})
	if err != nil {
		return Balance{}, engineError("balance", err)
	}
	return balance, nil
}

// Transactions returns the projected transaction history.
func (s *Session) Transactions() ([]Transaction, error) {
	var txs []CanonicalTx
	err := s.withEngine(func(e Engine) error {
		var err error
		txs, err = e.Transactions()
		return err
	})
	if err != nil {
		return nil, engineError("list transactions", err)
	}
	return ProjectTransactions(txs), nil
}

// TipHeight returns the height the wallet was last synced to.
func (s *Session) TipHeight() uint32 {
	var height uint32
	_ = s.withEngine(func(e Engine) error {
		height = e.TipHeight()
		return nil
	})
	return height
}

// Sync runs a full scan against src and applies the result. The scan itself
// runs without holding the session lock.
func (s *Session) Sync(ctx context.Context, src ChainSource) error {
	var req ScanRequest
	err := s.withEngine(func(e Engine) error {
		req = e.StartFullScan()
		return nil
	})
	if err != nil {
		return engineError("start scan", err)
	}

	log.Infof("Syncing wallet %s (%s)", s.meta.Name, s.meta.ID)
	start := time.Now()

	update, err := src.FullScan(ctx, req, GapLimit)
	if err != nil {
		return NewError(ErrChain, "full scan", err)
	}

	err = s.withEngine(func(e Engine) error {
		return e.ApplyUpdate(update)
	})
	if err != nil {
		return engineError("apply chain update", err)
	}

	log.Infof("Synced wallet %s to height %d: %d %s in %v",
		s.meta.Name, update.TipHeight, len(update.Txs),
		pickNoun(len(update.Txs), "transaction", "transactions"),
		time.Since(start).Round(time.Millisecond))

	return nil
}

// BuildTransaction creates an unsigned payment of amount to recipient.
func (s *Session) BuildTransaction(recipient btcutil.Address,
	amount btcutil.Amount, feeRate FeeRate) (*UnsignedTx, error) {

	if !recipient.IsForNet(s.meta.Network.ChainParams()) {
		return nil, NewError(ErrInvalidAddress, fmt.Sprintf("recipient "+
			"%s is not a %s address", recipient, s.meta.Network), nil)
	}

	if amount < MinSendAmount {
		return nil, NewError(ErrInvalidAmount, fmt.Sprintf("amount %d "+
			"sats is below the minimum of %d sats", int64(amount),
			int64(MinSendAmount)), nil)
	}

	var tx *UnsignedTx
	err := s.withEngine(func(e Engine) error {
		var err error
		tx, err = e.BuildTx(recipient, amount, feeRate)
		return err
	})
	if err != nil {
		return nil, engineError("build transaction", err)
	}

	return tx, nil
}

// SignTransaction signs tx with the wallet keys.
func (s *Session) SignTransaction(tx *UnsignedTx) (*wire.MsgTx, error) {
	if !s.meta.Type.CanSign() {
		return nil, NewError(ErrWatchOnly, fmt.Sprintf("wallet %q is "+
			"%s", s.meta.Name, s.meta.Type.Description()), nil)
	}

	var signed *wire.MsgTx
	err := s.withEngine(func(e Engine) error {
		var err error
		signed, err = e.Sign(tx)
		return err
	})
	if err != nil {
		return nil, engineError("sign transaction", err)
	}

	return signed, nil
}

// Broadcast publishes a signed transaction through src.
func (s *Session) Broadcast(ctx context.Context, src ChainSource,
	tx *wire.MsgTx) (chainhash.Hash, error) {

	txid, err := src.Broadcast(ctx, tx)
	if err != nil {
		return chainhash.Hash{}, NewError(ErrChain,
			fmt.Sprintf("broadcast %v", tx.TxHash()), err)
	}

	log.Infof("Broadcast transaction %v from wallet %s", txid, s.meta.Name)

	return txid, nil
}

// Close releases the engine. Further calls fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.engine.Close()
}
