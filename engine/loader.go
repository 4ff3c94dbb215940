// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/internal/cfgutil"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// Loader creates and opens engines stored under one directory.
type Loader struct {
	dir string
}

// Compile-time check to ensure Loader satisfies wallet.EngineLoader.
var _ wallet.EngineLoader = (*Loader)(nil)

// NewLoader returns a loader keeping engine files in dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Path returns the engine file of wallet id.
func (l *Loader) Path(id wallet.ID) string {
	return filepath.Join(
		l.dir, "wallet_"+strings.ToLower(id.String())+".db",
	)
}

// Exists reports whether wallet id has an engine file.
func (l *Loader) Exists(id wallet.ID) (bool, error) {
	return cfgutil.FileExists(l.Path(id))
}

// create initializes a new engine file and persists its keys.
func (l *Loader) create(id wallet.ID, net netparams.Network,
	keys *accountKeys, fingerprint fn.Option[string]) (*Engine, error) {

	exists, err := l.Exists(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrWalletExists, l.Path(id))
	}

	if err := os.MkdirAll(l.dir, 0700); err != nil {
		return nil, err
	}

	store, err := openStore(l.Path(id))
	if err != nil {
		return nil, err
	}

	err = store.withTx(func(ctx context.Context, tx *sql.Tx) error {
		err := putMeta(ctx, tx, metaNetwork, net.String())
		if err != nil {
			return err
		}

		err = putMeta(ctx, tx, metaAccountXpub, keys.xpub.String())
		if err != nil {
			return err
		}

		keys.xprv.WhenSome(func(priv *hdkeychain.ExtendedKey) {
			err = putMeta(ctx, tx, metaAccountXprv, priv.String())
		})
		if err != nil {
			return err
		}

		fingerprint.WhenSome(func(fp string) {
			err = putMeta(ctx, tx, metaFingerprint, fp)
		})
		return err
	})
	if err != nil {
		_ = store.close()
		_ = os.Remove(l.Path(id))
		return nil, err
	}

	e, err := newEngine(id, net.Params(), store, keys)
	if err != nil {
		_ = store.close()
		return nil, err
	}

	log.Infof("Created engine for wallet %v on %v", id, net)

	return e, nil
}

// CreateFromMnemonic creates a signing engine from a BIP39 mnemonic. The
// master key fingerprint is returned with it.
func (l *Loader) CreateFromMnemonic(id wallet.ID, net netparams.Network,
	mnemonic, passphrase string) (*Engine, string, error) {

	seed, err := mnemonicSeed(mnemonic, passphrase)
	if err != nil {
		return nil, "", err
	}

	params := net.Params()
	xprv, fingerprint, err := deriveAccount(seed, params.Params)
	if err != nil {
		return nil, "", err
	}
	xpub, err := xprv.Neuter()
	if err != nil {
		return nil, "", err
	}

	keys, err := newAccountKeys(params.Params, fn.Some(xprv), xpub)
	if err != nil {
		return nil, "", err
	}

	e, err := l.create(id, net, keys, fn.Some(fingerprint))
	if err != nil {
		return nil, "", err
	}

	return e, fingerprint, nil
}

// CreateFromXpub creates a watch-only engine from a BIP84 account extended
// public key.
func (l *Loader) CreateFromXpub(id wallet.ID, net netparams.Network,
	xpub string, fingerprint fn.Option[string]) (*Engine, error) {

	params := net.Params()
	key, err := parseAccountXpub(xpub, params.Params)
	if err != nil {
		return nil, err
	}

	keys, err := newAccountKeys(
		params.Params, fn.None[*hdkeychain.ExtendedKey](), key,
	)
	if err != nil {
		return nil, err
	}

	return l.create(id, net, keys, fingerprint)
}

// LoadEngine opens the engine of wallet id. wallet.ErrEngineNotFound is
// returned if no engine file or no keys were persisted.
func (l *Loader) LoadEngine(id wallet.ID,
	net netparams.Network) (wallet.Engine, error) {

	return l.Load(id, net)
}

// Load is LoadEngine returning the concrete engine.
func (l *Loader) Load(id wallet.ID, net netparams.Network) (*Engine, error) {
	exists, err := l.Exists(id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", wallet.ErrEngineNotFound,
			l.Path(id))
	}

	store, err := openStore(l.Path(id))
	if err != nil {
		return nil, err
	}

	e, err := loadEngine(id, net, store)
	if err != nil {
		_ = store.close()
		return nil, err
	}

	return e, nil
}

func loadEngine(id wallet.ID, net netparams.Network,
	store *sqlStore) (*Engine, error) {

	storedNet, ok, err := store.meta(metaNetwork)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: wallet %v has no keys",
			wallet.ErrEngineNotFound, id)
	}
	if storedNet != net.String() {
		return nil, fmt.Errorf("%w: wallet %v is on %s, not %v",
			ErrNetworkMismatch, id, storedNet, net)
	}

	params := net.Params()

	xpubStr, ok, err := store.meta(metaAccountXpub)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: wallet %v has no keys",
			wallet.ErrEngineNotFound, id)
	}
	xpub, err := hdkeychain.NewKeyFromString(xpubStr)
	if err != nil {
		return nil, err
	}

	xprv := fn.None[*hdkeychain.ExtendedKey]()
	xprvStr, ok, err := store.meta(metaAccountXprv)
	if err != nil {
		return nil, err
	}
	if ok {
		key, err := hdkeychain.NewKeyFromString(xprvStr)
		if err != nil {
			return nil, err
		}
		xprv = fn.Some(key)
	}

	keys, err := newAccountKeys(params.Params, xprv, xpub)
	if err != nil {
		return nil, err
	}

	return newEngine(id, params, store, keys)
}

// Remove deletes the engine file of wallet id. Removing a missing file is
// not an error.
func (l *Loader) Remove(id wallet.ID) error {
	path := l.Path(id)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		err := os.Remove(p)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
