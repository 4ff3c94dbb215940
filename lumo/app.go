// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/engine"
	"github.com/lumowallet/lumowallet/lumodb"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// App is the application context. It owns the application database, the
// engine loader and the registry of loaded wallets. Callers must not use the
// database or the registry behind the App's back.
//
// App is safe for concurrent access.
type App struct {
	cfg     *Config
	db      *lumodb.DB
	loader  *engine.Loader
	manager *wallet.Manager

	// selection persists the selected wallet id.
	selection selectionStore

	// mu serializes operations that touch both the database and the
	// registry.
	mu sync.Mutex
}

// New opens the application database inside dataDir, creating the directory
// tree if needed.
func New(dataDir string, opts ...Option) (*App, error) {
	cfg := defaultConfig(dataDir)
	for _, opt := range opts {
		opt(cfg)
	}

	walletsDir := filepath.Join(cfg.DataDir, WalletsDirName)
	if err := os.MkdirAll(walletsDir, 0700); err != nil {
		return nil, wallet.NewError(wallet.ErrDatabase,
			"create data directory", err)
	}

	db, err := lumodb.Open(cfg.DataDir, cfg.DBTimeout)
	if err != nil {
		return nil, dbError("open database", err)
	}

	loader := engine.NewLoader(walletsDir)

	log.Infof("Opened application database %s", db.Path())

	return &App{
		cfg:       cfg,
		db:        db,
		loader:    loader,
		manager:   wallet.NewManager(loader),
		selection: db.GlobalConfig,
	}, nil
}

// selectionStore is the part of the global config the App reads and writes
// the wallet selection through.
type selectionStore interface {
	SelectWallet(id wallet.ID) error
	SelectedWallet() (fn.Option[wallet.ID], error)
}

// Close unloads every wallet and closes the database.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if err := a.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, dbError("close database", err))
	}

	return errors.Join(errs...)
}

// dbError tags a store failure with wallet.ErrDatabase. Errors that already
// carry a wallet code are returned unchanged.
func dbError(desc string, err error) error {
	if _, ok := wallet.ErrorCodeOf(err); ok {
		return err
	}
	return wallet.NewError(wallet.ErrDatabase, desc, err)
}

// engineError tags an engine failure with the closest wallet code.
func engineError(desc string, err error) error {
	if _, ok := wallet.ErrorCodeOf(err); ok {
		return err
	}

	switch {
	case errors.Is(err, engine.ErrInvalidMnemonic),
		errors.Is(err, engine.ErrInvalidXpub):

		return wallet.NewError(wallet.ErrInvalidMetadata, desc, err)

	case errors.Is(err, engine.ErrNetworkMismatch):
		return wallet.NewError(wallet.ErrInvalidNetwork, desc, err)

	case errors.Is(err, engine.ErrWalletExists):
		return wallet.NewError(wallet.ErrAlreadyExists, desc, err)
	}

	return wallet.NewError(wallet.ErrEngine, desc, err)
}

// lookup resolves a wallet by id or, failing that, by name.
func (a *App) lookup(nameOrID string) (wallet.Metadata, error) {
	nameOrID = strings.TrimSpace(nameOrID)

	if id, err := wallet.ParseID(nameOrID); err == nil {
		meta, err := a.db.Wallets.Get(id)
		if err != nil {
			return wallet.Metadata{}, dbError("get wallet", err)
		}
		if meta.IsSome() {
			return meta.UnwrapOr(wallet.Metadata{}), nil
		}
	}

	all, err := a.db.Wallets.GetAll(fn.None[netparams.Network]())
	if err != nil {
		return wallet.Metadata{}, dbError("list wallets", err)
	}
	for _, meta := range all {
		if meta.Name == nameOrID {
			return meta, nil
		}
	}

	return wallet.Metadata{}, wallet.NewError(wallet.ErrWalletNotFound,
		fmt.Sprintf("no wallet named %q", nameOrID), nil)
}

// checkNameFree fails with wallet.ErrAlreadyExists if a wallet is named
// name.
func (a *App) checkNameFree(name string) error {
	if strings.TrimSpace(name) == "" {
		return wallet.NewError(wallet.ErrInvalidMetadata,
			"wallet name is empty", nil)
	}

	all, err := a.db.Wallets.GetAll(fn.None[netparams.Network]())
	if err != nil {
		return dbError("list wallets", err)
	}
	for _, meta := range all {
		if meta.Name == name {
			return wallet.NewError(wallet.ErrAlreadyExists,
				fmt.Sprintf("wallet %q already exists on %s",
					name, meta.Network), nil)
		}
	}

	return nil
}
