// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumo

import (
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/engine"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// CreatedWallet is the result of creating a mnemonic wallet. Mnemonic is the
// phrase the wallet was derived from and must be shown to the user once.
type CreatedWallet struct {
	Metadata wallet.Metadata
	Mnemonic string
}

// CreateWallet creates a hot wallet named name on net and selects it. A
// random mnemonic is generated unless one is given.
func (a *App) CreateWallet(name string, net netparams.Network,
	mnemonic fn.Option[string], passphrase string) (*CreatedWallet,
	error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkNameFree(name); err != nil {
		return nil, err
	}

	phrase := mnemonic.UnwrapOr("")
	if mnemonic.IsNone() {
		var err error
		phrase, err = engine.NewMnemonic()
		if err != nil {
			return nil, engineError("generate mnemonic", err)
		}
	}
	phrase = engine.NormalizeMnemonic(phrase)

	id := wallet.NewID()
	e, fingerprint, err := a.loader.CreateFromMnemonic(
		id, net, phrase, passphrase,
	)
	if err != nil {
		return nil, engineError(fmt.Sprintf("create wallet %q", name),
			err)
	}

	meta := wallet.NewMnemonicMetadata(id, name, net, fn.Some(fingerprint))
	if err := a.register(meta, e); err != nil {
		return nil, err
	}

	log.Infof("Created wallet %q (%s) on %s", name, id, net)

	return &CreatedWallet{Metadata: meta, Mnemonic: phrase}, nil
}

// ImportXpub creates a watch-only wallet from a BIP84 account extended
// public key and selects it. A known master fingerprint marks the wallet
// as a hardware wallet.
func (a *App) ImportXpub(name string, net netparams.Network, xpub string,
	fingerprint fn.Option[string]) (wallet.Metadata, error) {

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkNameFree(name); err != nil {
		return wallet.Metadata{}, err
	}

	id := wallet.NewID()
	meta := wallet.NewXpubMetadata(id, name, net, fingerprint)
	if err := meta.Validate(); err != nil {
		return wallet.Metadata{}, err
	}

	e, err := a.loader.CreateFromXpub(id, net, xpub, fingerprint)
	if err != nil {
		return wallet.Metadata{}, engineError(
			fmt.Sprintf("import wallet %q", name), err,
		)
	}

	if err := a.register(meta, e); err != nil {
		return wallet.Metadata{}, err
	}

	log.Infof("Imported %s wallet %q (%s) on %s",
		meta.Type.Description(), name, id, net)

	return meta, nil
}

// register persists and selects a freshly created wallet and makes it the
// active session. The engine file is removed again if the record cannot be
// saved.
func (a *App) register(meta wallet.Metadata, e *engine.Engine) error {
	if err := a.db.SaveNewAndSelect(&meta); err != nil {
		if cerr := e.Close(); cerr != nil {
			log.Warnf("Unable to close engine of wallet %s: %v",
				meta.ID, cerr)
		}
		if rerr := a.loader.Remove(meta.ID); rerr != nil {
			log.Warnf("Unable to remove engine of wallet %s: %v",
				meta.ID, rerr)
		}
		return dbError(fmt.Sprintf("save wallet %q", meta.Name), err)
	}

	a.manager.AddWallet(wallet.NewSession(meta, e))
	return a.manager.SetActiveWallet(meta.ID)
}

// ListWallets returns the wallets of net, or of every network when net is
// None, oldest first.
func (a *App) ListWallets(
	net fn.Option[netparams.Network]) ([]wallet.Metadata, error) {

	wallets, err := a.db.Wallets.GetAll(net)
	if err != nil {
		return nil, dbError("list wallets", err)
	}
	return wallets, nil
}

// SelectedWalletID returns the id stored as the selected wallet.
func (a *App) SelectedWalletID() (fn.Option[wallet.ID], error) {
	id, err := a.selection.SelectedWallet()
	if err != nil {
		return fn.None[wallet.ID](), dbError("read selection", err)
	}
	return id, nil
}

// SelectWallet loads the wallet with the given id or name, makes it active
// and persists the selection.
func (a *App) SelectWallet(nameOrID string) (*wallet.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	meta, err := a.lookup(nameOrID)
	if err != nil {
		return nil, err
	}

	s, err := a.manager.LoadWallet(meta)
	if err != nil {
		return nil, err
	}
	// The stored selection is written first so a failed write leaves the
	// active wallet unchanged.
	if err := a.selection.SelectWallet(meta.ID); err != nil {
		return nil, dbError("save selection", err)
	}
	if err := a.manager.SetActiveWallet(meta.ID); err != nil {
		return nil, err
	}

	log.Infof("Selected wallet %q (%s)", meta.Name, meta.ID)

	return s, nil
}

// SelectedWallet returns the session of the selected wallet, loading it if
// necessary. wallet.ErrNoActiveWallet is returned when nothing is selected.
func (a *App) SelectedWallet() (*wallet.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id := a.manager.ActiveWalletID(); id.IsSome() {
		return a.manager.ActiveWallet()
	}

	selected, err := a.selection.SelectedWallet()
	if err != nil {
		return nil, dbError("read selection", err)
	}
	id, err := selected.UnwrapOrErr(wallet.NewError(
		wallet.ErrNoActiveWallet, "no wallet selected", nil,
	))
	if err != nil {
		return nil, err
	}

	stored, err := a.db.Wallets.Get(id)
	if err != nil {
		return nil, dbError("get wallet", err)
	}
	meta, err := stored.UnwrapOrErr(wallet.NewError(
		wallet.ErrWalletNotFound,
		fmt.Sprintf("selected wallet %s not found", id), nil,
	))
	if err != nil {
		return nil, err
	}

	s, err := a.manager.LoadWallet(meta)
	if err != nil {
		return nil, err
	}
	if err := a.manager.SetActiveWallet(id); err != nil {
		return nil, err
	}

	return s, nil
}

// Wallet returns the session of the wallet with the given id or name
// without changing the selection.
func (a *App) Wallet(nameOrID string) (*wallet.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	meta, err := a.lookup(nameOrID)
	if err != nil {
		return nil, err
	}
	return a.manager.LoadWallet(meta)
}

// DeleteWallet unloads a wallet, removes its record and deletes its engine
// file. The selection is cleared if it pointed at the wallet.
func (a *App) DeleteWallet(nameOrID string) (wallet.Metadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	meta, err := a.lookup(nameOrID)
	if err != nil {
		return wallet.Metadata{}, err
	}

	err = a.manager.UnloadWallet(meta.ID)
	if err != nil && !wallet.IsError(err, wallet.ErrWalletNotFound) {
		return wallet.Metadata{}, err
	}

	if _, err := a.db.DeleteWallet(meta.ID); err != nil {
		return wallet.Metadata{}, dbError(
			fmt.Sprintf("delete wallet %q", meta.Name), err,
		)
	}

	if err := a.loader.Remove(meta.ID); err != nil &&
		!errors.Is(err, wallet.ErrEngineNotFound) {

		return wallet.Metadata{}, engineError(
			fmt.Sprintf("remove engine of wallet %q", meta.Name), err,
		)
	}

	log.Infof("Deleted wallet %q (%s)", meta.Name, meta.ID)

	return meta, nil
}
