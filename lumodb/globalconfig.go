// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/wallet"
)

const (
	// GlobalConfigTable holds application wide settings.
	GlobalConfigTable = "global_config"

	// selectedWalletKey stores the id of the selected wallet.
	selectedWalletKey = "selected_wallet_id"
)

// GlobalConfig persists application wide settings.
type GlobalConfig struct {
	store *Store
}

// SelectWallet records id as the selected wallet. The id is not checked
// against the wallet table.
func (g *GlobalConfig) SelectWallet(id wallet.ID) error {
	return g.store.Update(func(tx *WriteTx) error {
		table, err := tx.OpenTable(GlobalConfigTable)
		if err != nil {
			return err
		}
		return table.Insert(selectedWalletKey, id.String())
	})
}

// SelectedWallet returns the selected wallet id, if any.
func (g *GlobalConfig) SelectedWallet() (fn.Option[wallet.ID], error) {
	result := fn.None[wallet.ID]()
	err := g.store.View(func(tx *ReadTx) error {
		table, err := tx.OpenTable(GlobalConfigTable)
		if IsError(err, ErrTableNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		value, ok := table.Get(selectedWalletKey)
		if !ok {
			return nil
		}

		id, err := wallet.ParseID(value)
		if err != nil {
			return storeError(ErrSerialization,
				"decode selected wallet id", err)
		}
		result = fn.Some(id)

		return nil
	})

	return result, err
}

// ClearSelectedWallet removes the selection. Clearing when nothing is
// selected succeeds.
func (g *GlobalConfig) ClearSelectedWallet() error {
	return g.store.Update(func(tx *WriteTx) error {
		table, err := tx.OpenTable(GlobalConfigTable)
		if err != nil {
			return err
		}
		return table.Remove(selectedWalletKey)
	})
}

// clearIfSelectedTx removes the selection when it points at id.
func clearIfSelectedTx(tx *WriteTx, id wallet.ID) error {
	table, err := tx.OpenTable(GlobalConfigTable)
	if err != nil {
		return err
	}

	value, ok := table.Get(selectedWalletKey)
	if !ok || value != id.String() {
		return nil
	}

	return table.Remove(selectedWalletKey)
}
