// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"path/filepath"
	"time"

	"github.com/lumowallet/lumowallet/wallet"
)

// DBName is the file name of the application database inside the data
// directory.
const DBName = "lumo.db"

// DB is the application database: one store holding the wallet metadata
// and global config tables.
type DB struct {
	*Store

	Wallets      *WalletsTable
	GlobalConfig *GlobalConfig
}

// Open opens or creates the application database inside dataDir and makes
// sure both tables exist.
func Open(dataDir string, timeout time.Duration) (*DB, error) {
	store, err := OpenOrCreate(filepath.Join(dataDir, DBName), timeout)
	if err != nil {
		return nil, err
	}

	err = store.Update(func(tx *WriteTx) error {
		for _, name := range []string{
			WalletMetadataTable, GlobalConfigTable,
		} {
			if _, err := tx.OpenTable(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &DB{
		Store:        store,
		Wallets:      &WalletsTable{store: store},
		GlobalConfig: &GlobalConfig{store: store},
	}, nil
}

// SaveNewAndSelect inserts a new wallet record and selects it in a single
// transaction.
func (d *DB) SaveNewAndSelect(meta *wallet.Metadata) error {
	return d.Update(func(tx *WriteTx) error {
		if err := saveNewTx(tx, meta); err != nil {
			return err
		}

		table, err := tx.OpenTable(GlobalConfigTable)
		if err != nil {
			return err
		}
		return table.Insert(selectedWalletKey, meta.ID.String())
	})
}

// DeleteWallet removes a wallet record and clears the selection if it
// pointed at the wallet. It reports whether a record existed.
func (d *DB) DeleteWallet(id wallet.ID) (bool, error) {
	var existed bool
	err := d.Update(func(tx *WriteTx) error {
		var err error
		existed, err = deleteTx(tx, id)
		if err != nil {
			return err
		}
		return clearIfSelectedTx(tx, id)
	})
	return existed, err
}
