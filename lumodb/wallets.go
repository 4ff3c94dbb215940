// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"fmt"
	"sort"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lumowallet/lumowallet/netparams"
	"github.com/lumowallet/lumowallet/wallet"
)

// WalletMetadataTable is the table holding one record per wallet, keyed by
// the canonical string form of the wallet id.
const WalletMetadataTable = "wallet_metadata"

// WalletsTable persists wallet metadata.
type WalletsTable struct {
	store *Store
}

// SaveNew inserts a record for a wallet that does not exist yet.
// ErrDuplicateWallet is returned if the id is already present.
func (w *WalletsTable) SaveNew(meta *wallet.Metadata) error {
	return w.store.Update(func(tx *WriteTx) error {
		return saveNewTx(tx, meta)
	})
}

func saveNewTx(tx *WriteTx, meta *wallet.Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}

	table, err := tx.OpenTable(WalletMetadataTable)
	if err != nil {
		return err
	}

	key := meta.ID.String()
	if _, ok := table.Get(key); ok {
		return storeError(ErrDuplicateWallet,
			fmt.Sprintf("wallet %s already exists", key), nil)
	}

	value, err := encodeMetadata(meta)
	if err != nil {
		return err
	}

	return table.Insert(key, value)
}

// Upsert stores the record, replacing any record with the same id.
func (w *WalletsTable) Upsert(meta *wallet.Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}

	value, err := encodeMetadata(meta)
	if err != nil {
		return err
	}

	return w.store.Update(func(tx *WriteTx) error {
		table, err := tx.OpenTable(WalletMetadataTable)
		if err != nil {
			return err
		}
		return table.Insert(meta.ID.String(), value)
	})
}

// Get returns the record for id.
func (w *WalletsTable) Get(id wallet.ID) (fn.Option[wallet.Metadata], error) {
	result := fn.None[wallet.Metadata]()
	err := w.store.View(func(tx *ReadTx) error {
		table, err := tx.OpenTable(WalletMetadataTable)
		if IsError(err, ErrTableNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		key := id.String()
		value, ok := table.Get(key)
		if !ok {
			return nil
		}

		meta, err := decodeMetadata(key, value)
		if err != nil {
			return err
		}
		result = fn.Some(meta)

		return nil
	})

	return result, err
}

// GetAll returns every record, optionally only those of one network. The
// result is ordered by creation time, oldest first.
func (w *WalletsTable) GetAll(
	net fn.Option[netparams.Network]) ([]wallet.Metadata, error) {

	var all []wallet.Metadata
	err := w.store.View(func(tx *ReadTx) error {
		table, err := tx.OpenTable(WalletMetadataTable)
		if IsError(err, ErrTableNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for key, value := range table.All() {
			meta, err := decodeMetadata(key, value)
			if err != nil {
				return err
			}

			keep := true
			net.WhenSome(func(n netparams.Network) {
				keep = n == meta.Network
			})
			if keep {
				all = append(all, meta)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	return all, nil
}

// Delete removes the record for id and reports whether one existed.
func (w *WalletsTable) Delete(id wallet.ID) (bool, error) {
	var existed bool
	err := w.store.Update(func(tx *WriteTx) error {
		var err error
		existed, err = deleteTx(tx, id)
		return err
	})
	return existed, err
}

func deleteTx(tx *WriteTx, id wallet.ID) (bool, error) {
	table, err := tx.OpenTable(WalletMetadataTable)
	if err != nil {
		return false, err
	}

	key := id.String()
	if _, ok := table.Get(key); !ok {
		return false, nil
	}

	return true, table.Remove(key)
}
