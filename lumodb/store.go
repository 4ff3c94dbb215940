// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lumodb

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
	"github.com/lumowallet/lumowallet/internal/cfgutil"
	bolt "go.etcd.io/bbolt"
)

const (
	// dbDriver is the walletdb driver backing every store.
	dbDriver = "bdb"

	// DefaultDBTimeout is the default time to wait for the file lock of
	// a store held by another process.
	DefaultDBTimeout = 60 * time.Second
)

// Store is a single file of named tables with string keys and values. Any
// number of read transactions run concurrently with at most one write
// transaction; readers see the snapshot taken when they began.
type Store struct {
	db   walletdb.DB
	path string
}

// OpenOrCreate opens the store at path, creating the file and its parent
// directories if needed. A missing or unopenable path yields
// ErrStorageUnavailable and an existing file that is not a valid store
// yields ErrCorruptStore.
func OpenOrCreate(path string, timeout time.Duration) (*Store, error) {
	exists, err := cfgutil.FileExists(path)
	if err != nil {
		return nil, storeError(ErrStorageUnavailable,
			fmt.Sprintf("stat %s", path), err)
	}

	var db walletdb.DB
	if exists {
		db, err = walletdb.Open(dbDriver, path, true, timeout, false)
		if err != nil {
			return nil, classifyOpenError(path, err)
		}
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, storeError(ErrStorageUnavailable,
				fmt.Sprintf("create directory %s", dir), err)
		}

		db, err = walletdb.Create(dbDriver, path, true, timeout, false)
		if err != nil {
			return nil, storeError(ErrStorageUnavailable,
				fmt.Sprintf("create %s", path), err)
		}
	}

	log.Debugf("Opened store %s", path)

	return &Store{db: db, path: path}, nil
}

// classifyOpenError maps an error from opening an existing file.
func classifyOpenError(path string, err error) error {
	desc := fmt.Sprintf("open %s", path)

	var pathErr *fs.PathError
	switch {
	case errors.Is(err, bolt.ErrTimeout):
		return storeError(ErrStorageUnavailable,
			desc+": file is locked by another process", err)

	case errors.As(err, &pathErr):
		return storeError(ErrStorageUnavailable, desc, err)

	case errors.Is(err, walletdb.ErrInvalid),
		errors.Is(err, bolt.ErrInvalid),
		errors.Is(err, bolt.ErrChecksum),
		errors.Is(err, bolt.ErrVersionMismatch):

		return storeError(ErrCorruptStore, desc, err)
	}

	// Anything else bbolt rejects in an existing file is a format
	// problem, such as a file too short to hold the meta pages.
	return storeError(ErrCorruptStore, desc, err)
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the store. Open transactions must be finished first.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRead starts a read transaction.
func (s *Store) BeginRead() (*ReadTx, error) {
	tx, err := s.db.BeginReadTx()
	if err != nil {
		return nil, storeError(ErrRead, "begin read transaction", err)
	}
	return &ReadTx{tx: tx}, nil
}

// BeginWrite starts a write transaction, waiting for any other writer to
// finish.
func (s *Store) BeginWrite() (*WriteTx, error) {
	tx, err := s.db.BeginReadWriteTx()
	if err != nil {
		return nil, storeError(ErrWrite, "begin write transaction", err)
	}
	return &WriteTx{tx: tx}, nil
}

// View runs f in a read transaction that is always rolled back.
func (s *Store) View(f func(tx *ReadTx) error) error {
	tx, err := s.BeginRead()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	return f(tx)
}

// Update runs f in a write transaction which is committed if f returns nil
// and rolled back otherwise.
func (s *Store) Update(f func(tx *WriteTx) error) error {
	tx, err := s.BeginWrite()
	if err != nil {
		return err
	}

	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// ReadTx is a consistent snapshot of the store.
type ReadTx struct {
	tx     walletdb.ReadTx
	closed bool
}

// OpenTable opens an existing table. ErrTableNotFound is returned if it was
// never created.
func (t *ReadTx) OpenTable(name string) (*Table, error) {
	if t.closed {
		return nil, storeError(ErrTxClosed, "open table "+name,
			walletdb.ErrTxClosed)
	}

	bucket := t.tx.ReadBucket([]byte(name))
	if bucket == nil {
		return nil, storeError(ErrTableNotFound,
			fmt.Sprintf("table %q not found", name), nil)
	}

	return &Table{name: name, read: bucket}, nil
}

// Rollback ends the transaction. It is safe to call more than once.
func (t *ReadTx) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.tx.Rollback(); err != nil {
		return storeError(ErrRead, "end read transaction", err)
	}
	return nil
}

// WriteTx is the single writer of the store. Mutations become visible to
// other transactions atomically on Commit.
type WriteTx struct {
	tx     walletdb.ReadWriteTx
	closed bool
}

// OpenTable opens a table, creating it if needed.
func (t *WriteTx) OpenTable(name string) (*Table, error) {
	if t.closed {
		return nil, storeError(ErrTxClosed, "open table "+name,
			walletdb.ErrTxClosed)
	}

	bucket := t.tx.ReadWriteBucket([]byte(name))
	if bucket == nil {
		var err error
		bucket, err = t.tx.CreateTopLevelBucket([]byte(name))
		if err != nil {
			return nil, storeError(ErrWrite,
				fmt.Sprintf("create table %q", name), err)
		}
	}

	return &Table{name: name, read: bucket, write: bucket}, nil
}

// Commit makes every mutation of the transaction durable and visible. On
// failure nothing is applied.
func (t *WriteTx) Commit() error {
	if t.closed {
		return storeError(ErrTxClosed, "commit", walletdb.ErrTxClosed)
	}
	t.closed = true

	if err := t.tx.Commit(); err != nil {
		return storeError(ErrCommit, "commit", err)
	}
	return nil
}

// Rollback discards every mutation of the transaction. It is safe to call
// after Commit.
func (t *WriteTx) Rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.tx.Rollback(); err != nil {
		return storeError(ErrWrite, "rollback", err)
	}
	return nil
}

// Table is a named string to string mapping inside a transaction. Tables
// opened from a read transaction reject mutations.
type Table struct {
	name  string
	read  walletdb.ReadBucket
	write walletdb.ReadWriteBucket
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Get returns the value stored under key.
func (t *Table) Get(key string) (string, bool) {
	v := t.read.Get([]byte(key))
	if v == nil {
		return "", false
	}
	return string(v), true
}

// Insert stores value under key, replacing any previous value.
func (t *Table) Insert(key, value string) error {
	if t.write == nil {
		return storeError(ErrWrite, fmt.Sprintf("insert into %q", t.name),
			walletdb.ErrTxNotWritable)
	}

	if err := t.write.Put([]byte(key), []byte(value)); err != nil {
		return storeError(ErrWrite,
			fmt.Sprintf("insert %q into %q", key, t.name), err)
	}
	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (t *Table) Remove(key string) error {
	if t.write == nil {
		return storeError(ErrWrite, fmt.Sprintf("remove from %q", t.name),
			walletdb.ErrTxNotWritable)
	}

	if err := t.write.Delete([]byte(key)); err != nil {
		return storeError(ErrWrite,
			fmt.Sprintf("remove %q from %q", key, t.name), err)
	}
	return nil
}

// All iterates the table in key order. The sequence is lazy and may be
// ranged over again within the same transaction.
func (t *Table) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		c := t.read.ReadCursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			// Nested buckets have no value.
			if v == nil {
				continue
			}
			if !yield(string(k), string(v)) {
				return
			}
		}
	}
}

// Len returns the number of records in the table.
func (t *Table) Len() int {
	n := 0
	for range t.All() {
		n++
	}
	return n
}
