// Copyright (c) 2025 The lumowallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package engine

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lumowallet/lumowallet/wallet"

	// Register the pure-Go SQLite driver under name "sqlite".
	_ "modernc.org/sqlite"
)

// schemaVersion is stored in the user_version pragma.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS engine_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS keychains (
	keychain      INTEGER PRIMARY KEY,
	last_revealed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	txid       TEXT PRIMARY KEY,
	raw        BLOB NOT NULL,
	confirmed  INTEGER NOT NULL,
	height     INTEGER,
	block_time INTEGER,
	first_seen INTEGER NOT NULL
);
`

// Keys of the engine_meta table.
const (
	metaNetwork     = "network"
	metaAccountXprv = "account_xprv"
	metaAccountXpub = "account_xpub"
	metaFingerprint = "master_fingerprint"
	metaTipHeight   = "tip_height"
)

// storeTimeout bounds every statement against the engine file.
const storeTimeout = 30 * time.Second

// txRecord is a transaction of the graph with its chain position.
type txRecord struct {
	tx        *wire.MsgTx
	txid      chainhash.Hash
	position  wallet.ChainPosition
	firstSeen time.Time
}

// sqlStore persists engine state in a SQLite file.
type sqlStore struct {
	db *sql.DB
}

// openStore opens the SQLite file at path and applies the schema.
func openStore(path string) (*sqlStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection keeps statements
	// ordered.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqlStore{db: db}, nil
}

// migrate creates the schema on a fresh file and rejects files written by a
// newer version.
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	switch {
	case version == schemaVersion:
		return nil

	case version > schemaVersion:
		return fmt.Errorf("engine schema version %d is newer than "+
			"supported version %d", version, schemaVersion)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	_, err = db.ExecContext(
		ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	)
	return err
}

func (s *sqlStore) close() error {
	return s.db.Close()
}

// withTx runs f in a transaction, committing when it returns nil.
func (s *sqlStore) withTx(f func(ctx context.Context, tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := f(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// meta returns a value of engine_meta. ok is false if the key is missing.
func (s *sqlStore) meta(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(
		ctx, "SELECT value FROM engine_meta WHERE key = ?", key,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil

	case err != nil:
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}

	return value, true, nil
}

func putMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO engine_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// putLastRevealed stores the highest revealed index of keychain k.
func putLastRevealed(ctx context.Context, tx *sql.Tx, k wallet.Keychain,
	index uint32) error {

	_, err := tx.ExecContext(ctx, `
		INSERT INTO keychains (keychain, last_revealed) VALUES (?, ?)
		ON CONFLICT (keychain) DO UPDATE
		SET last_revealed = excluded.last_revealed`,
		int64(k), int64(index),
	)
	if err != nil {
		return fmt.Errorf("write %v revealed index: %w", k, err)
	}
	return nil
}

// lastRevealed returns the highest revealed index of each keychain, -1 for
// keychains with nothing revealed.
func (s *sqlStore) lastRevealed() ([2]int64, error) {
	revealed := [2]int64{-1, -1}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(
		ctx, "SELECT keychain, last_revealed FROM keychains",
	)
	if err != nil {
		return revealed, err
	}
	defer rows.Close()

	for rows.Next() {
		var k, index int64
		if err := rows.Scan(&k, &index); err != nil {
			return revealed, err
		}
		if k < 0 || k > int64(wallet.KeychainInternal) {
			return revealed, fmt.Errorf("unknown keychain %d", k)
		}
		revealed[k] = index
	}

	return revealed, rows.Err()
}

// putTx inserts or updates a transaction. The first seen time of a known
// transaction is kept.
func putTx(ctx context.Context, tx *sql.Tx, rec *txRecord) error {
	var raw bytes.Buffer
	if err := rec.tx.Serialize(&raw); err != nil {
		return err
	}

	var height, blockTime sql.NullInt64
	if rec.position.Confirmed {
		height = sql.NullInt64{Int64: int64(rec.position.Height), Valid: true}
		blockTime = sql.NullInt64{
			Int64: rec.position.BlockTime.Unix(), Valid: true,
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions
			(txid, raw, confirmed, height, block_time, first_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (txid) DO UPDATE SET
			confirmed = excluded.confirmed,
			height = excluded.height,
			block_time = excluded.block_time`,
		rec.txid.String(), raw.Bytes(), rec.position.Confirmed, height,
		blockTime, rec.firstSeen.Unix(),
	)
	if err != nil {
		return fmt.Errorf("write tx %v: %w", rec.txid, err)
	}
	return nil
}

// transactions loads every stored transaction.
func (s *sqlStore) transactions() (map[chainhash.Hash]*txRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT txid, raw, confirmed, height, block_time, first_seen
		FROM transactions`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make(map[chainhash.Hash]*txRecord)
	for rows.Next() {
		var (
			txidStr           string
			raw               []byte
			confirmed         bool
			height, blockTime sql.NullInt64
			firstSeen         int64
		)
		err := rows.Scan(
			&txidStr, &raw, &confirmed, &height, &blockTime,
			&firstSeen,
		)
		if err != nil {
			return nil, err
		}

		msgTx := wire.NewMsgTx(wire.TxVersion)
		if err := msgTx.Deserialize(bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("decode tx %s: %w", txidStr, err)
		}

		txid := msgTx.TxHash()
		if txid.String() != txidStr {
			return nil, fmt.Errorf("tx %s stored under %s", txid,
				txidStr)
		}

		rec := &txRecord{
			tx:        msgTx,
			txid:      txid,
			position:  wallet.Unconfirmed(),
			firstSeen: time.Unix(firstSeen, 0),
		}
		if confirmed && height.Valid {
			rec.position = wallet.ConfirmedAt(
				uint32(height.Int64),
				time.Unix(blockTime.Int64, 0),
			)
		}
		txs[txid] = rec
	}

	return txs, rows.Err()
}

// tipHeight returns the persisted tip height.
func (s *sqlStore) tipHeight() (uint32, error) {
	value, ok, err := s.meta(metaTipHeight)
	if err != nil || !ok {
		return 0, err
	}

	height, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("decode tip height: %w", err)
	}
	return uint32(height), nil
}
