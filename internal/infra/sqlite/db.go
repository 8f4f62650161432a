// Package sqlite is the storage layer. It owns the schema and every row
// operation; business rules live above it in internal/app.
//
// All timestamps are stored as UTC RFC3339 text. The business day an
// event belongs to is stored alongside as a separate YYYY-MM-DD column,
// computed by the caller through the Clock; SQL date() is never used
// for boundary arithmetic, so no second timezone source exists.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies all
// migrations. Transactions take the write lock immediately so two
// recompute transactions for one user serialize instead of failing at
// commit.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_txlock=immediate&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path,
	)
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY between pooled
	// connections; sqlite serializes writes anyway.
	raw.SetMaxOpenConns(1)

	db := &DB{db: raw, now: time.Now}
	if err := db.migrate(); err != nil {
		raw.Close()
		return nil, err
	}
	return db, nil
}

// SetNow overrides the timestamp source for stored row stamps
// (created_at, updated_at, unlocked_at). The bootstrap points this at
// the business clock so stored times come from the same authority as
// business dates.
func (db *DB) SetNow(fn func() time.Time) {
	if fn != nil {
		db.now = fn
	}
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Tx is a transaction handle exposing the row operations that must
// compose atomically (ledger append + totals recompute + challenge
// transition).
type Tx struct {
	tx  *sql.Tx
	now func() time.Time
}

// WithTx runs fn inside one transaction. fn returning an error rolls
// the whole unit back; the database is left exactly as before.
func (db *DB) WithTx(fn func(tx *Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&Tx{tx: tx, now: db.now}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ─── Time encoding ──────────────────────────────────────────────────────────

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
