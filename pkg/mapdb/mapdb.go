// Package mapdb wraps the sqlite map database: a single table
// blocks(pos INTEGER PRIMARY KEY, data BLOB) keyed by packed mapblock
// positions. All mutations accumulate in one transaction; nothing reaches
// disk until Commit.
package mapdb

import (
	"database/sql"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Database is a handle to one map file.
type Database struct {
	db       *sql.DB
	tx       *sql.Tx
	readOnly bool
}

// Open opens an existing map file and verifies that it carries a blocks
// table. A missing file or table is a configuration error; Open never
// creates either.
func Open(filename string, readOnly bool) (*Database, error) {
	if _, err := os.Stat(filename); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("map file does not exist: %s", filename)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}
	// A single connection keeps reads and the write transaction on the
	// same sqlite handle.
	db.SetMaxOpenConns(1)

	rows, err := db.Query("SELECT pos, data FROM blocks LIMIT 1")
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "not a valid map database: %s", filename)
	}
	rows.Close()

	return &Database{db: db, readOnly: readOnly}, nil
}

func (d *Database) begin() error {
	if d.readOnly {
		return errors.New("database is read-only")
	}
	if d.tx != nil {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	d.tx = tx
	return nil
}

// Modified reports whether any mutation is pending in a transaction.
func (d *Database) Modified() bool {
	return d.tx != nil
}

// GetBlock returns the raw blob stored at key, or nil if no block exists
// there.
func (d *Database) GetBlock(key int64) ([]byte, error) {
	var row *sql.Row
	if d.tx != nil {
		row = d.tx.QueryRow("SELECT data FROM blocks WHERE pos = ?", key)
	} else {
		row = d.db.QueryRow("SELECT data FROM blocks WHERE pos = ?", key)
	}

	var data []byte
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetBlock overwrites the blob of an existing block.
func (d *Database) SetBlock(key int64, data []byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	_, err := d.tx.Exec("UPDATE blocks SET data = ? WHERE pos = ?", data, key)
	return err
}

// SetBlockForce writes a blob at key, creating the block if absent.
func (d *Database) SetBlockForce(key int64, data []byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	_, err := d.tx.Exec(
		"INSERT OR REPLACE INTO blocks (pos, data) VALUES (?, ?)", key, data)
	return err
}

// DeleteBlock removes the block at key.
func (d *Database) DeleteBlock(key int64) error {
	if err := d.begin(); err != nil {
		return err
	}
	_, err := d.tx.Exec("DELETE FROM blocks WHERE pos = ?", key)
	return err
}

// EachBlock streams every (key, blob) row to fn. Returning an error from fn
// stops the scan.
func (d *Database) EachBlock(fn func(key int64, data []byte) error) error {
	var rows *sql.Rows
	var err error
	if d.tx != nil {
		rows, err = d.tx.Query("SELECT pos, data FROM blocks")
	} else {
		rows, err = d.db.Query("SELECT pos, data FROM blocks")
	}
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key int64
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return err
		}
		if err := fn(key, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Commit flushes the pending transaction, if any.
func (d *Database) Commit() error {
	if d.tx == nil {
		return nil
	}
	err := d.tx.Commit()
	d.tx = nil
	return err
}

// Vacuum commits any pending transaction and compacts the database file.
func (d *Database) Vacuum() error {
	if err := d.Commit(); err != nil {
		return err
	}
	_, err := d.db.Exec("VACUUM")
	return err
}

// Close rolls back any uncommitted transaction and releases the handle.
// Callers must Commit first to keep their changes.
func (d *Database) Close() error {
	if d.tx != nil {
		_ = d.tx.Rollback()
		d.tx = nil
	}
	return d.db.Close()
}
