package sqliteutil

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const Memory = ":memory:"

// OpenDB opens (creating it and its directory when needed) the sqlite
// database at path and applies schema to it. schema must be idempotent,
// it runs on every open.
func OpenDB(schema, path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != Memory {
		err := os.MkdirAll(filepath.Dir(path), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, an in-memory database also only lives
	// as long as its one connection
	db.SetMaxOpenConns(1)

	if path != Memory {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, errors.Join(err, db.Close())
		}
	}
	_, err = db.Exec(schema)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to apply schema: %w", err), db.Close())
	}
	return db, nil
}
