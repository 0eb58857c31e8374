package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens and pings an embedded SQLite-backed Store. Used when
// POSTGRES_DSN is unset, per spec.md §9 ("runnable on a laptop with zero
// external services"). modernc.org/sqlite is pure Go, so this carries no
// cgo requirement.
func OpenSQLite(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite foreign_keys: %w", err)
	}
	return &Store{DB: db, Dialect: DialectSQLite}, nil
}
