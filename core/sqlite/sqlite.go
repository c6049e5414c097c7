// Package sqlite provides a unified SQLite interface supporting both
// pure Go (modernc.org/sqlite) and CGO (mattn/go-sqlite3) implementations.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3 via contrib/sqlite-external
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation.
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/liftws/core/errors"
)

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the appropriate driver.
// This is the preferred way to open SQLite databases.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenFile opens the database file at path, creating it and its parent
// directory when missing. Foreign keys are enforced and writers wait on a
// busy database instead of failing at once.
func OpenFile(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIO("create directory for", path, err)
		}
	}
	db, err := Open("file:" + path + "?" + pragmaParams)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.NewIO("open database", path, err)
	}
	return db, nil
}

// OpenMemory opens a private in-memory database. The pool is limited to one
// connection since every connection would otherwise see its own database.
func OpenMemory() (*sql.DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Migrate brings the schema up to date. migrations[i] moves the schema from
// version i to i+1; the current version is kept in PRAGMA user_version.
// Each migration runs in its own transaction.
func Migrate(db *sql.DB, migrations []string) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(err, "reading schema version")
	}
	if version > len(migrations) {
		return fmt.Errorf("schema version %d is newer than this program (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "migration %d", i+1)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d", i+1)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "migration %d", i+1)
		}
		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "migration %d", i+1)
		}
	}
	return nil
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
