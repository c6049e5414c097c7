// Package sqliteexternal provides the optional CGO SQLite driver for the
// writing-system registry.
//
// To use the CGO driver (github.com/mattn/go-sqlite3), build with:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/liftws
//
// core/sqlite then imports this package instead of the default pure Go
// driver (modernc.org/sqlite). Both register a database/sql driver; only the
// driver name and DSN parameters differ, and core/sqlite hides those.
package sqliteexternal
