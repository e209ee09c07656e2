// Package dbtest opens throwaway SQLite databases carrying the application
// schema.  It is imported only from tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/jikgumate/internal/database"
)

// Open returns a migrated database in t's temp dir.  The pool holds a
// single connection, so transactions serialize the way row locks would
// serialize them on MySQL.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, database.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// OpenConcurrent is Open with a pool of conns connections.  The database
// runs in WAL mode and every transaction begins IMMEDIATE, so concurrent
// writers queue on SQLite's write lock (bounded by the busy timeout) rather
// than on the pool.
func OpenConcurrent(t testing.TB, conns int) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, database.DialectSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
