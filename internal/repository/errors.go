// Package repository implements database/sql access for users, refresh
// tokens, the catalog, carts and orders.  Every method that takes part in a
// multi-step unit of work has a *Tx variant; plain variants run directly on
// the pool.  Missing rows surface as sql.ErrNoRows so services decide how to
// classify them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when an insert or update violates a uniqueness
// constraint.  Services translate it into a 409 response.
var ErrConflict = errors.New("conflict")

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicateKey reports whether err is a unique-key violation on MySQL
// (error 1062) or SQLite.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a failed reference check
// (MySQL 1451/1452 or SQLite).
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1451 || me.Number == 1452
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
