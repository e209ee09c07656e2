package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

// Dialect selects which embedded schema file Migrate applies.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema for the given dialect.  Every statement
// is idempotent (CREATE ... IF NOT EXISTS), so it is safe to run at each start.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	raw, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return fmt.Errorf("read schema %s: %w", d, err)
	}
	for _, stmt := range splitStatements(string(raw)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema %s: %w", d, err)
		}
	}
	return nil
}

// splitStatements drops "--" comment lines and splits on ';'.  The schema
// files contain no string literals with semicolons.
func splitStatements(src string) []string {
	var b strings.Builder
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, s := range strings.Split(b.String(), ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
