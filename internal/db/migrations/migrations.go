// Package migrations embeds the goose SQL migrations for every SQL dialect.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect names the migration directory for a SQL backend.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// FS returns the migrations for dialect rooted at the migration files.
func FS(dialect Dialect) (fs.FS, error) {
	switch dialect {
	case Postgres, SQLite:
		return fs.Sub(files, string(dialect))
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}
