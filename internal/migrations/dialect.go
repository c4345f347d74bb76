package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// Migrations branch on these where SQLite and PostgreSQL DDL diverge: a
// tenant normally lives in its own SQLite file, while shared-server
// deployments point workers at PostgreSQL schemas.

// IsSQLite reports whether db speaks the SQLite dialect.
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL reports whether db speaks the PostgreSQL dialect.
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}
