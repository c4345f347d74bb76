// Package migrations holds the bun migrations for a tenant snapshot database.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry applied by `acsd db migrate` and by workers at
// startup.
var Migrations = migrate.NewMigrations()
