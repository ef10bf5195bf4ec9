package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the schema for the question bank and round snapshots.
var Migrations = migrate.NewMigrations()
