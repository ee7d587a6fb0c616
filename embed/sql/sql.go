package sql

import _ "embed"

// Schema is the SQLite schema applied by db.Init.
//
//go:embed schema.sql
var Schema string

// PostgresSchema holds the PostgreSQL statements applied by pgstore.EnsureSchema,
// separated by blank-line-terminated semicolons.
//
//go:embed postgres.sql
var PostgresSchema string
