// Package db embeds the database schema applied at startup.
package db

import _ "embed"

// Schema holds the idempotent DDL for the catalog, cart, order, and auth
// token tables.
//
//go:embed migrations/001_schema.sql
var Schema string
