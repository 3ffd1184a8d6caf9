// Package database opens the connections backing the durable cache tier.
//
// Two backends are supported:
//   - PostgreSQL via a pgx connection pool
//   - SQLite via database/sql and go-sqlite3, in WAL mode
package database
