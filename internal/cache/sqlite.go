package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteDurable stores cache records in a SQLite table.
type SQLiteDurable struct {
	db *sql.DB
}

// NewSQLiteDurable creates the cache table if needed. The caller owns db.
func NewSQLiteDurable(ctx context.Context, db *sql.DB) (*SQLiteDurable, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &SQLiteDurable{db: db}, nil
}

func (d *SQLiteDurable) Load(ctx context.Context, key string) (Entry, bool, error) {
	var raw string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("select cache entry: %w", err)
	}
	e, err := decodeRecord(key, []byte(raw))
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (d *SQLiteDurable) Save(ctx context.Context, e Entry) error {
	raw, err := encodeRecord(e)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		e.Key, string(raw))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (d *SQLiteDurable) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (d *SQLiteDurable) Clear(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}
