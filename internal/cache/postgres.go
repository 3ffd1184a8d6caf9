package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// json rather than jsonb so payload bytes round-trip unchanged.
const postgresSchema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key   TEXT PRIMARY KEY,
	value JSON NOT NULL
)`

// PostgresDurable stores cache records in a PostgreSQL table.
type PostgresDurable struct {
	pool *pgxpool.Pool
}

// NewPostgresDurable creates the cache table if needed. The caller owns pool.
func NewPostgresDurable(ctx context.Context, pool *pgxpool.Pool) (*PostgresDurable, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &PostgresDurable{pool: pool}, nil
}

func (d *PostgresDurable) Load(ctx context.Context, key string) (Entry, bool, error) {
	var raw []byte
	err := d.pool.QueryRow(ctx, `SELECT value::text FROM cache_entries WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("select cache entry: %w", err)
	}
	e, err := decodeRecord(key, raw)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (d *PostgresDurable) Save(ctx context.Context, e Entry) error {
	raw, err := encodeRecord(e)
	if err != nil {
		return err
	}
	_, err = d.pool.Exec(ctx,
		`INSERT INTO cache_entries (key, value) VALUES ($1, $2::json)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		e.Key, string(raw))
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

func (d *PostgresDurable) Delete(ctx context.Context, key string) error {
	if _, err := d.pool.Exec(ctx, `DELETE FROM cache_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (d *PostgresDurable) Clear(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, `TRUNCATE cache_entries`); err != nil {
		return fmt.Errorf("clear cache entries: %w", err)
	}
	return nil
}
