package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/persistence/db"
)

// PostgresKVStore is the multi-node alternative backend, used when
// several workstation processes share one persistence tier.
type PostgresKVStore struct {
	pg *db.Postgres
}

// NewPostgresKVStore opens a pgx pool against cfg and ensures its
// kv_store table exists.
func NewPostgresKVStore(ctx context.Context, cfg config.PersistenceConfig) (*PostgresKVStore, error) {
	pg, err := db.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if _, err := pg.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		pg.Close()
		return nil, fmt.Errorf("persistence: failed to create kv_store table: %w", err)
	}
	return &PostgresKVStore{pg: pg}, nil
}

func (s *PostgresKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.pg.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("persistence: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresKVStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.pg.Exec(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("persistence: put %q: %w", key, err)
	}
	return nil
}

func (s *PostgresKVStore) Delete(ctx context.Context, key string) error {
	_, err := s.pg.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("persistence: delete %q: %w", key, err)
	}
	return nil
}

func (s *PostgresKVStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pg.Query(ctx, `SELECT key FROM kv_store WHERE key LIKE $1`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("persistence: list keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *PostgresKVStore) Close() error {
	s.pg.Close()
	return nil
}
