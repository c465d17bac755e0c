package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/relaymesh/relaymesh/internal/persistence/db"
)

// SQLiteKVStore is the default, single-node KVStore backend.
type SQLiteKVStore struct {
	conn *sql.DB
}

// NewSQLiteKVStore opens (creating if necessary) the sqlite database at
// dbPath and ensures its kv_store table exists.
func NewSQLiteKVStore(dbPath string) (*SQLiteKVStore, error) {
	conn, err := db.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("persistence: failed to create kv_store table: %w", err)
	}
	return &SQLiteKVStore{conn: conn}, nil
}

func (s *SQLiteKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("persistence: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteKVStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, unixepoch())
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("persistence: put %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteKVStore) Delete(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("persistence: delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteKVStore) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE ?`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("persistence: list keys %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

func (s *SQLiteKVStore) Close() error {
	if _, err := s.conn.Exec("PRAGMA optimize"); err != nil {
		_ = err // best-effort stats update, not fatal
	}
	return s.conn.Close()
}
