// Package db provides the low-level database connections backing the
// Persistence capability: a pgx pool for postgres and a single-writer
// sqlite connection, behind the same *sql.DB-shaped surface where
// practical.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaymesh/relaymesh/internal/obs/config"
)

// Postgres wraps a pgxpool.Pool and provides transaction helpers used
// by the postgres-backed Persistence implementation.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a new pooled connection using the given
// persistence configuration and verifies it with a ping.
func OpenPostgres(ctx context.Context, cfg config.PersistenceConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db: failed to parse postgres config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("db: failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: failed to ping postgres: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (d *Postgres) Pool() *pgxpool.Pool { return d.pool }

// Close closes the connection pool.
func (d *Postgres) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// Ping verifies the connection is still alive.
func (d *Postgres) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }

// Exec executes a query that doesn't return rows.
func (d *Postgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.pool.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows.
func (d *Postgres) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.pool.Query(ctx, sql, args...)
}

// QueryRow executes a query that returns at most one row.
func (d *Postgres) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.pool.QueryRow(ctx, sql, args...)
}

// WithTx runs fn inside a transaction, rolling back on error or panic
// and committing on success.
func (d *Postgres) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: failed to commit transaction: %w", err)
	}
	return nil
}
