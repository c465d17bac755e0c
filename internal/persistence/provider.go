package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
)

// Provide builds the Persistence capability from configuration,
// choosing the sqlite or postgres KVStore backend per
// cfg.Persistence.Driver, and returns a cleanup function that closes
// the underlying connection.
func Provide(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Persistence, func() error, error) {
	switch cfg.Persistence.Driver {
	case "sqlite", "":
		store, err := NewSQLiteKVStore(cfg.Persistence.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: failed to open sqlite: %w", err)
		}
		if log != nil {
			log.Info("persistence initialized", zap.String("driver", "sqlite"), zap.String("path", cfg.Persistence.Path))
		}
		p := New(store)
		return p, p.Close, nil
	case "postgres":
		store, err := NewPostgresKVStore(ctx, cfg.Persistence)
		if err != nil {
			return nil, nil, fmt.Errorf("persistence: failed to open postgres: %w", err)
		}
		if log != nil {
			log.Info("persistence initialized", zap.String("driver", "postgres"), zap.String("dbName", cfg.Persistence.DBName))
		}
		p := New(store)
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("persistence: unsupported driver %q", cfg.Persistence.Driver)
	}
}
