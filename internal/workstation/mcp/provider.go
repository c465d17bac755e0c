package mcp

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
)

// DefaultConfig returns the embedded tool-server's default configuration.
func DefaultConfig() Config {
	return Config{Port: 9877}
}

// NewWithLogger creates a Server tagged with a component field.
func NewWithLogger(cfg Config, st *store.Store, log *logger.Logger) *Server {
	srv := New(cfg, st)
	srv.logger = log.WithFields(zap.String("component", "workstation-mcp"))
	return srv
}

// Provide starts the embedded tool-server and returns a cleanup
// function to stop it, matching internal/persistence.Provide's shape.
func Provide(ctx context.Context, cfg Config, st *store.Store, log *logger.Logger) (*Server, func() error, error) {
	srv := NewWithLogger(cfg, st, log)
	if err := srv.Start(ctx); err != nil {
		return nil, nil, err
	}

	var stopOnce sync.Once
	cleanup := func() error {
		var stopErr error
		stopOnce.Do(func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			stopErr = srv.Stop(stopCtx)
		})
		return stopErr
	}

	return srv, cleanup, nil
}
