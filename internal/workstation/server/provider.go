package server

import (
	"context"
	"sync"
	"time"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/persistence"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

// Provide wires a Hub and Listener and starts serving, returning a
// cleanup function that shuts the listener down, matching
// internal/persistence.Provide's shape.
func Provide(ctx context.Context, cfg Config, st *store.Store, ad adapter.ClaudeAdapter, tools *toolmap.Map, persist *persistence.Persistence, log *logger.Logger) (*Listener, func() error, error) {
	hub := NewHub(st, ad, tools, persist, log)
	listener := NewListener(cfg, hub, log)
	if err := listener.Start(ctx); err != nil {
		return nil, nil, err
	}

	var stopOnce sync.Once
	cleanup := func() error {
		var stopErr error
		stopOnce.Do(func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			stopErr = listener.Stop(stopCtx)
		})
		return stopErr
	}

	return listener, cleanup, nil
}
