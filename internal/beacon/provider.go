package beacon

import (
	"context"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
)

// Provide starts a Server over registry and returns a cleanup
// function, matching internal/persistence.Provide's shape. Passing a
// nil registry builds a fresh, empty one.
func Provide(ctx context.Context, cfg Config, registry *Registry, ad adapter.ClaudeAdapter, log *logger.Logger) (*Server, func() error, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	srv := New(cfg, registry, ad, log)
	if err := srv.Start(ctx); err != nil {
		return nil, nil, err
	}
	return srv, srv.Stop, nil
}
