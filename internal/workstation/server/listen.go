package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/obs/logger"
)

// Config holds the local control surface's listen configuration.
type Config struct {
	Port int
}

// DefaultConfig is the default workstation local WS port.
func DefaultConfig() Config { return Config{Port: 9000} }

// Listener owns the HTTP server the Hub's Handler is mounted on.
type Listener struct {
	cfg        Config
	hub        *Hub
	httpServer *http.Server
	mu         sync.Mutex
	running    bool
	log        *logger.Logger
}

// NewListener builds a Listener for hub.
func NewListener(cfg Config, hub *Hub, log *logger.Logger) *Listener {
	return &Listener{cfg: cfg, hub: hub, log: log.WithFields(zap.String("component", "workstation-listener"))}
}

// Start binds the configured port and serves until ctx is cancelled
// or Stop is called.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("workstation server: already running")
	}
	l.mu.Unlock()

	handler := NewHandler(l.hub, l.log)
	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.HandleConnection)

	addr := fmt.Sprintf(":%d", l.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("workstation server: listen on %s: %w", addr, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		l.cfg.Port = tcpAddr.Port
	}

	l.httpServer = &http.Server{Handler: mux}

	ready := make(chan struct{})
	go func() {
		l.mu.Lock()
		l.running = true
		l.mu.Unlock()
		close(ready)

		l.log.Info("workstation control surface listening", zap.Int("port", l.cfg.Port))
		if err := l.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			l.log.Error("workstation server error", zap.Error(err))
		}

		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully shuts down the listener.
func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if !running || l.httpServer == nil {
		return nil
	}
	return l.httpServer.Shutdown(ctx)
}
