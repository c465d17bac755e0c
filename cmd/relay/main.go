// Package main is the entry point for the relay process: the central
// WebSocket router pylons, workstations, and viewers connect to.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/events"
	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/persistence"
	"github.com/relaymesh/relaymesh/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "relay: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting relay")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := persistence.Provide(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize persistence", zap.Error(err))
	}
	defer closeStore()

	devicesPath := os.Getenv("RELAYMESH_DEVICES_FILE")
	if devicesPath == "" {
		devicesPath = "./devices.yaml"
	}
	devices, err := relay.LoadDevicesFile(devicesPath)
	if err != nil {
		log.Warn("no devices table loaded, pylon auth will reject every deviceId", zap.String("path", devicesPath), zap.Error(err))
		devices = relay.Devices{}
	} else {
		log.Info("devices table loaded", zap.String("path", devicesPath), zap.Int("count", len(devices)))
	}

	shares := newShareValidator(ctx, store, log)

	srv := relay.NewServer(devices, cfg.Relay.ClientIndexPoolSize, shares, log)

	evBus, closeEvents, err := events.Provide(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize event bus", zap.Error(err))
	}
	defer closeEvents()
	srv.SetPresenceBus(evBus.Bus)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.HandleWS)
	mux.HandleFunc("/healthz", srv.HandleHealth)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Relay.Host, cfg.Relay.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Relay.ReadTimeoutDuration(),
		WriteTimeout: cfg.Relay.WriteTimeoutDuration(),
	}

	go func() {
		log.Info("relay listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("relay server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down relay")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("relay http shutdown error", zap.Error(err))
	}

	log.Info("relay stopped")
}

// newShareValidator builds a ShareValidator backed by the persisted
// share store, loaded once at startup. A share created after startup
// requires a relay restart to become resolvable; dynamic reload is
// not implemented.
func newShareValidator(ctx context.Context, store *persistence.Persistence, log *logger.Logger) relay.ShareValidator {
	shares := make(map[string]string)
	if _, err := store.LoadShareStore(ctx, &shares); err != nil {
		log.Warn("failed to load share store, viewer auth will reject every shareId", zap.Error(err))
		shares = map[string]string{}
	}
	return func(shareID string) (string, bool) {
		conversationID, ok := shares[shareID]
		return conversationID, ok
	}
}
