// Package main is the entry point for the beacon process: the
// process-local TCP lookup service pylons and workstations query to
// resolve tool-use ids and reachability.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/relaymesh/relaymesh/internal/beacon"
	"github.com/relaymesh/relaymesh/internal/events"
	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "beacon: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting beacon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ad adapter.ClaudeAdapter
	if cmd := os.Getenv("RELAYMESH_BEACON_ADAPTER_CMD"); cmd != "" {
		ad = adapter.NewCLIAdapter(cmd, nil, log)
		log.Info("beacon query support enabled", zap.String("adapterCmd", cmd))
	} else {
		log.Info("beacon query support disabled (RELAYMESH_BEACON_ADAPTER_CMD unset)")
	}

	evBus, closeEvents, err := events.Provide(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize event bus", zap.Error(err))
	}
	defer closeEvents()

	registry := beacon.NewRegistry()
	registry.SetPresenceBus(evBus.Bus)

	beaconCfg := beacon.Config{Port: cfg.Beacon.Port}
	srv, stop, err := beacon.Provide(ctx, beaconCfg, registry, ad, log)
	if err != nil {
		log.Fatal("failed to start beacon server", zap.Error(err))
	}
	_ = srv
	log.Info("beacon listening", zap.Int("port", beaconCfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down beacon")
	cancel()

	shutdownDone := make(chan struct{})
	go func() {
		if err := stop(); err != nil {
			log.Error("beacon stop error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
	case <-time.After(10 * time.Second):
		log.Warn("beacon shutdown timed out")
	}

	log.Info("beacon stopped")
}
