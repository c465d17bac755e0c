// Package main is the entry point for the workstation process: the
// local agent runtime that drives one AI backend per conversation and
// optionally exposes a local control surface and embedded MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relaymesh/relaymesh/internal/obs/config"
	"github.com/relaymesh/relaymesh/internal/obs/logger"
	"github.com/relaymesh/relaymesh/internal/persistence"
	"github.com/relaymesh/relaymesh/internal/workstation/adapter"
	"github.com/relaymesh/relaymesh/internal/workstation/mcp"
	wsserver "github.com/relaymesh/relaymesh/internal/workstation/server"
	"github.com/relaymesh/relaymesh/internal/workstation/store"
	"github.com/relaymesh/relaymesh/internal/workstation/toolmap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "workstation: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPath: cfg.Logging.OutputPath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "workstation: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("starting workstation", zap.Int("pylonId", cfg.Workstation.PylonID))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persist, closePersist, err := persistence.Provide(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize persistence", zap.Error(err))
	}
	defer closePersist()

	st := restoreOrNewStore(ctx, persist, log)

	adapterCmd := os.Getenv("RELAYMESH_ADAPTER_CMD")
	if adapterCmd == "" {
		adapterCmd = "claude"
	}
	ad := adapter.NewCLIAdapter(adapterCmd, []string{"--output-format", "stream-json"}, log)

	tools := toolmap.New(cfg.Workstation.ToolContextMaxAge())
	tools.StartCleanup(cfg.Workstation.ToolContextMaxAge())
	defer tools.Stop()

	var (
		stopMCP         func() error
		stopLocalServer func() error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, cleanup, err := mcp.Provide(gctx, mcp.Config{Port: cfg.MCP.Port()}, st, log)
		if err != nil {
			return fmt.Errorf("start embedded mcp server: %w", err)
		}
		stopMCP = cleanup
		return nil
	})
	if cfg.Workstation.LocalWSEnabled {
		g.Go(func() error {
			listenCfg := wsserver.Config{Port: cfg.Workstation.LocalWSPort}
			_, cleanup, err := wsserver.Provide(gctx, listenCfg, st, ad, tools, persist, log)
			if err != nil {
				return fmt.Errorf("start local control surface: %w", err)
			}
			stopLocalServer = cleanup
			log.Info("local control surface listening", zap.Int("port", listenCfg.Port))
			return nil
		})
	} else {
		log.Info("local control surface disabled")
	}
	if err := g.Wait(); err != nil {
		log.Fatal("failed to start workstation listeners", zap.Error(err))
	}
	defer func() {
		if stopMCP != nil {
			if err := stopMCP(); err != nil {
				log.Error("mcp server stop error", zap.Error(err))
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down workstation")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if stopLocalServer != nil {
		if err := stopLocalServer(); err != nil {
			log.Error("local control surface stop error", zap.Error(err))
		}
	}

	if err := persist.SaveWorkspaceStore(shutdownCtx, st.Snapshot()); err != nil {
		log.Error("failed to persist workspace store on shutdown", zap.Error(err))
	}

	log.Info("workstation stopped")
}

func restoreOrNewStore(ctx context.Context, persist *persistence.Persistence, log *logger.Logger) *store.Store {
	var snap store.Snapshot
	found, err := persist.LoadWorkspaceStore(ctx, &snap)
	if err != nil {
		log.Warn("failed to load persisted workspace store, starting empty", zap.Error(err))
		return store.New()
	}
	if !found {
		log.Info("no persisted workspace store found, starting empty")
		return store.New()
	}
	log.Info("restored workspace store", zap.Int("workspaces", len(snap.Workspaces)))
	return store.Restore(snap)
}
