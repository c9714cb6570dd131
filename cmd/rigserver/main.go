// Package main is the entry point for the rig inspection server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/creaturerig/internal/assets"
	"github.com/Faultbox/creaturerig/internal/config"
	"github.com/Faultbox/creaturerig/internal/inspect"
	"github.com/Faultbox/creaturerig/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== creaturerig server ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	dir, _ := filepath.Abs(cfg.Assets.Dir)
	m := assets.NewDirManager(cfg.Assets.Dir, logger.For("assets"))
	defer m.Close()

	cat, err := m.LoadCatalog(cfg.Assets)
	if err != nil {
		logger.Error("failed to load assets", zap.String("dir", dir), zap.Error(err))
		os.Exit(1)
	}

	srv, err := inspect.NewServer(*cfg, cat, logger.For("inspect"))
	if err != nil {
		logger.Error("failed to create server", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.Run(ctx)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
