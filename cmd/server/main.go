package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/OpenInstrumentCore/internal/config"
	"github.com/KevinKickass/OpenInstrumentCore/internal/session"
	"github.com/KevinKickass/OpenInstrumentCore/internal/storage"
	"github.com/KevinKickass/OpenInstrumentCore/internal/system"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit"
	"github.com/KevinKickass/OpenInstrumentCore/internal/toolkit/sim"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	ctx := context.Background()

	tk, err := openToolkit(cfg.Toolkit, logger)
	if err != nil {
		logger.Fatal("Failed to open toolkit session", zap.Error(err))
	}

	sess := session.New(tk, session.Options{
		Blacklist: cfg.Toolkit.Blacklist,
		Logger:    logger,
	})

	var db *storage.PostgresClient
	if cfg.Database.Enabled {
		db, err = storage.NewPostgresClient(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		logger.Info("Database connected successfully")
	}

	lifecycle := system.NewLifecycleManager(sess, db, cfg, logger)

	if err := lifecycle.Start(ctx); err != nil {
		logger.Error("Failed to start system", zap.Error(err))
		if serr := lifecycle.Shutdown(ctx); serr != nil {
			logger.Error("Shutdown failed", zap.Error(serr))
		}
		os.Exit(1)
	}

	logger.Info("OpenInstrumentCore started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-lifecycle.Done():
		// shut down through the API
		logger.Info("OpenInstrumentCore stopped")
		return
	}

	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("OpenInstrumentCore stopped successfully")
}

func openToolkit(cfg config.ToolkitConfig, logger *zap.Logger) (toolkit.Session, error) {
	switch cfg.Backend {
	case "", "sim":
		tk, err := sim.NewSession(sim.NewDescriptorLoader(cfg.SearchPaths), logger)
		if err != nil {
			return nil, err
		}
		return tk, nil
	default:
		return nil, fmt.Errorf("unknown toolkit backend %q", cfg.Backend)
	}
}
