package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stkw0/lms/internal/catalog"
	"github.com/stkw0/lms/internal/config"
	"github.com/stkw0/lms/internal/database"
	"github.com/stkw0/lms/internal/events"
	"github.com/stkw0/lms/internal/logger"
	"github.com/stkw0/lms/internal/metadata"
	"github.com/stkw0/lms/internal/scanner"
	"github.com/stkw0/lms/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("LMS_CONFIG"), "path to configuration file")
	flag.Parse()

	if err := config.Load(*configPath); err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}
	cfg := config.Get()
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	if err := database.Initialize(&cfg.Database); err != nil {
		logger.Error("failed to initialize database: %v", err)
		os.Exit(1)
	}

	bus := events.NewEventBus(events.DefaultEventBusConfig())
	if err := bus.Start(); err != nil {
		logger.Error("failed to start event bus: %v", err)
		os.Exit(1)
	}
	events.SetGlobalEventBus(bus)

	store := catalog.NewStore(database.GetDB())

	parser, err := metadata.NewParser(cfg.Scanner.TagParser)
	if err != nil {
		logger.Error("failed to select tag parser: %v", err)
		os.Exit(1)
	}

	service := scanner.NewService(store, bus, parser)
	service.Start()

	var watcher *scanner.Watcher
	if cfg.Scanner.WatchLibraries {
		watcher = scanner.NewWatcher(store, service, cfg.Scanner.WatchDebounce)
		if err := watcher.Start(); err != nil {
			logger.Warn("failed to start library watcher: %v", err)
			watcher = nil
		}
	}

	srv := server.New(cfg, store, service, bus)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	bus.PublishAsync(events.NewSystemEvent(events.EventSystemStarted, "Started", "lms backend started"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("received signal %s, shutting down", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("http server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http server shutdown error: %v", err)
	}

	if watcher != nil {
		watcher.Stop()
	}
	service.Stop()

	bus.PublishAsync(events.NewSystemEvent(events.EventSystemStopped, "Stopped", "lms backend stopped"))
	if err := bus.Stop(); err != nil {
		logger.Warn("event bus shutdown error: %v", err)
	}
	logger.Info("shutdown complete")
}
