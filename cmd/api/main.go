package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planmatch-backend/internal/api"
	"planmatch-backend/internal/application/matching"
	"planmatch-backend/internal/infrastructure/config"
	"planmatch-backend/internal/infrastructure/logging"
	"planmatch-backend/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)

	loggingCfg := cfg.Observability.Logging
	if *verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	if err := run(cfg, *port, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, portOverride int, logger *slog.Logger) error {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	service := matching.NewService(store, store, matching.Config{
		ScanLimit:           cfg.Matching.ScanLimit,
		LookbackDays:        cfg.Matching.LookbackDays,
		WindowPadDays:       cfg.Matching.WindowPadDays,
		AutoMatchWindowDays: cfg.Matching.AutoMatchWindowDays,
	}, logger.With("system", "matching"))

	apiCfg := api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
	if portOverride != 0 {
		apiCfg.Port = portOverride
	}

	server := api.NewServer(apiCfg, service, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
