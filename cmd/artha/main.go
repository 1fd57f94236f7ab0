package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avatar25/ArthaOS/internal/config"
	"github.com/avatar25/ArthaOS/internal/engine"
	apphttp "github.com/avatar25/ArthaOS/internal/http"
	"github.com/avatar25/ArthaOS/internal/log"
	"github.com/avatar25/ArthaOS/internal/vault"
)

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting artha vault")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := vault.NewFileKeyProvider(cfg.KeyPath)
	eng, err := engine.Bootstrap(ctx, engine.BootstrapConfig{
		DBPath:  cfg.DBPath,
		Workers: cfg.WorkerPoolSize,
	}, keys, logger)
	if err != nil {
		logger.Error("Failed to open vault", log.FieldError, err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer eng.Close()

	srv := apphttp.NewServer(":"+cfg.Port, eng, logger.WithComponent(log.ComponentHTTP))
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Serving caller surface", "port", cfg.Port, "workers", cfg.WorkerPoolSize)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
