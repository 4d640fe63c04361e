package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/config"
	"github.com/aegisshield/biometric-engine/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger, err := cfg.InitLogger()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting Biometric Engine Service",
		zap.String("environment", cfg.Environment),
		zap.Bool("debug", cfg.Debug))

	// Initialize server
	srv := server.New(cfg, logger)
	if err := srv.Initialize(); err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}

	// Start server
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("Shutdown signal received")

	// Graceful shutdown
	if err := srv.Stop(); err != nil {
		logger.Error("Failed to stop server gracefully", zap.Error(err))
	}

	logger.Info("Biometric Engine Service stopped")
}
