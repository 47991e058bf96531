// Package main provides the API server entry point for the account safety service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/account-safety/internal/api"
	"github.com/account-safety/internal/config"
	"github.com/account-safety/internal/logging"
	"github.com/account-safety/internal/rotation"
	"github.com/account-safety/internal/safety"
	"github.com/account-safety/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Connect to Postgres
	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// Connect to Redis
	redisStore, err := storage.NewRedisStore(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisStore.Close()

	logger.Info("Database connections established")

	// Initialize repositories
	profileRepo := storage.NewProfileRepository(postgres)
	variationRepo := storage.NewVariationRepository(postgres)

	// Usage ledger over Redis
	ledger, err := safety.NewUsageLedger(&safety.UsageLedgerConfig{
		Redis: redisStore.Client(),
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create usage ledger")
	}

	controller, err := safety.NewController(&safety.ControllerConfig{
		Profiles: profileRepo,
		Ledger:   ledger,
		Safety:   safety.LoadFromEnv(),
		Logger:   logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create safety controller")
	}

	rotator, err := rotation.NewRotator(&rotation.RotatorConfig{
		Store:  variationRepo,
		Logger: logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create message rotator")
	}

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RateLimitRPS:    cfg.RateLimit.DefaultRPS,
		RateLimitBurst:  cfg.RateLimit.BurstSize,
	}

	server := api.NewServer(serverConfig, controller, rotator, postgres, logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
