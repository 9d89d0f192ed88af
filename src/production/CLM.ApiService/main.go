package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	container "gitlab.com/maplesense1/climate_monitor/src/production/CLM.Container"
)

func main() {
	// Initialize dependency injection container
	ctr, err := container.NewContainer()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}

	logger := ctr.GetLogger()
	config := ctr.GetConfig()
	logger.Logger.Info().Str("environment", config.Environment).Str("store", config.Database.Driver).Msg("Starting Climate Monitor API")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()

	if err := ctr.InitializeServices(initCtx); err != nil {
		logger.FatalWithError(err, "Failed to initialize services")
	}

	repo, _ := ctr.GetRepository(initCtx)
	devices, err := repo.DistinctDevices(initCtx)
	if err != nil {
		logger.ErrorWithError(err, "Failed to list known devices")
	}
	readings, err := repo.Count(initCtx, "")
	if err != nil {
		logger.ErrorWithError(err, "Failed to count stored readings")
	}
	logger.Logger.Info().Int("devices", len(devices)).Int64("readings", readings).Msg("Store ready")

	if err := ctr.StartMQTTIngestor(ctx); err != nil {
		logger.FatalWithError(err, "Failed to start MQTT ingestor")
	}

	srv := &http.Server{
		Addr:         "0.0.0.0:" + config.Server.Port,
		Handler:      ctr.Router(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Logger.Info().
			Str("port", config.Server.Port).
			Str("health", "/health").
			Str("metrics", "/metrics").
			Str("api", "/api/sensor-data").
			Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	logger.Logger.Info().Str("signal", received.String()).Msg("Shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "Server forced to shutdown")
	}
	// drains queued MQTT messages before the root context is cancelled
	_ = ctr.Shutdown(shutdownCtx)
	cancel()
}
