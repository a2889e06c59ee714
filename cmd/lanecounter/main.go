package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lanecount-worker-go/internal/api"
	"lanecount-worker-go/internal/config"
	"lanecount-worker-go/internal/logging"
	"lanecount-worker-go/internal/services"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	console := zerolog.ConsoleWriter{Out: os.Stderr}
	log.Logger = log.Output(console)

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogdyEnabled {
		if w, _, err := logging.StartLogdy(cfg); err != nil {
			log.Warn().Err(err).Msg("Logdy disabled")
		} else {
			log.Logger = log.Output(zerolog.MultiLevelWriter(console, w))
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("source_id", cfg.SourceID).
		Int("port", cfg.Port).
		Int("grpc_port", cfg.GRPCPort).
		Ints("lane_boundaries", cfg.LaneBoundaries).
		Int("crossing_line_x", cfg.CrossingLineX).
		Msg("Starting lane counter")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	deps := api.Dependencies{
		Counter:  container.Orchestrator,
		Status:   container.Worker,
		Streamer: container.Publisher,
		Source:   container.Capture,
	}
	if container.Journal != nil {
		deps.History = container.Journal
	}
	if container.Messaging != nil {
		deps.Broker = container.Messaging
	}
	server, err := api.NewServer(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Start servers in goroutines
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	go func() {
		if err := container.Health.Start(); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The frame loop returns on a signal, an exhausted file or a quit key
	if err := container.Worker.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Frame loop failed")
	}
	if ctx.Err() != nil {
		log.Info().Msg("Shutdown signal received")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	counts := container.Orchestrator.Counts()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Services forced to shutdown")
	}

	log.Info().
		Int64("westbound", counts.Westbound).
		Int64("eastbound", counts.Eastbound).
		Int64("total", counts.Total).
		Msg("Lane counter stopped")
}
