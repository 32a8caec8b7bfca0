package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"sentinel/config"
	"sentinel/internals/app"
	"sentinel/internals/server"
	"sentinel/pkg/logger"
)

func main() {
	cfgPath := os.Getenv("SENTINEL_CONFIG")
	if cfgPath == "" {
		cfgPath = "env.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	// Done channel of this ctx closes on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Init(cfg)
	log.Info().Str("config", cfgPath).Msg("logger initialized")

	// the pipeline runs under its own context so the HTTP server can stop
	// accepting requests before the workers drain
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	log.Info().Msg("dependencies initialized")

	if err := container.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start check pipeline")
	}
	log.Info().Msg("check pipeline started")

	router := app.RegisterRoutes(container)
	log.Info().Msg("routes registered")

	srv := server.New(fmt.Sprintf(":%d", cfg.Port), router, log)
	srv.Start()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	// 1. stop accepting requests
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// 2. stop the pipeline and drain it
	cancelRun()

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := container.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("dependencies shutdown failed")
	}

	log.Info().Msg("graceful shutdown complete")
}
