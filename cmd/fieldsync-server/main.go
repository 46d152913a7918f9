package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/config"
	"github.com/hvackit/fieldsync/internal/database"
	"github.com/hvackit/fieldsync/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadServer()

	log := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "fieldsync-server").
		Logger()
	if cfg.Primary.Env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database startup failed")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}

	srv, err := server.New(cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("server startup failed")
	}

	log.Info().Str("port", cfg.Server.Port).Msg("server started")
	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
