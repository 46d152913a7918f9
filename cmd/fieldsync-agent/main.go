package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/agent"
	"github.com/hvackit/fieldsync/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadAgent()

	log := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", "fieldsync-agent").
		Logger()
	if cfg.Primary.Env == "development" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := agent.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("agent startup failed")
	}

	log.Info().Str("port", cfg.Agent.Port).Msg("agent started")
	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("agent exited")
		os.Exit(1)
	}
}
