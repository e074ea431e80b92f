// Command api runs only the HTTP API, configured from VOTE_* environment
// variables and an optional .env file.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vote-ledger/cli"
	"vote-ledger/config"
	"vote-ledger/logger"
)

func main() {
	log := logger.New(logger.Config{Console: true})
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("failed to load .env")
	}

	cfg := config.Load()
	log = logger.New(logger.Config{Debug: cfg.Debug, Console: true})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Debug().Msg(cfg.DebugString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize voting service")
	}
	defer app.Close()

	if err := cli.Serve(ctx, app); err != nil {
		log.Error().Err(err).Msg("server stopped")
		app.Close()
		os.Exit(1)
	}
	log.Info().Msg("server shutdown completed")
}
