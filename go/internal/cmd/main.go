package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/config"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var database *sql.DB
	if cfg.Service.Source == config.SnapshotFromDatabase {
		database, err = setupDatabase(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close()
	}

	services, err := setupServices(cfg, database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	log.Info().
		Str("session_id", cfg.Session.ID).
		Str("user_id", cfg.Session.UserID).
		Str("service_url", cfg.Service.BaseURL).
		Str("feed", string(cfg.Realtime.Feed)).
		Msg("starting session client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl := services.Controller
	if err := ctrl.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start session controller")
	}
	defer ctrl.Close()

	if cfg.Session.AutoJoin {
		if _, ok := ctrl.State().Participant(cfg.Session.UserID); !ok {
			if err := ctrl.Join(ctx); err != nil {
				log.Error().Err(err).Msg("failed to join session")
			}
		}
	}

	if services.Feed != nil {
		go func() {
			if err := services.Feed.Start(ctx); err != nil {
				log.Error().Err(err).Msg("realtime feed failed")
			}
		}()
	}

	server := setupServer(cfg, services)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}

	cancel()
	if services.Feed != nil {
		if err := services.Feed.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop realtime feed")
		}
	}

	log.Info().Msg("session client shutdown complete")
}
