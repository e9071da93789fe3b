package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// loadConfig reads -config (or CLIENT_CONFIG) and sets up logging from it.
func loadConfig() (config.Config, error) {
	path := flag.String("config", getEnv("CLIENT_CONFIG", ""), "path to the client YAML config")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, err
	}

	zerolog.SetGlobalLevel(cfg.Level())
	log.Info().
		Str("config", *path).
		Str("level", cfg.Level().String()).
		Msg("configuration loaded")
	return cfg, nil
}
