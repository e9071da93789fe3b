package main

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/config"
	"github.com/mcdev12/doodleduel/go/internal/game/statusapi"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	server := statusapi.NewServer(services.Controller, statusapi.Options{
		Addr:           cfg.Status.Addr,
		AllowedOrigins: cfg.Status.AllowedOrigins,
		Metrics:        services.Metrics,
		Feed:           services.Feed,
	})

	go func() {
		log.Info().Str("addr", server.Addr).Msg("status server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("status server failed")
		}
	}()
	return server
}
