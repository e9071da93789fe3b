package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/doodleduel/go/internal/game/config"
	"github.com/mcdev12/doodleduel/go/internal/game/controller"
	"github.com/mcdev12/doodleduel/go/internal/game/realtime"
	"github.com/mcdev12/doodleduel/go/internal/game/snapshot"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
	"github.com/mcdev12/doodleduel/go/internal/game/transport"
)

type Services struct {
	Controller *controller.Controller
	Metrics    *controller.CountingMetrics
	Feed       realtime.Feed
}

// setupServices wires transport → metrics → controller → realtime feed.
// database is nil unless the config needs it.
func setupServices(cfg config.Config, database *sql.DB) (*Services, error) {
	clock := clockwork.NewRealClock()
	metrics := controller.NewCountingMetrics()

	var svc transport.Service = transport.NewConnectService(
		transport.NewH2CClient(cfg.Service.Timeout),
		cfg.Service.BaseURL,
	)
	if cfg.Service.Source == config.SnapshotFromDatabase {
		svc = transport.WithSnapshotSource(svc, snapshot.NewRepository(database))
	}
	svc = controller.NewMetricService(svc, metrics, clock)

	// The controller is the feed's sink and the feed is the controller's
	// broadcaster, so the sink is bound after construction.
	sink := &lateSink{}
	feed, broadcaster, err := setupFeed(cfg, sink)
	if err != nil {
		return nil, err
	}

	opts := []controller.Option{
		controller.WithClock(clock),
		controller.WithMetrics(metrics),
		controller.WithAutoSubmit(autoSubmit(cfg.Session.UserID)),
	}
	if broadcaster != nil {
		opts = append(opts, controller.WithBroadcaster(broadcaster))
	}
	ctrl := controller.New(cfg.Controller(), svc, opts...)
	sink.Sink = ctrl

	return &Services{
		Controller: ctrl,
		Metrics:    metrics,
		Feed:       feed,
	}, nil
}

func setupFeed(cfg config.Config, sink realtime.Sink) (realtime.Feed, timer.Broadcaster, error) {
	switch cfg.Realtime.Feed {
	case config.FeedNATS:
		natsCfg := realtime.DefaultNATSConfig()
		natsCfg.URL = cfg.Realtime.NATS.URL
		natsCfg.StreamName = cfg.Realtime.NATS.Stream
		natsCfg.SubjectPrefix = cfg.Realtime.NATS.SubjectPrefix
		natsCfg.SessionID = cfg.Session.ID
		natsCfg.UserID = cfg.Session.UserID
		feed, err := realtime.NewNATSFeed(sink, natsCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up NATS feed: %w", err)
		}
		return feed, feed, nil

	case config.FeedPostgres:
		pgCfg := realtime.DefaultPGListenerConfig()
		pgCfg.DatabaseURL = cfg.Database.DSN()
		pgCfg.NotifyChannel = cfg.Realtime.Postgres.Channel
		pgCfg.SessionID = cfg.Session.ID
		feed, err := realtime.NewPGListener(sink, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to set up postgres listener: %w", err)
		}
		return feed, nil, nil

	case config.FeedWebSocket:
		wsCfg := realtime.DefaultWSConfig()
		wsCfg.URL = cfg.Realtime.WebSocket.URL
		wsCfg.SessionID = cfg.Session.ID
		return realtime.NewWSFeed(sink, wsCfg), nil, nil

	default:
		return nil, nil, nil
	}
}

// lateSink forwards to a Sink assigned after the feed is built.
type lateSink struct {
	realtime.Sink
}

// autoSubmit hands in a placeholder drawing when the timer runs out.
func autoSubmit(userID string) controller.AutoSubmitFunc {
	return func(ctx context.Context) (transport.Drawing, error) {
		return transport.Drawing{
			Ref:      fmt.Sprintf("auto://%s/%s", userID, uuid.NewString()),
			Metadata: []byte(`{"auto_submitted":true}`),
		}, nil
	}
}
