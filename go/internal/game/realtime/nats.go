package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
)

// NATSConfig holds configuration for the NATS feed.
type NATSConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectPrefix string // e.g. "doodle.sessions"
	SessionID     string
	UserID        string // scopes the default consumer to one player
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS feed configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DOODLE_EVENTS",
		SubjectPrefix: "doodle.sessions",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Consumer returns the durable consumer name. Every player of a session
// needs its own consumer so each client receives every row change.
func (c NATSConfig) Consumer() string {
	if c.ConsumerName != "" {
		return c.ConsumerName
	}
	return fmt.Sprintf("doodle-client-%s-%s", c.SessionID, c.UserID)
}

// RowSubject is the JetStream subject row changes for a session are
// published on.
func (c NATSConfig) RowSubject(sessionID string, eventType events.EventType) string {
	return fmt.Sprintf("%s.%s.rows.%s", c.SubjectPrefix, sessionID, eventType)
}

// RowFilter matches every row change for a session.
func (c NATSConfig) RowFilter(sessionID string) string {
	return fmt.Sprintf("%s.%s.rows.>", c.SubjectPrefix, sessionID)
}

// TimerSubject is the core NATS subject peers broadcast countdowns on.
func (c NATSConfig) TimerSubject(sessionID string) string {
	return fmt.Sprintf("%s.%s.timer", c.SubjectPrefix, sessionID)
}

// NATSFeed consumes row changes from a durable JetStream consumer and timer
// syncs from a plain subscription. It also publishes the local countdown, so
// it doubles as the timer engine's broadcaster.
type NATSFeed struct {
	sink     Sink
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   NATSConfig

	reconnected chan struct{}
}

// NewNATSFeed connects to NATS and prepares the consumer for cfg.SessionID.
func NewNATSFeed(sink Sink, config NATSConfig) (*NATSFeed, error) {
	if config.SessionID == "" {
		return nil, errors.New("nats feed requires a session id")
	}
	if config.ConsumerName == "" && config.UserID == "" {
		return nil, errors.New("nats feed requires a user id or consumer name")
	}
	config.ConsumerName = config.Consumer()

	f := &NATSFeed{
		sink:        sink,
		config:      config,
		reconnected: make(chan struct{}, 1),
	}

	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
			signal(f.reconnected)
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	f.nc = nc
	f.js = js

	if err := f.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return f, nil
}

// ensureConsumer creates or gets the JetStream consumer
func (f *NATSFeed) ensureConsumer(ctx context.Context) error {
	stream, err := f.js.Stream(ctx, f.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          f.config.ConsumerName,
		Durable:       f.config.ConsumerName,
		Description:   "Doodle session client row-change consumer",
		FilterSubject: f.config.RowFilter(f.config.SessionID),
		DeliverPolicy: jetstream.DeliverLastPerSubjectPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    f.config.MaxDeliver,
		AckWait:       f.config.AckWait,
		MaxAckPending: f.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, f.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", f.config.ConsumerName).
			Str("stream", f.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", f.config.ConsumerName).
			Str("stream", f.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	f.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (f *NATSFeed) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", f.config.ConsumerName).
		Str("stream", f.config.StreamName).
		Str("session_id", f.config.SessionID).
		Msg("starting NATS session feed")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := f.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	timerCh := make(chan *nats.Msg, 64)
	sub, err := f.nc.ChanSubscribe(f.config.TimerSubject(f.config.SessionID), timerCh)
	if err != nil {
		return fmt.Errorf("subscribe to timer syncs: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("NATS session feed shutting down")
			return nil

		case msg := <-messageCh:
			if err := f.processMessage(ctx, msg.Subject(), msg.Data()); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
			} else if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}

		case msg := <-timerCh:
			// Timer syncs are superseded by the next one, so failures are only logged.
			if err := f.processMessage(ctx, msg.Subject, msg.Data); err != nil {
				log.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to process timer sync")
			}

		case <-f.reconnected:
			f.sink.HandleReconnect(ctx)
		}
	}
}

func (f *NATSFeed) processMessage(ctx context.Context, subject string, data []byte) error {
	log.Debug().
		Str("subject", subject).
		Str("session_id", f.config.SessionID).
		Msg("processing session event")
	return deliver(ctx, f.sink, f.config.SessionID, data)
}

// IsConnected reports whether the NATS connection is up.
func (f *NATSFeed) IsConnected() bool {
	return f.nc != nil && f.nc.IsConnected()
}

// BroadcastTimer publishes the local countdown to peers.
func (f *NATSFeed) BroadcastTimer(ctx context.Context, payload events.TimerSyncPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeTimerSync(payload)
	if err != nil {
		return err
	}
	if err := f.nc.Publish(f.config.TimerSubject(payload.SessionID), data); err != nil {
		return fmt.Errorf("publish timer sync: %w", err)
	}
	return nil
}

// Stop closes the NATS connection.
func (f *NATSFeed) Stop() error {
	log.Info().Msg("stopping NATS session feed")

	if f.nc != nil {
		f.nc.Close()
	}
	return nil
}

func encodeTimerSync(payload events.TimerSyncPayload) ([]byte, error) {
	event, err := events.NewEvent(payload.SessionID, events.EventTypeTimerSync, payload, payload.SentAt)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal timer sync: %w", err)
	}
	return data, nil
}
