package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type PGListenerConfig struct {
	DatabaseURL          string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel        string // Channel name to LISTEN on
	SessionID            string
	PingInterval         time.Duration
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

func DefaultPGListenerConfig() PGListenerConfig {
	return PGListenerConfig{
		NotifyChannel:        "doodle_session_events",
		PingInterval:         90 * time.Second,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
	}
}

// PGListener receives session events from Postgres NOTIFY. The notification
// payload is a JSON SessionEvent produced by a row trigger.
type PGListener struct {
	listener *pq.Listener
	sink     Sink
	cfg      PGListenerConfig

	reconnected chan struct{}
	connected   atomic.Bool
	stopOnce    sync.Once
	stopErr     error
}

func NewPGListener(sink Sink, cfg PGListenerConfig) (*PGListener, error) {
	pl := &PGListener{
		sink:        sink,
		cfg:         cfg,
		reconnected: make(chan struct{}, 1),
	}

	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnectInterval,
		cfg.MaxReconnectInterval,
		pl.handleListenerEvent,
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}
	pl.listener = l
	pl.connected.Store(true)

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Str("session_id", cfg.SessionID).
		Msg("listening for session notifications")

	return pl, nil
}

func (l *PGListener) handleListenerEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		log.Error().Err(err).Msg("listener event")
	}
	switch ev {
	case pq.ListenerEventConnected:
		l.connected.Store(true)
	case pq.ListenerEventReconnected:
		l.connected.Store(true)
		log.Info().Str("channel", l.cfg.NotifyChannel).Msg("listener reconnected")
		signal(l.reconnected)
	case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
		l.connected.Store(false)
	}
}

// IsConnected reports whether the LISTEN connection is up.
func (l *PGListener) IsConnected() bool {
	return l.connected.Load()
}

func (l *PGListener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Msg("listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was lost; the reconnected event triggers a refresh
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-l.reconnected:
			l.sink.HandleReconnect(ctx)
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// Stop closes the listener. Later calls return the first result.
func (l *PGListener) Stop() error {
	l.stopOnce.Do(func() {
		l.stopErr = l.listener.Close()
	})
	return l.stopErr
}

// handleNotification handles a pg listen notification. Extra is the payload on the note.
func (l *PGListener) handleNotification(ctx context.Context, extra string) error {
	if extra == "" {
		return fmt.Errorf("empty notification on %s", l.cfg.NotifyChannel)
	}
	return deliver(ctx, l.sink, l.cfg.SessionID, []byte(extra))
}
