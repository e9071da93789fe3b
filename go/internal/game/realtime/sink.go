// Package realtime delivers server notifications to a session controller.
// Three feeds are available: a NATS broker feed, a Postgres LISTEN/NOTIFY feed
// and a websocket gateway feed. All of them hand decoded envelopes to a Sink
// and ask it to resynchronise after a dropped connection.
package realtime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
)

// Sink consumes realtime events for one session.
type Sink interface {
	HandleEvent(ctx context.Context, event events.SessionEvent) error
	HandleReconnect(ctx context.Context)
}

// Feed is a running source of session events.
type Feed interface {
	Start(ctx context.Context) error
	Stop() error
	IsConnected() bool
}

// deliver decodes raw and forwards it to sink if it belongs to sessionID.
// Events for other sessions are dropped without error.
func deliver(ctx context.Context, sink Sink, sessionID string, raw []byte) error {
	event, err := events.Decode(raw)
	if err != nil {
		return err
	}
	if sessionID != "" && event.SessionID != sessionID {
		log.Debug().
			Str("session_id", sessionID).
			Str("event_session_id", event.SessionID).
			Str("event_type", string(event.Type)).
			Msg("dropping event for another session")
		return nil
	}

	if err := sink.HandleEvent(ctx, event); err != nil {
		return fmt.Errorf("handle %s event %s: %w", event.Type, event.ID, err)
	}
	return nil
}

// signal does a non-blocking send so callbacks from client libraries never
// stall on a busy feed loop.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
