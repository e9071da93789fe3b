package controller

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/events"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
)

// HandleEvent applies a realtime notification. Row changes update the mirror
// of the server record and are reconciled into the local state; timer syncs
// correct the countdown. Events for other sessions are ignored.
func (c *Controller) HandleEvent(_ context.Context, event events.SessionEvent) error {
	if event.SessionID != c.cfg.SessionID {
		return nil
	}

	payload, err := events.ParseEventPayload(event)
	if err != nil {
		return fmt.Errorf("failed to parse %s event %s: %w", event.Type, event.ID, err)
	}

	log.Debug().
		Str("session_id", event.SessionID).
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Msg("handling session event")

	switch p := payload.(type) {
	case events.TimerSyncPayload:
		c.timer.ApplySync(p)
		return nil

	case events.ParticipantChangedPayload:
		c.reconcile(func(server *state.Snapshot) {
			if p.Op == events.OpDelete {
				server.RemoveParticipant(p.Record.ID)
				return
			}
			server.UpsertParticipant(p.Record)
		})

	case events.SubmissionChangedPayload:
		c.reconcile(func(server *state.Snapshot) {
			if p.Op == events.OpDelete {
				server.RemoveSubmission(p.Record.ID)
				return
			}
			server.UpsertSubmission(p.Record)
		})

	case events.VoteChangedPayload:
		c.reconcile(func(server *state.Snapshot) {
			if p.Op == events.OpDelete {
				server.RemoveVote(p.Record.ID)
				return
			}
			server.UpsertVote(p.Record)
		})

	case events.SessionChangedPayload:
		if p.Op == events.OpDelete {
			log.Warn().Str("session_id", event.SessionID).Msg("session deleted on server")
			return nil
		}
		c.reconcile(func(server *state.Snapshot) {
			server.WithSession(p.Record)
		})
	}

	return nil
}
