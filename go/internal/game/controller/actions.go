package controller

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/phase"
	"github.com/mcdev12/doodleduel/go/internal/game/players"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/transport"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Join adds the current user to the session.
func (c *Controller) Join(ctx context.Context) error {
	return c.optimistic(ctx, "join", state.UpdateJoin,
		func(s state.SessionState) (state.Delta, error) {
			if !phase.CanPlayerPerformAction(phase.ActionJoin, s.Phase(), c.currentStatus(s)) {
				return nil, notAllowed("join", "session already started")
			}
			if p, ok := s.CurrentParticipant(); ok && p.Active() {
				return nil, ErrAlreadyJoined
			}

			list := slices.DeleteFunc(slices.Clone(s.Participants), func(p models.Participant) bool {
				return p.UserID == c.cfg.UserID
			})
			list = append(list, models.Participant{
				ID:          uuid.NewString(),
				SessionID:   c.cfg.SessionID,
				UserID:      c.cfg.UserID,
				DisplayName: c.cfg.DisplayName,
				JoinedAt:    c.clock.Now(),
			})
			return state.Delta{state.FieldParticipants: list}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.JoinSession(ctx, c.cfg.SessionID, c.cfg.UserID)
		})
}

// Leave marks the current user as gone. It is allowed in every phase but
// completed.
func (c *Controller) Leave(ctx context.Context) error {
	return c.optimistic(ctx, "leave", state.UpdateLeave,
		func(s state.SessionState) (state.Delta, error) {
			if s.Phase() == models.PhaseCompleted {
				return nil, notAllowed("leave", "session is completed")
			}
			if p, ok := s.CurrentParticipant(); !ok || !p.Active() {
				return nil, ErrNotParticipant
			}

			now := c.clock.Now()
			list := c.withCurrentParticipant(s, func(p *models.Participant) { p.LeftAt = &now })
			return state.Delta{state.FieldParticipants: list}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.LeaveSession(ctx, c.cfg.SessionID, c.cfg.UserID)
		})
}

// ToggleReady flips the current user's readiness in the lobby.
func (c *Controller) ToggleReady(ctx context.Context) error {
	var ready bool
	return c.optimistic(ctx, "ready_toggle", state.UpdateReadyToggle,
		func(s state.SessionState) (state.Delta, error) {
			p, ok := s.CurrentParticipant()
			if !ok || !p.Active() {
				return nil, ErrNotParticipant
			}
			if !phase.CanPlayerPerformAction(phase.ActionReadyToggle, s.Phase(), c.currentStatus(s)) {
				return nil, notAllowed("ready_toggle", "only allowed in the lobby")
			}

			from, to := models.PlayerStatusInLobby, models.PlayerStatusReady
			if s.IsReady {
				from, to = to, from
			}
			if !players.ValidatePlayerStateTransition(from, to) {
				return nil, notAllowed("ready_toggle", string(from)+" -> "+string(to))
			}

			ready = !s.IsReady
			list := c.withCurrentParticipant(s, func(p *models.Participant) { p.IsReady = ready })
			return state.Delta{
				state.FieldIsReady:      ready,
				state.FieldParticipants: list,
			}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.SetReady(ctx, c.cfg.SessionID, c.cfg.UserID, ready)
		})
}

// SelectBoosterPack records the current user's pack choice in the lobby.
func (c *Controller) SelectBoosterPack(ctx context.Context, packID string) error {
	return c.optimistic(ctx, "pack_selection", state.UpdatePackSelection,
		func(s state.SessionState) (state.Delta, error) {
			if packID == "" {
				return nil, notAllowed("pack_selection", "empty pack id")
			}
			if s.Phase() != models.PhaseWaiting {
				return nil, notAllowed("pack_selection", "only allowed in the lobby")
			}
			if p, ok := s.CurrentParticipant(); !ok || !p.Active() {
				return nil, ErrNotParticipant
			}

			pack := packID
			list := c.withCurrentParticipant(s, func(p *models.Participant) { p.SelectedPackID = &pack })
			return state.Delta{
				state.FieldSelectedPack: packID,
				state.FieldParticipants: list,
			}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.SelectBoosterPack(ctx, c.cfg.SessionID, c.cfg.UserID, packID)
		})
}

// SubmitDrawing hands in the current user's drawing.
func (c *Controller) SubmitDrawing(ctx context.Context, drawing transport.Drawing) error {
	return c.optimistic(ctx, "submit", state.UpdateDrawingSubmitted,
		func(s state.SessionState) (state.Delta, error) {
			if !phase.CanPlayerPerformAction(phase.ActionSubmit, s.Phase(), c.currentStatus(s)) {
				return nil, notAllowed("submit", "only allowed while drawing")
			}
			if s.HasSubmitted {
				return nil, ErrAlreadySubmitted
			}
			if drawing.Ref == "" {
				return nil, notAllowed("submit", "empty drawing")
			}

			list := append(slices.Clone(s.Submissions), models.Submission{
				ID:          uuid.NewString(),
				SessionID:   c.cfg.SessionID,
				UserID:      c.cfg.UserID,
				DrawingRef:  drawing.Ref,
				Metadata:    drawing.Metadata,
				SubmittedAt: c.clock.Now(),
			})
			return state.Delta{
				state.FieldHasSubmitted: true,
				state.FieldSubmissions:  list,
			}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.SubmitDrawing(ctx, c.cfg.SessionID, c.cfg.UserID, drawing)
		})
}

// CastVote votes for another player's submission.
func (c *Controller) CastVote(ctx context.Context, submissionID string) error {
	return c.optimistic(ctx, "vote", state.UpdateVoteCast,
		func(s state.SessionState) (state.Delta, error) {
			if !phase.CanPlayerPerformAction(phase.ActionVote, s.Phase(), c.currentStatus(s)) {
				return nil, notAllowed("vote", "only allowed while voting")
			}
			if s.HasVoted {
				return nil, ErrAlreadyVoted
			}

			idx := slices.IndexFunc(s.Submissions, func(sub models.Submission) bool { return sub.ID == submissionID })
			if idx < 0 {
				return nil, fmt.Errorf("%w: unknown submission %s", ErrInvalidVote, submissionID)
			}
			if s.Submissions[idx].UserID == c.cfg.UserID {
				return nil, fmt.Errorf("%w: cannot vote for your own drawing", ErrInvalidVote)
			}

			list := append(slices.Clone(s.Votes), models.Vote{
				ID:           uuid.NewString(),
				SessionID:    c.cfg.SessionID,
				VoterID:      c.cfg.UserID,
				SubmissionID: submissionID,
				CastAt:       c.clock.Now(),
			})
			return state.Delta{
				state.FieldHasVoted: true,
				state.FieldVotes:    list,
			}, nil
		},
		func(ctx context.Context) (transport.Result, error) {
			return c.svc.CastVote(ctx, c.cfg.SessionID, c.cfg.UserID, submissionID)
		})
}

// RequestPhaseTransition asks the server to move the session to the given
// phase. The local phase only changes once the server reports it.
func (c *Controller) RequestPhaseTransition(ctx context.Context, to models.Phase) error {
	return c.requestTransition(ctx, c.State(), to)
}

// ClearError dismisses the user-visible error.
func (c *Controller) ClearError() {
	c.dispatch(state.ErrorSet{})
}

func (c *Controller) requestTransition(ctx context.Context, s state.SessionState, to models.Phase) error {
	if s.Session == nil {
		return ErrNoSession
	}

	d, err := phase.CanTransition(s, to)
	if err != nil {
		c.metrics.RecordActionRejected("phase_transition")
		return err
	}
	if !d.Allowed {
		c.metrics.RecordActionRejected("phase_transition")
		return d.Err()
	}

	res, err := c.svc.RequestPhaseTransition(ctx, c.cfg.SessionID, s.Phase(), to)
	if err != nil || !res.Success {
		rej := &RejectionError{Action: "phase_transition", Message: res.Message, Cause: err}
		c.dispatch(state.ErrorSet{Message: rej.userMessage()})
		return rej
	}

	log.Info().
		Str("session_id", c.cfg.SessionID).
		Str("from", string(s.Phase())).
		Str("to", string(to)).
		Msg("phase transition requested")
	return nil
}

// optimistic applies the delta built from the current state, records it as
// pending, then confirms or rolls it back depending on the server call.
// build runs under the controller lock and must reject disallowed actions
// before anything is recorded.
func (c *Controller) optimistic(
	ctx context.Context,
	action string,
	kind state.UpdateKind,
	build func(state.SessionState) (state.Delta, error),
	call func(context.Context) (transport.Result, error),
) error {
	var id string
	var rejected error

	c.commit(func(s state.SessionState) (state.SessionState, bool) {
		delta, err := build(s)
		if err != nil {
			rejected = err
			return s, false
		}
		rollback := s.Capture(delta.Fields()...)
		if id, err = c.sync.ApplyOptimisticUpdate(kind, delta, rollback); err != nil {
			rejected = err
			return s, false
		}
		return state.Reduce(s, state.DeltaApplied{Delta: delta}), true
	})
	if rejected != nil {
		c.metrics.RecordActionRejected(action)
		log.Debug().Err(rejected).Str("action", action).Msg("action rejected locally")
		return rejected
	}
	c.metrics.RecordOptimisticApplied(kind)

	start := c.clock.Now()
	res, err := call(ctx)
	if err != nil || !res.Success {
		rej := &RejectionError{Action: action, Message: res.Message, Cause: err}
		if rollback, ok := c.sync.RollbackOptimisticUpdate(id); ok {
			c.commit(func(s state.SessionState) (state.SessionState, bool) {
				next := state.Reduce(s, state.DeltaApplied{Delta: rollback})
				// The rollback restores whole collections as they were before
				// the call; fold back in what the server reported meanwhile.
				if c.server.Session != nil {
					merged := c.sync.ReconcileState(next, c.server, c.cfg.Strategy)
					next = state.Reduce(next, state.Replaced{State: merged})
				}
				return state.Reduce(next, state.ErrorSet{Message: rej.userMessage()}), true
			})
		}
		c.metrics.RecordOptimisticRolledBack(kind)
		log.Warn().
			Err(rej).
			Str("session_id", c.cfg.SessionID).
			Str("update_id", id).
			Msg("optimistic update rolled back")
		return rej
	}

	c.sync.ConfirmOptimisticUpdate(id)
	c.metrics.RecordOptimisticConfirmed(kind, c.clock.Since(start))
	c.maybeAdvance(c.State())
	return nil
}

func (c *Controller) currentStatus(s state.SessionState) models.PlayerStatus {
	ps, ok := players.NewManager(c.cfg.UserID, s).CurrentPlayerState()
	if !ok {
		return ""
	}
	return ps.PhaseStatus
}

func (c *Controller) withCurrentParticipant(s state.SessionState, fn func(*models.Participant)) []models.Participant {
	list := slices.Clone(s.Participants)
	for i := range list {
		if list[i].UserID == c.cfg.UserID {
			fn(&list[i])
		}
	}
	return list
}
