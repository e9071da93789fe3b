package controller

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/phase"
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// timerPlan is how the countdown should look for a newly entered phase.
type timerPlan struct {
	active    bool
	phase     models.Phase
	duration  int
	remaining int
	corrected bool
}

// armKey identifies the countdown a state calls for. The timer is re-armed
// whenever it changes.
func armKey(s state.SessionState) string {
	if s.Session == nil {
		return ""
	}
	key := string(s.Phase())
	if s.Session.PhaseDeadline != nil {
		key += "@" + strconv.FormatInt(s.Session.PhaseDeadline.UnixNano(), 10)
	}
	return key
}

// planTimer starts from the configured phase duration and corrects it with
// the server deadline when one is known.
func (c *Controller) planTimer(s state.SessionState) timerPlan {
	p := s.Phase()
	if s.Session == nil || !p.Timed() {
		return timerPlan{phase: p}
	}

	plan := timerPlan{
		active:    true,
		phase:     p,
		duration:  s.Session.Durations.For(p),
		remaining: s.Session.Durations.For(p),
	}
	if remaining, ok := s.Session.RemainingAt(c.clock.Now()); ok {
		plan.remaining = remaining
		plan.corrected = true
		if remaining > plan.duration {
			plan.duration = remaining
		}
	}
	return plan
}

func (c *Controller) applyTimer(plan timerPlan) {
	if !plan.active {
		c.timer.Reset()
		return
	}

	c.timer.Start(plan.duration, plan.phase)
	if plan.corrected {
		c.timer.Sync(plan.remaining, plan.duration)
	}

	log.Info().
		Str("session_id", c.cfg.SessionID).
		Str("phase", string(plan.phase)).
		Int("duration_sec", plan.duration).
		Int("remaining_sec", plan.remaining).
		Bool("deadline_corrected", plan.corrected).
		Msg("phase timer armed")
}

// mirrorTimer copies the countdown into the state when it differs.
func (c *Controller) mirrorTimer(s timer.Snapshot) {
	c.commit(func(cur state.SessionState) (state.SessionState, bool) {
		if cur.TimeRemaining == s.Remaining && cur.TimerExpired == s.Expired() {
			return cur, false
		}
		return state.Reduce(cur, state.TimerUpdated{Remaining: s.Remaining, Expired: s.Expired()}), true
	})
}

func (c *Controller) handleTick(s timer.Snapshot) {
	// Expiry is mirrored by handleExpire or, after submitting, handleAutoSubmit.
	if s.Expired() {
		return
	}
	c.mirrorTimer(s)
}

func (c *Controller) handleExpire(s timer.Snapshot) {
	if c.willAutoSubmit(s) {
		return
	}
	c.mirrorTimer(s)
}

func (c *Controller) willAutoSubmit(s timer.Snapshot) bool {
	return c.cfg.Timer.AutoSubmitOnExpiry &&
		c.autoSubmit != nil &&
		s.Phase == models.PhaseDrawing &&
		!c.State().HasSubmitted
}

func (c *Controller) handleAutoSubmit(s timer.Snapshot) {
	defer c.mirrorTimer(s)

	if c.autoSubmit == nil || s.Phase != models.PhaseDrawing {
		return
	}

	drawing, err := c.autoSubmit(c.ctx)
	if err != nil {
		log.Error().Err(err).Str("session_id", c.cfg.SessionID).Msg("failed to build auto-submit drawing")
		return
	}
	if err := c.SubmitDrawing(c.ctx, drawing); err != nil {
		log.Error().Err(err).Str("session_id", c.cfg.SessionID).Msg("auto-submit failed")
		return
	}
	log.Info().Str("session_id", c.cfg.SessionID).Msg("drawing auto-submitted on expiry")
}

// maybeAdvance requests the next phase once per phase when auto-advance is
// on, no optimistic update is awaiting the server, and the transition
// conditions hold.
func (c *Controller) maybeAdvance(s state.SessionState) {
	if !c.cfg.AutoAdvance || s.Session == nil {
		return
	}
	if c.sync.SyncStatus().PendingUpdates > 0 {
		return
	}

	to, d, ok := phase.CanAdvance(s)
	if !ok || !d.Allowed {
		return
	}

	from := s.Phase()
	c.mu.Lock()
	if c.closed || c.requested[from] {
		c.mu.Unlock()
		return
	}
	c.requested[from] = true
	c.mu.Unlock()

	log.Info().
		Str("session_id", c.cfg.SessionID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("auto-advancing phase")

	if err := c.requestTransition(c.ctx, s, to); err != nil {
		log.Warn().
			Err(err).
			Str("session_id", c.cfg.SessionID).
			Str("to", string(to)).
			Msg("auto-advance request failed")
	}
}
