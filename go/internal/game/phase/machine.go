// Package phase validates session phase transitions and the actions players
// may take in each phase. The server applies transitions; this package only
// decides when one may be requested.
package phase

import (
	"errors"
	"fmt"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

var ErrInvalidTransition = errors.New("invalid phase transition")
var ErrConditionsNotMet = errors.New("phase transition conditions not met")

var transitions = map[models.Phase]models.Phase{
	models.PhaseWaiting:  models.PhaseBriefing,
	models.PhaseBriefing: models.PhaseDrawing,
	models.PhaseDrawing:  models.PhaseVoting,
	models.PhaseVoting:   models.PhaseResults,
	models.PhaseResults:  models.PhaseCompleted,
}

// IsValidPhaseTransition reports whether to directly follows from.
func IsValidPhaseTransition(from, to models.Phase) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Next returns the phase that follows from. ok is false for completed.
func Next(from models.Phase) (models.Phase, bool) {
	next, ok := transitions[from]
	return next, ok
}

// Decision is the outcome of evaluating a transition against the state.
type Decision struct {
	Allowed bool
	Reason  string
}

// Err returns nil for an allowed decision, otherwise an error wrapping
// ErrConditionsNotMet.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrConditionsNotMet, d.Reason)
}

// CanTransition evaluates whether a transition from the state's current phase
// to to may be requested.
func CanTransition(s state.SessionState, to models.Phase) (Decision, error) {
	from := s.Phase()
	if !IsValidPhaseTransition(from, to) {
		return Decision{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return evaluate(s, from), nil
}

// CanAdvance evaluates the transition out of the current phase. ok is false
// when the phase is terminal.
func CanAdvance(s state.SessionState) (to models.Phase, d Decision, ok bool) {
	from := s.Phase()
	to, ok = Next(from)
	if !ok {
		return "", Decision{Reason: "session is completed"}, false
	}
	return to, evaluate(s, from), true
}

func evaluate(s state.SessionState, from models.Phase) Decision {
	active := activeUserIDs(s)

	switch from {
	case models.PhaseWaiting:
		if len(active) < 2 {
			return Decision{Reason: "need at least 2 players"}
		}
		for _, p := range s.Participants {
			if p.Active() && !p.IsReady {
				return Decision{Reason: "not every player is ready"}
			}
		}
		return Decision{Allowed: true}

	case models.PhaseBriefing:
		if s.TimerExpired {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "briefing timer still running"}

	case models.PhaseDrawing:
		if s.TimerExpired {
			return Decision{Allowed: true}
		}
		if everyoneOnce(active, countBy(s.Submissions, func(sub models.Submission) string { return sub.UserID })) {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "waiting for drawings"}

	case models.PhaseVoting:
		if everyoneOnce(active, countBy(s.Votes, func(v models.Vote) string { return v.VoterID })) {
			return Decision{Allowed: true}
		}
		if s.TimerExpired {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "waiting for votes"}

	case models.PhaseResults:
		if s.TimerExpired {
			return Decision{Allowed: true}
		}
		return Decision{Reason: "results still showing"}

	default:
		return Decision{Reason: fmt.Sprintf("no transition out of %s", from)}
	}
}

func activeUserIDs(s state.SessionState) []string {
	ids := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Active() {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

func countBy[T any](items []T, key func(T) string) map[string]int {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

// everyoneOnce reports whether every user has exactly one entry. An empty
// roster never satisfies it.
func everyoneOnce(userIDs []string, counts map[string]int) bool {
	if len(userIDs) == 0 {
		return false
	}
	for _, id := range userIDs {
		if counts[id] != 1 {
			return false
		}
	}
	return true
}
