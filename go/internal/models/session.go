package models

import (
	"time"
)

// Phase defines the stage of a session's lifecycle.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseBriefing  Phase = "briefing"
	PhaseDrawing   Phase = "drawing"
	PhaseVoting    Phase = "voting"
	PhaseResults   Phase = "results"
	PhaseCompleted Phase = "completed"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseWaiting,
	PhaseBriefing,
	PhaseDrawing,
	PhaseVoting,
	PhaseResults,
	PhaseCompleted,
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, known := range Phases {
		if p == known {
			return true
		}
	}
	return false
}

// Timed reports whether the phase runs against a countdown.
func (p Phase) Timed() bool {
	switch p {
	case PhaseBriefing, PhaseDrawing, PhaseVoting, PhaseResults:
		return true
	default:
		return false
	}
}

// PhaseDurations holds the configured length of each timed phase in seconds.
type PhaseDurations struct {
	BriefingSec int `json:"briefing_sec"`
	DrawingSec  int `json:"drawing_sec"`
	VotingSec   int `json:"voting_sec"`
	ResultsSec  int `json:"results_sec"`
}

// DefaultPhaseDurations matches the column defaults of game_sessions.
var DefaultPhaseDurations = PhaseDurations{BriefingSec: 15, DrawingSec: 90, VotingSec: 30, ResultsSec: 15}

// For returns the configured duration for a phase, or 0 for untimed phases.
func (d PhaseDurations) For(p Phase) int {
	switch p {
	case PhaseBriefing:
		return d.BriefingSec
	case PhaseDrawing:
		return d.DrawingSec
	case PhaseVoting:
		return d.VotingSec
	case PhaseResults:
		return d.ResultsSec
	default:
		return 0
	}
}

// Session is the server-owned record of one game instance.
type Session struct {
	ID            string         `json:"id"`
	Prompt        string         `json:"prompt"`
	Durations     PhaseDurations `json:"durations"`
	Phase         Phase          `json:"phase"`
	PhaseDeadline *time.Time     `json:"phase_deadline,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// RemainingAt returns the whole seconds left before the phase deadline at the
// given instant, floored at zero. ok is false when no deadline is set.
func (s *Session) RemainingAt(now time.Time) (remaining int, ok bool) {
	if s == nil || s.PhaseDeadline == nil || s.PhaseDeadline.IsZero() {
		return 0, false
	}

	remaining = int(s.PhaseDeadline.Sub(now).Seconds())
	if remaining < 0 {
		return 0, true
	}
	return remaining, true
}
