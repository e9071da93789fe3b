// Package players derives read-only views of participants from a session
// state. Nothing here mutates the state it is given.
package players

import (
	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// MinPlayers is the smallest roster a session can start with.
const MinPlayers = 2

// PlayerState is the derived view of a single participant. Status combines
// phase, readiness and departure. PhaseStatus leaves readiness out and is
// what action permissions are checked against, so a ready player in the
// lobby is still in_lobby there and can toggle back.
type PlayerState struct {
	UserID         string              `json:"user_id"`
	DisplayName    string              `json:"display_name"`
	Status         models.PlayerStatus `json:"status"`
	PhaseStatus    models.PlayerStatus `json:"phase_status"`
	IsReady        bool                `json:"is_ready"`
	SelectedPackID string              `json:"selected_pack_id,omitempty"`
	HasSubmitted   bool                `json:"has_submitted"`
	HasVoted       bool                `json:"has_voted"`
	IsCurrentUser  bool                `json:"is_current_user"`
}

// StartCheck is the result of CanGameStart.
type StartCheck struct {
	CanStart bool   `json:"can_start"`
	Reason   string `json:"reason,omitempty"`
}

// Manager computes player views for one user against one state. Build a new
// Manager whenever the state changes.
type Manager struct {
	currentUserID string
	state         state.SessionState
}

// NewManager creates a manager over s for currentUserID.
func NewManager(currentUserID string, s state.SessionState) *Manager {
	return &Manager{
		currentUserID: currentUserID,
		state:         s,
	}
}

// CurrentPlayerState returns the current user's view. ok is false when the
// user has no participant record.
func (m *Manager) CurrentPlayerState() (PlayerState, bool) {
	p, ok := m.state.Participant(m.currentUserID)
	if !ok {
		return PlayerState{}, false
	}
	return m.playerState(p), true
}

// AllPlayersState returns a view per participant, including those who left.
func (m *Manager) AllPlayersState() []PlayerState {
	out := make([]PlayerState, 0, len(m.state.Participants))
	for _, p := range m.state.Participants {
		out = append(out, m.playerState(p))
	}
	return out
}

// CanGameStart checks the start requirements in order: minimum players,
// readiness, then pack selection. The first unmet one is reported.
func (m *Manager) CanGameStart() StartCheck {
	active := m.activeParticipants()
	if len(active) < MinPlayers {
		return StartCheck{Reason: "need at least 2 players to start"}
	}

	if ready := m.ReadinessSummary(); !ready.AllSatisfied {
		return StartCheck{Reason: "waiting for all players to be ready"}
	}

	if packs := m.BoosterPackSummary(); !packs.AllSatisfied {
		return StartCheck{Reason: "waiting for all players to select a booster pack"}
	}

	return StartCheck{CanStart: true}
}

func (m *Manager) playerState(p models.Participant) PlayerState {
	ps := PlayerState{
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		Status:        statusFor(m.state.Phase(), p),
		PhaseStatus:   phaseStatus(m.state.Phase()),
		IsReady:       p.IsReady,
		HasSubmitted:  hasSubmitted(m.state, p.UserID),
		HasVoted:      hasVoted(m.state, p.UserID),
		IsCurrentUser: p.UserID == m.currentUserID,
	}
	if !p.Active() {
		ps.PhaseStatus = models.PlayerStatusDisconnected
	}
	if p.SelectedPackID != nil {
		ps.SelectedPackID = *p.SelectedPackID
	}
	return ps
}

func (m *Manager) activeParticipants() []models.Participant {
	active := make([]models.Participant, 0, len(m.state.Participants))
	for _, p := range m.state.Participants {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active
}

// statusFor labels a participant from the phase, their readiness and whether
// they have left.
func statusFor(phase models.Phase, p models.Participant) models.PlayerStatus {
	if !p.Active() {
		return models.PlayerStatusDisconnected
	}
	if phase == models.PhaseWaiting {
		if p.IsReady {
			return models.PlayerStatusReady
		}
		return models.PlayerStatusInLobby
	}
	return phaseStatus(phase)
}

func phaseStatus(phase models.Phase) models.PlayerStatus {
	switch phase {
	case models.PhaseBriefing, models.PhaseDrawing, models.PhaseVoting, models.PhaseResults:
		return models.PlayerStatusInGame
	case models.PhaseCompleted:
		return models.PlayerStatusIdle
	default:
		return models.PlayerStatusInLobby
	}
}

func hasSubmitted(s state.SessionState, userID string) bool {
	for _, sub := range s.Submissions {
		if sub.UserID == userID {
			return true
		}
	}
	return false
}

func hasVoted(s state.SessionState, userID string) bool {
	for _, v := range s.Votes {
		if v.VoterID == userID {
			return true
		}
	}
	return false
}
