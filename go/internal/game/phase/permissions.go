package phase

import (
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Action is a player action gated by phase and status.
type Action string

const (
	ActionJoin        Action = "join"
	ActionReadyToggle Action = "ready_toggle"
	ActionSubmit      Action = "submit"
	ActionVote        Action = "vote"
)

// CanPlayerPerformAction is consulted before any optimistic write for these
// actions.
func CanPlayerPerformAction(action Action, p models.Phase, status models.PlayerStatus) bool {
	switch action {
	case ActionJoin:
		return p == models.PhaseWaiting
	case ActionReadyToggle:
		return p == models.PhaseWaiting && status == models.PlayerStatusInLobby
	case ActionSubmit:
		return p == models.PhaseDrawing && status == models.PlayerStatusInGame
	case ActionVote:
		return p == models.PhaseVoting && status == models.PlayerStatusInGame
	default:
		return false
	}
}
