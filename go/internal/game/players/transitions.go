package players

import (
	"github.com/mcdev12/doodleduel/go/internal/models"
)

var statusTransitions = map[models.PlayerStatus][]models.PlayerStatus{
	models.PlayerStatusInLobby:      {models.PlayerStatusReady, models.PlayerStatusDisconnected},
	models.PlayerStatusReady:        {models.PlayerStatusInLobby, models.PlayerStatusInGame, models.PlayerStatusDisconnected},
	models.PlayerStatusInGame:       {models.PlayerStatusIdle, models.PlayerStatusDisconnected},
	models.PlayerStatusIdle:         {models.PlayerStatusInLobby, models.PlayerStatusDisconnected},
	models.PlayerStatusDisconnected: {models.PlayerStatusInLobby},
}

// ValidatePlayerStateTransition reports whether a participant may move from
// one status to another.
func ValidatePlayerStateTransition(from, to models.PlayerStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
