// Package transport is the client side of the session RPC service. The
// server owns the authoritative record; every call here is fallible and must
// not be retried without reconciling first.
package transport

import (
	"context"
	"encoding/json"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Result is the server's verdict on an action.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Drawing is the payload handed in at the end of the drawing phase.
type Drawing struct {
	Ref      string          `json:"drawing_ref"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Service is the set of server actions a session client needs.
type Service interface {
	JoinSession(ctx context.Context, sessionID, userID string) (Result, error)
	LeaveSession(ctx context.Context, sessionID, userID string) (Result, error)
	SetReady(ctx context.Context, sessionID, userID string, ready bool) (Result, error)
	SelectBoosterPack(ctx context.Context, sessionID, userID, packID string) (Result, error)
	SubmitDrawing(ctx context.Context, sessionID, userID string, drawing Drawing) (Result, error)
	CastVote(ctx context.Context, sessionID, voterID, submissionID string) (Result, error)
	RequestPhaseTransition(ctx context.Context, sessionID string, from, to models.Phase) (Result, error)
	FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error)
}
