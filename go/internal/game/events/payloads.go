package events

import (
	"time"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Op is the kind of row change behind a notification.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Valid reports whether o is a known operation.
func (o Op) Valid() bool {
	return o == OpInsert || o == OpUpdate || o == OpDelete
}

// ParticipantChangedPayload is the payload for a ParticipantChanged event.
// On delete, Record holds the row as it was before removal.
type ParticipantChangedPayload struct {
	Op     Op                 `json:"op"`
	Record models.Participant `json:"record"`
}

// SubmissionChangedPayload is the payload for a SubmissionChanged event
type SubmissionChangedPayload struct {
	Op     Op                `json:"op"`
	Record models.Submission `json:"record"`
}

// VoteChangedPayload is the payload for a VoteChanged event
type VoteChangedPayload struct {
	Op     Op          `json:"op"`
	Record models.Vote `json:"record"`
}

// SessionChangedPayload is the payload for a SessionChanged event
type SessionChangedPayload struct {
	Op     Op             `json:"op"`
	Record models.Session `json:"record"`
}

// TimerSyncPayload carries a peer's or the server's view of the countdown.
// SenderID lets a feed drop its own broadcasts.
type TimerSyncPayload struct {
	SessionID string       `json:"session_id"`
	SenderID  string       `json:"sender_id"`
	Phase     models.Phase `json:"phase"`
	Remaining int          `json:"remaining_sec"`
	Total     int          `json:"total_sec"`
	SentAt    time.Time    `json:"sent_at"`
}
