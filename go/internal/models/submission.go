package models

import (
	"encoding/json"
	"time"
)

// Submission is a drawing handed in by a participant. At most one per
// (SessionID, UserID).
type Submission struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id"`
	DrawingRef  string          `json:"drawing_ref"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}
