package models

import (
	"time"
)

// Vote is a participant's choice of submission. At most one per
// (SessionID, VoterID).
type Vote struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	VoterID      string    `json:"voter_id"`
	SubmissionID string    `json:"submission_id"`
	CastAt       time.Time `json:"cast_at"`
}
