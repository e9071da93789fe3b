package models

import (
	"time"
)

// Participant is a user's membership record in a session. Unique per
// (SessionID, UserID).
type Participant struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	UserID         string     `json:"user_id"`
	DisplayName    string     `json:"display_name"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	IsReady        bool       `json:"is_ready"`
	SelectedPackID *string    `json:"selected_pack_id,omitempty"`
	JoinedAt       time.Time  `json:"joined_at"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
}

// Active reports whether the participant is still in the session.
func (p Participant) Active() bool {
	return p.LeftAt == nil
}

// HasPack reports whether the participant holds a booster-pack selection.
func (p Participant) HasPack() bool {
	return p.SelectedPackID != nil && *p.SelectedPackID != ""
}
