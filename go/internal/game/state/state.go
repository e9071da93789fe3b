package state

import (
	"slices"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

// SessionState is the client's canonical view of one session.
type SessionState struct {
	CurrentUserID string `json:"current_user_id"`

	Session      *models.Session      `json:"session,omitempty"`
	Participants []models.Participant `json:"participants"`
	Submissions  []models.Submission  `json:"submissions"`
	Votes        []models.Vote        `json:"votes"`

	// Current-user flags mirrored from the collections so optimistic writes
	// can land before the matching row does.
	IsReady        bool   `json:"is_ready"`
	SelectedPackID string `json:"selected_pack_id,omitempty"`
	HasSubmitted   bool   `json:"has_submitted"`
	HasVoted       bool   `json:"has_voted"`

	TimeRemaining int  `json:"time_remaining"`
	TimerExpired  bool `json:"timer_expired"`

	IsLoading bool   `json:"is_loading"`
	Error     string `json:"error,omitempty"`
}

// New returns an empty state for the given user.
func New(currentUserID string) SessionState {
	return SessionState{
		CurrentUserID: currentUserID,
		Participants:  []models.Participant{},
		Submissions:   []models.Submission{},
		Votes:         []models.Vote{},
	}
}

// Phase returns the session's current phase, defaulting to waiting before
// the session record is known.
func (s SessionState) Phase() models.Phase {
	if s.Session == nil || s.Session.Phase == "" {
		return models.PhaseWaiting
	}
	return s.Session.Phase
}

// SessionID returns the id of the loaded session, or "".
func (s SessionState) SessionID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.ID
}

// Clone returns a copy that shares no mutable storage with s.
func (s SessionState) Clone() SessionState {
	out := s
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	out.Participants = slices.Clone(s.Participants)
	out.Submissions = slices.Clone(s.Submissions)
	out.Votes = slices.Clone(s.Votes)
	return out
}

// Participant returns the record for userID.
func (s SessionState) Participant(userID string) (models.Participant, bool) {
	return findParticipant(s.Participants, userID)
}

// CurrentParticipant returns the record for the current user.
func (s SessionState) CurrentParticipant() (models.Participant, bool) {
	return s.Participant(s.CurrentUserID)
}

// Get returns the value held in field.
func (s SessionState) Get(field Field) any {
	switch field {
	case FieldSession:
		return s.Session
	case FieldParticipants:
		return s.Participants
	case FieldSubmissions:
		return s.Submissions
	case FieldVotes:
		return s.Votes
	case FieldIsReady:
		return s.IsReady
	case FieldSelectedPack:
		return s.SelectedPackID
	case FieldHasSubmitted:
		return s.HasSubmitted
	case FieldHasVoted:
		return s.HasVoted
	case FieldTimeRemaining:
		return s.TimeRemaining
	case FieldTimerExpired:
		return s.TimerExpired
	case FieldIsLoading:
		return s.IsLoading
	case FieldError:
		return s.Error
	default:
		return nil
	}
}

// Set stores value in field. It reports false, leaving s untouched, when the
// value has the wrong type for the field.
func (s *SessionState) Set(field Field, value any) bool {
	switch field {
	case FieldSession:
		v, ok := value.(*models.Session)
		if !ok {
			return false
		}
		if v != nil {
			sess := *v
			v = &sess
		}
		s.Session = v
	case FieldParticipants:
		v, ok := value.([]models.Participant)
		if !ok {
			return false
		}
		s.Participants = slices.Clone(v)
	case FieldSubmissions:
		v, ok := value.([]models.Submission)
		if !ok {
			return false
		}
		s.Submissions = slices.Clone(v)
	case FieldVotes:
		v, ok := value.([]models.Vote)
		if !ok {
			return false
		}
		s.Votes = slices.Clone(v)
	case FieldIsReady:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.IsReady = v
	case FieldSelectedPack:
		v, ok := value.(string)
		if !ok {
			return false
		}
		s.SelectedPackID = v
	case FieldHasSubmitted:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.HasSubmitted = v
	case FieldHasVoted:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.HasVoted = v
	case FieldTimeRemaining:
		v, ok := value.(int)
		if !ok {
			return false
		}
		s.TimeRemaining = v
	case FieldTimerExpired:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.TimerExpired = v
	case FieldIsLoading:
		v, ok := value.(bool)
		if !ok {
			return false
		}
		s.IsLoading = v
	case FieldError:
		v, ok := value.(string)
		if !ok {
			return false
		}
		s.Error = v
	default:
		return false
	}
	return true
}

// Capture returns a delta holding the current values of fields. It is used to
// build rollback payloads before an optimistic write.
func (s SessionState) Capture(fields ...Field) Delta {
	d := make(Delta, len(fields))
	for _, f := range fields {
		switch v := s.Get(f).(type) {
		case []models.Participant:
			d[f] = slices.Clone(v)
		case []models.Submission:
			d[f] = slices.Clone(v)
		case []models.Vote:
			d[f] = slices.Clone(v)
		default:
			d[f] = v
		}
	}
	return d
}

func findParticipant(list []models.Participant, userID string) (models.Participant, bool) {
	for _, p := range list {
		if p.UserID == userID {
			return p, true
		}
	}
	return models.Participant{}, false
}
