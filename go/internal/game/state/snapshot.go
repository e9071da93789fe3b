package state

import (
	"slices"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Snapshot is the authoritative server view of a session as last observed
// through refreshes and row-change notifications.
type Snapshot struct {
	Session      *models.Session      `json:"session,omitempty"`
	Participants []models.Participant `json:"participants"`
	Submissions  []models.Submission  `json:"submissions"`
	Votes        []models.Vote        `json:"votes"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Participants: slices.Clone(s.Participants),
		Submissions:  slices.Clone(s.Submissions),
		Votes:        slices.Clone(s.Votes),
	}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	return out
}

// Fields projects the snapshot onto state fields, deriving the flags of the
// given user from the collections. A nil session is omitted so it never
// erases a known local record.
func (s Snapshot) Fields(userID string) Delta {
	d := Delta{
		FieldParticipants: slices.Clone(s.Participants),
		FieldSubmissions:  slices.Clone(s.Submissions),
		FieldVotes:        slices.Clone(s.Votes),
		FieldIsReady:      false,
		FieldSelectedPack: "",
		FieldHasSubmitted: false,
		FieldHasVoted:     false,
	}
	if s.Session != nil {
		sess := *s.Session
		d[FieldSession] = &sess
	}

	if p, ok := findParticipant(s.Participants, userID); ok {
		d[FieldIsReady] = p.IsReady
		if p.SelectedPackID != nil {
			d[FieldSelectedPack] = *p.SelectedPackID
		}
	}
	for _, sub := range s.Submissions {
		if sub.UserID == userID {
			d[FieldHasSubmitted] = true
			break
		}
	}
	for _, v := range s.Votes {
		if v.VoterID == userID {
			d[FieldHasVoted] = true
			break
		}
	}
	return d
}

// WithSession replaces the session record.
func (s *Snapshot) WithSession(sess models.Session) {
	s.Session = &sess
}

// UpsertParticipant replaces the row with the same id or the same user,
// appending it otherwise.
func (s *Snapshot) UpsertParticipant(p models.Participant) {
	for i, existing := range s.Participants {
		if existing.ID == p.ID || existing.UserID == p.UserID {
			s.Participants[i] = p
			return
		}
	}
	s.Participants = append(s.Participants, p)
}

// RemoveParticipant drops the row with the given id.
func (s *Snapshot) RemoveParticipant(id string) {
	s.Participants = slices.DeleteFunc(s.Participants, func(p models.Participant) bool {
		return p.ID == id
	})
}

// UpsertSubmission replaces the row with the same id or the same author,
// appending it otherwise.
func (s *Snapshot) UpsertSubmission(sub models.Submission) {
	for i, existing := range s.Submissions {
		if existing.ID == sub.ID || existing.UserID == sub.UserID {
			s.Submissions[i] = sub
			return
		}
	}
	s.Submissions = append(s.Submissions, sub)
}

// RemoveSubmission drops the row with the given id.
func (s *Snapshot) RemoveSubmission(id string) {
	s.Submissions = slices.DeleteFunc(s.Submissions, func(sub models.Submission) bool {
		return sub.ID == id
	})
}

// UpsertVote replaces the row with the same id or the same voter, appending
// it otherwise.
func (s *Snapshot) UpsertVote(v models.Vote) {
	for i, existing := range s.Votes {
		if existing.ID == v.ID || existing.VoterID == v.VoterID {
			s.Votes[i] = v
			return
		}
	}
	s.Votes = append(s.Votes, v)
}

// RemoveVote drops the row with the given id.
func (s *Snapshot) RemoveVote(id string) {
	s.Votes = slices.DeleteFunc(s.Votes, func(v models.Vote) bool {
		return v.ID == id
	})
}
