package state

import (
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// RowRef identifies one entity row held in a collection field. Key is the
// row's natural key: the user for participants and submissions, the voter
// for votes.
type RowRef struct {
	Field Field  `json:"field"`
	ID    string `json:"id"`
	Key   string `json:"key"`
}

// AddedRows returns the collection rows present in after whose ids are not in
// before. It is how the rows an optimistic write introduces are found.
func AddedRows(before, after Delta) []RowRef {
	var added []RowRef
	for field, value := range after {
		if !field.Collection() {
			continue
		}
		known := make(map[string]bool)
		for _, ref := range rowRefs(field, before[field]) {
			known[ref.ID] = true
		}
		for _, ref := range rowRefs(field, value) {
			if !known[ref.ID] {
				added = append(added, ref)
			}
		}
	}
	return added
}

// Holds reports whether the snapshot has a row with ref's id or natural key.
func (s Snapshot) Holds(ref RowRef) bool {
	var value any
	switch ref.Field {
	case FieldParticipants:
		value = s.Participants
	case FieldSubmissions:
		value = s.Submissions
	case FieldVotes:
		value = s.Votes
	default:
		return false
	}
	for _, row := range rowRefs(ref.Field, value) {
		if row.ID == ref.ID || (ref.Key != "" && row.Key == ref.Key) {
			return true
		}
	}
	return false
}

func rowRefs(field Field, value any) []RowRef {
	var refs []RowRef
	switch rows := value.(type) {
	case []models.Participant:
		for _, p := range rows {
			refs = append(refs, RowRef{Field: field, ID: p.ID, Key: p.UserID})
		}
	case []models.Submission:
		for _, sub := range rows {
			refs = append(refs, RowRef{Field: field, ID: sub.ID, Key: sub.UserID})
		}
	case []models.Vote:
		for _, v := range rows {
			refs = append(refs, RowRef{Field: field, ID: v.ID, Key: v.VoterID})
		}
	}
	return refs
}
