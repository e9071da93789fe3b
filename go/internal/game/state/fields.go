package state

// Field names a reconcilable slot of SessionState. The set is closed: deltas
// and pending-update tracking only ever refer to these names.
type Field string

const (
	FieldSession       Field = "session"
	FieldParticipants  Field = "participants"
	FieldSubmissions   Field = "submissions"
	FieldVotes         Field = "votes"
	FieldIsReady       Field = "is_ready"
	FieldSelectedPack  Field = "selected_pack_id"
	FieldHasSubmitted  Field = "has_submitted"
	FieldHasVoted      Field = "has_voted"
	FieldTimeRemaining Field = "time_remaining"
	FieldTimerExpired  Field = "timer_expired"
	FieldIsLoading     Field = "is_loading"
	FieldError         Field = "error"
)

// UIOnly reports whether the field belongs to the local presentation layer
// and must never be overwritten from a server snapshot.
func (f Field) UIOnly() bool {
	return f == FieldIsLoading || f == FieldError
}

// Collection reports whether the field holds an entity list merged by id.
func (f Field) Collection() bool {
	switch f {
	case FieldParticipants, FieldSubmissions, FieldVotes:
		return true
	default:
		return false
	}
}

// UpdateKind is the closed set of optimistic mutations a client may apply.
type UpdateKind string

const (
	UpdateReadyToggle      UpdateKind = "ready_toggle"
	UpdatePackSelection    UpdateKind = "pack_selection"
	UpdateDrawingSubmitted UpdateKind = "drawing_submitted"
	UpdateVoteCast         UpdateKind = "vote_cast"
	UpdateJoin             UpdateKind = "join"
	UpdateLeave            UpdateKind = "leave"
)

// KindFields declares which fields each update kind is allowed to touch.
var KindFields = map[UpdateKind][]Field{
	UpdateReadyToggle:      {FieldIsReady, FieldParticipants},
	UpdatePackSelection:    {FieldSelectedPack, FieldParticipants},
	UpdateDrawingSubmitted: {FieldHasSubmitted, FieldSubmissions},
	UpdateVoteCast:         {FieldHasVoted, FieldVotes},
	UpdateJoin:             {FieldParticipants},
	UpdateLeave:            {FieldParticipants},
}

// Owns reports whether kind is declared to touch field.
func (k UpdateKind) Owns(field Field) bool {
	for _, f := range KindFields[k] {
		if f == field {
			return true
		}
	}
	return false
}

// Delta is a partial SessionState keyed by field.
type Delta map[Field]any

// Fields returns the field names the delta mentions.
func (d Delta) Fields() []Field {
	fields := make([]Field, 0, len(d))
	for f := range d {
		fields = append(fields, f)
	}
	return fields
}
