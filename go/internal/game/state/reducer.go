package state

import (
	"github.com/rs/zerolog/log"
)

// Action is a state transition request. The set of actions is closed.
type Action interface{ isAction() }

// SnapshotLoaded seeds the state from a server snapshot, discarding any
// previous server-derived fields.
type SnapshotLoaded struct {
	Snapshot Snapshot
}

// Replaced swaps in a fully reconciled state in one step.
type Replaced struct {
	State SessionState
}

// DeltaApplied writes a partial state, typically an optimistic update or its
// rollback.
type DeltaApplied struct {
	Delta Delta
}

// TimerUpdated mirrors the countdown into the state.
type TimerUpdated struct {
	Remaining int
	Expired   bool
}

// LoadingSet toggles the loading indicator.
type LoadingSet struct {
	Loading bool
}

// ErrorSet records a user-visible error. An empty message clears it.
type ErrorSet struct {
	Message string
}

// Reset returns to an empty state for the same user.
type Reset struct{}

func (SnapshotLoaded) isAction() {}
func (Replaced) isAction()       {}
func (DeltaApplied) isAction()   {}
func (TimerUpdated) isAction()   {}
func (LoadingSet) isAction()     {}
func (ErrorSet) isAction()       {}
func (Reset) isAction()          {}

// Reduce returns the state that results from applying a to s. s is not
// modified.
func Reduce(s SessionState, a Action) SessionState {
	next := s.Clone()

	switch act := a.(type) {
	case SnapshotLoaded:
		for field, value := range act.Snapshot.Fields(s.CurrentUserID) {
			next.Set(field, value)
		}

	case Replaced:
		next = act.State.Clone()
		next.CurrentUserID = s.CurrentUserID

	case DeltaApplied:
		next = Apply(next, act.Delta)

	case TimerUpdated:
		next.TimeRemaining = act.Remaining
		next.TimerExpired = act.Expired

	case LoadingSet:
		next.IsLoading = act.Loading

	case ErrorSet:
		next.Error = act.Message

	case Reset:
		next = New(s.CurrentUserID)
	}

	return next
}

// Apply writes every field of d onto a copy of s. Values with the wrong type
// for their field are skipped and logged.
func Apply(s SessionState, d Delta) SessionState {
	next := s.Clone()
	for field, value := range d {
		if !next.Set(field, value) {
			log.Warn().
				Str("field", string(field)).
				Msg("skipping delta value with unexpected type")
		}
	}
	return next
}
