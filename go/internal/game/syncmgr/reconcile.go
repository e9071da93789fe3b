package syncmgr

import (
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// Strategy selects how server values are folded into local state.
type Strategy string

const (
	// StrategyServerWins overwrites every non UI-only field.
	StrategyServerWins Strategy = "server_wins"
	// StrategyClientWins keeps local values for fields with unconfirmed updates.
	StrategyClientWins Strategy = "client_wins"
	// StrategyMerge takes the server collections plus the optimistic rows
	// the server has not seen yet. The current user's flags are derived from
	// the merged rows unless an unconfirmed update holds them.
	StrategyMerge Strategy = "merge"
	// StrategyLastWriteWins has no per-field timestamps to compare and
	// resolves as StrategyServerWins.
	StrategyLastWriteWins Strategy = "last_write_wins"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyServerWins, StrategyClientWins, StrategyMerge, StrategyLastWriteWins:
		return true
	default:
		return false
	}
}

// ReconcileState returns local with server folded in under strategy. It
// never fails; unknown strategies resolve as StrategyServerWins.
//
// Optimistic rows that server now holds stop being tracked, so a later
// server delete removes them like any other row.
func (m *Manager) ReconcileState(local state.SessionState, server state.Snapshot, strategy Strategy) state.SessionState {
	m.mu.Lock()
	pending := m.pendingFieldsLocked()
	optimistic := make(map[string]bool, len(m.unseen))
	for id, row := range m.unseen {
		if server.Holds(row.RowRef) {
			delete(m.unseen, id)
			continue
		}
		optimistic[id] = true
	}
	m.mu.Unlock()

	return reconcile(local, server, strategy, pending, optimistic)
}

func reconcile(local state.SessionState, server state.Snapshot, strategy Strategy, pending map[state.Field]bool, optimistic map[string]bool) state.SessionState {
	next := local.Clone()
	serverFields := server.Fields(local.CurrentUserID)

	switch strategy {
	case StrategyServerWins:
		overwrite(&next, serverFields, nil)

	case StrategyClientWins:
		overwrite(&next, serverFields, pending)

	case StrategyMerge:
		next.Participants = mergeByID(local.Participants, server.Participants, optimistic,
			func(p models.Participant) string { return p.ID },
			func(p models.Participant) string { return p.UserID })
		next.Submissions = mergeByID(local.Submissions, server.Submissions, optimistic,
			func(s models.Submission) string { return s.ID },
			func(s models.Submission) string { return s.UserID })
		next.Votes = mergeByID(local.Votes, server.Votes, optimistic,
			func(v models.Vote) string { return v.ID },
			func(v models.Vote) string { return v.VoterID })

		merged := state.Snapshot{
			Session:      server.Session,
			Participants: next.Participants,
			Submissions:  next.Submissions,
			Votes:        next.Votes,
		}.Fields(local.CurrentUserID)
		rest := make(state.Delta, len(merged))
		for f, v := range merged {
			if !f.Collection() {
				rest[f] = v
			}
		}
		overwrite(&next, rest, pending)

	case StrategyLastWriteWins:
		log.Debug().Msg("last_write_wins has no timestamps to compare; using server_wins")
		overwrite(&next, serverFields, nil)

	default:
		log.Warn().Str("strategy", string(strategy)).Msg("unknown reconcile strategy; using server_wins")
		overwrite(&next, serverFields, nil)
	}

	return next
}

// overwrite copies server values into s, skipping UI-only fields and any
// field marked in keep.
func overwrite(s *state.SessionState, server state.Delta, keep map[state.Field]bool) {
	for f, v := range server {
		if f.UIOnly() || keep[f] {
			continue
		}
		s.Set(f, v)
	}
}

// mergeByID returns the server entries followed by the optimistic local
// entries the server has not seen yet. Any other local-only entry is one the
// server no longer has and is dropped. A local entry is also dropped when the
// server already holds its id or another entry for the same natural key, so
// a user never ends up with two rows.
func mergeByID[T any](local, server []T, optimistic map[string]bool, id, naturalKey func(T) string) []T {
	out := make([]T, 0, len(server)+len(local))
	seenIDs := make(map[string]bool, len(server))
	seenKeys := make(map[string]bool, len(server))

	for _, item := range server {
		if seenIDs[id(item)] {
			continue
		}
		seenIDs[id(item)] = true
		seenKeys[naturalKey(item)] = true
		out = append(out, item)
	}
	for _, item := range local {
		if !optimistic[id(item)] || seenIDs[id(item)] || seenKeys[naturalKey(item)] {
			continue
		}
		seenIDs[id(item)] = true
		seenKeys[naturalKey(item)] = true
		out = append(out, item)
	}
	return out
}
