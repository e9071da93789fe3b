package phase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

func stateIn(p models.Phase, participants ...models.Participant) state.SessionState {
	s := state.New("alice")
	s.Session = &models.Session{ID: "s1", Phase: p}
	s.Participants = participants
	return s
}

func TestIsValidPhaseTransitionExhaustive(t *testing.T) {
	adjacent := map[[2]models.Phase]bool{
		{models.PhaseWaiting, models.PhaseBriefing}:  true,
		{models.PhaseBriefing, models.PhaseDrawing}:  true,
		{models.PhaseDrawing, models.PhaseVoting}:    true,
		{models.PhaseVoting, models.PhaseResults}:    true,
		{models.PhaseResults, models.PhaseCompleted}: true,
	}

	for _, from := range models.Phases {
		for _, to := range models.Phases {
			want := adjacent[[2]models.Phase{from, to}]
			assert.Equal(t, want, IsValidPhaseTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, IsValidPhaseTransition("bogus", models.PhaseBriefing))
}

func TestNextFromCompleted(t *testing.T) {
	_, ok := Next(models.PhaseCompleted)
	assert.False(t, ok)
}

func TestCanTransitionRejectsNonAdjacent(t *testing.T) {
	_, err := CanTransition(stateIn(models.PhaseWaiting), models.PhaseVoting)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestTransitionConditions(t *testing.T) {
	two := []models.Participant{{UserID: "alice", IsReady: true}, {UserID: "bob", IsReady: true}}

	cases := []struct {
		name    string
		setup   func() state.SessionState
		to      models.Phase
		allowed bool
	}{
		{
			name:    "waiting needs two players",
			setup:   func() state.SessionState { return stateIn(models.PhaseWaiting, two[0]) },
			to:      models.PhaseBriefing,
			allowed: false,
		},
		{
			name: "waiting needs everyone ready",
			setup: func() state.SessionState {
				return stateIn(models.PhaseWaiting, two[0], models.Participant{UserID: "bob"})
			},
			to:      models.PhaseBriefing,
			allowed: false,
		},
		{
			name:    "waiting with everyone ready",
			setup:   func() state.SessionState { return stateIn(models.PhaseWaiting, two...) },
			to:      models.PhaseBriefing,
			allowed: true,
		},
		{
			name:    "briefing waits for timer",
			setup:   func() state.SessionState { return stateIn(models.PhaseBriefing, two...) },
			to:      models.PhaseDrawing,
			allowed: false,
		},
		{
			name: "briefing after timer",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseBriefing, two...)
				s.TimerExpired = true
				return s
			},
			to:      models.PhaseDrawing,
			allowed: true,
		},
		{
			name: "drawing with one submission each",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseDrawing, two...)
				s.Submissions = []models.Submission{{ID: "1", UserID: "alice"}, {ID: "2", UserID: "bob"}}
				return s
			},
			to:      models.PhaseVoting,
			allowed: true,
		},
		{
			name: "drawing with a missing submission",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseDrawing, two...)
				s.Submissions = []models.Submission{{ID: "1", UserID: "alice"}}
				return s
			},
			to:      models.PhaseVoting,
			allowed: false,
		},
		{
			name: "drawing with a duplicate submission is not exactly one",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseDrawing, two...)
				s.Submissions = []models.Submission{{ID: "1", UserID: "alice"}, {ID: "2", UserID: "alice"}, {ID: "3", UserID: "bob"}}
				return s
			},
			to:      models.PhaseVoting,
			allowed: false,
		},
		{
			name: "drawing after timer",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseDrawing, two...)
				s.TimerExpired = true
				return s
			},
			to:      models.PhaseVoting,
			allowed: true,
		},
		{
			name: "voting once everyone voted",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseVoting, two...)
				s.Votes = []models.Vote{{ID: "1", VoterID: "alice"}, {ID: "2", VoterID: "bob"}}
				return s
			},
			to:      models.PhaseResults,
			allowed: true,
		},
		{
			name: "voting with missing votes",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseVoting, two...)
				s.Votes = []models.Vote{{ID: "1", VoterID: "alice"}}
				return s
			},
			to:      models.PhaseResults,
			allowed: false,
		},
		{
			name: "results after timer",
			setup: func() state.SessionState {
				s := stateIn(models.PhaseResults, two...)
				s.TimerExpired = true
				return s
			},
			to:      models.PhaseCompleted,
			allowed: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := CanTransition(tc.setup(), tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, d.Allowed, d.Reason)
			if !tc.allowed {
				assert.ErrorIs(t, d.Err(), ErrConditionsNotMet)
			}
		})
	}
}

func TestCanAdvance(t *testing.T) {
	_, _, ok := CanAdvance(stateIn(models.PhaseCompleted))
	assert.False(t, ok)

	s := stateIn(models.PhaseBriefing)
	s.TimerExpired = true
	to, d, ok := CanAdvance(s)
	require.True(t, ok)
	assert.Equal(t, models.PhaseDrawing, to)
	assert.True(t, d.Allowed)
}

func TestCanPlayerPerformAction(t *testing.T) {
	cases := []struct {
		action Action
		phase  models.Phase
		status models.PlayerStatus
		want   bool
	}{
		{ActionJoin, models.PhaseWaiting, "", true},
		{ActionJoin, models.PhaseDrawing, "", false},
		{ActionReadyToggle, models.PhaseWaiting, models.PlayerStatusInLobby, true},
		{ActionReadyToggle, models.PhaseWaiting, models.PlayerStatusInGame, false},
		{ActionReadyToggle, models.PhaseBriefing, models.PlayerStatusInLobby, false},
		{ActionSubmit, models.PhaseDrawing, models.PlayerStatusInGame, true},
		{ActionSubmit, models.PhaseVoting, models.PlayerStatusInGame, false},
		{ActionSubmit, models.PhaseDrawing, models.PlayerStatusDisconnected, false},
		{ActionVote, models.PhaseVoting, models.PlayerStatusInGame, true},
		{ActionVote, models.PhaseDrawing, models.PlayerStatusInGame, false},
		{"dance", models.PhaseWaiting, models.PlayerStatusInLobby, false},
	}

	for _, tc := range cases {
		got := CanPlayerPerformAction(tc.action, tc.phase, tc.status)
		assert.Equal(t, tc.want, got, "%s in %s as %s", tc.action, tc.phase, tc.status)
	}
}
