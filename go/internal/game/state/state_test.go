package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

func pack(id string) *string { return &id }

func TestSnapshotFieldsDerivesCurrentUserFlags(t *testing.T) {
	snap := Snapshot{
		Session: &models.Session{ID: "s1", Phase: models.PhaseVoting},
		Participants: []models.Participant{
			{ID: "p1", UserID: "alice", IsReady: true, SelectedPackID: pack("animals")},
			{ID: "p2", UserID: "bob"},
		},
		Submissions: []models.Submission{{ID: "sub1", UserID: "alice"}},
		Votes:       []models.Vote{{ID: "v1", VoterID: "bob", SubmissionID: "sub1"}},
	}

	alice := snap.Fields("alice")
	assert.Equal(t, true, alice[FieldIsReady])
	assert.Equal(t, "animals", alice[FieldSelectedPack])
	assert.Equal(t, true, alice[FieldHasSubmitted])
	assert.Equal(t, false, alice[FieldHasVoted])

	bob := snap.Fields("bob")
	assert.Equal(t, false, bob[FieldIsReady])
	assert.Equal(t, "", bob[FieldSelectedPack])
	assert.Equal(t, true, bob[FieldHasVoted])
}

func TestSnapshotFieldsOmitsNilSession(t *testing.T) {
	d := Snapshot{}.Fields("alice")
	_, ok := d[FieldSession]
	assert.False(t, ok)
}

func TestSnapshotUpsertKeepsOneRowPerUser(t *testing.T) {
	snap := Snapshot{}
	snap.UpsertVote(models.Vote{ID: "v1", VoterID: "alice", SubmissionID: "a"})
	snap.UpsertVote(models.Vote{ID: "v2", VoterID: "alice", SubmissionID: "b"})
	snap.UpsertSubmission(models.Submission{ID: "s1", UserID: "alice"})
	snap.UpsertSubmission(models.Submission{ID: "s1", UserID: "alice", DrawingRef: "x"})
	snap.UpsertParticipant(models.Participant{ID: "p1", UserID: "alice"})
	snap.UpsertParticipant(models.Participant{ID: "p1", UserID: "alice", IsReady: true})

	require.Len(t, snap.Votes, 1)
	assert.Equal(t, "b", snap.Votes[0].SubmissionID)
	require.Len(t, snap.Submissions, 1)
	assert.Equal(t, "x", snap.Submissions[0].DrawingRef)
	require.Len(t, snap.Participants, 1)
	assert.True(t, snap.Participants[0].IsReady)

	snap.RemoveVote("v2")
	snap.RemoveSubmission("s1")
	snap.RemoveParticipant("p1")
	assert.Empty(t, snap.Votes)
	assert.Empty(t, snap.Submissions)
	assert.Empty(t, snap.Participants)
}

func TestReduce(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Session:      &models.Session{ID: "s1", Phase: models.PhaseDrawing, PhaseDeadline: &deadline},
		Participants: []models.Participant{{ID: "p1", UserID: "alice", IsReady: true}},
	}

	cases := []struct {
		name   string
		start  SessionState
		action Action
		check  func(t *testing.T, got SessionState)
	}{
		{
			name:   "snapshot loaded seeds collections and flags",
			start:  New("alice"),
			action: SnapshotLoaded{Snapshot: snap},
			check: func(t *testing.T, got SessionState) {
				assert.Equal(t, models.PhaseDrawing, got.Phase())
				assert.Len(t, got.Participants, 1)
				assert.True(t, got.IsReady)
			},
		},
		{
			name:   "delta applied writes typed fields",
			start:  New("alice"),
			action: DeltaApplied{Delta: Delta{FieldHasVoted: true, FieldSelectedPack: "food"}},
			check: func(t *testing.T, got SessionState) {
				assert.True(t, got.HasVoted)
				assert.Equal(t, "food", got.SelectedPackID)
			},
		},
		{
			name:   "delta with wrong type is skipped",
			start:  New("alice"),
			action: DeltaApplied{Delta: Delta{FieldIsReady: "yes"}},
			check: func(t *testing.T, got SessionState) {
				assert.False(t, got.IsReady)
			},
		},
		{
			name:   "timer updated mirrors countdown",
			start:  New("alice"),
			action: TimerUpdated{Remaining: 0, Expired: true},
			check: func(t *testing.T, got SessionState) {
				assert.True(t, got.TimerExpired)
			},
		},
		{
			name:   "error set and loading set",
			start:  Reduce(New("alice"), LoadingSet{Loading: true}),
			action: ErrorSet{Message: "boom"},
			check: func(t *testing.T, got SessionState) {
				assert.True(t, got.IsLoading)
				assert.Equal(t, "boom", got.Error)
			},
		},
		{
			name:   "replaced keeps current user",
			start:  New("alice"),
			action: Replaced{State: New("mallory")},
			check: func(t *testing.T, got SessionState) {
				assert.Equal(t, "alice", got.CurrentUserID)
			},
		},
		{
			name:   "reset clears everything",
			start:  Reduce(New("alice"), SnapshotLoaded{Snapshot: snap}),
			action: Reset{},
			check: func(t *testing.T, got SessionState) {
				assert.Nil(t, got.Session)
				assert.Empty(t, got.Participants)
				assert.Equal(t, models.PhaseWaiting, got.Phase())
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Reduce(tc.start, tc.action))
		})
	}
}

func TestReduceDoesNotAliasInput(t *testing.T) {
	start := Reduce(New("alice"), SnapshotLoaded{Snapshot: Snapshot{
		Participants: []models.Participant{{ID: "p1", UserID: "alice"}},
	}})
	next := Reduce(start, LoadingSet{Loading: true})
	next.Participants[0].IsReady = true

	assert.False(t, start.Participants[0].IsReady)
}

func TestCaptureCopiesCollections(t *testing.T) {
	s := New("alice")
	s.Participants = []models.Participant{{ID: "p1", UserID: "alice"}}
	d := s.Capture(FieldParticipants, FieldIsReady)

	s.Participants[0].IsReady = true
	captured := d[FieldParticipants].([]models.Participant)
	assert.False(t, captured[0].IsReady)
	assert.Equal(t, false, d[FieldIsReady])
}

func TestKindFields(t *testing.T) {
	assert.True(t, UpdateReadyToggle.Owns(FieldIsReady))
	assert.True(t, UpdateVoteCast.Owns(FieldVotes))
	assert.False(t, UpdateJoin.Owns(FieldIsReady))
	assert.True(t, FieldError.UIOnly())
	assert.False(t, FieldSession.UIOnly())
}
