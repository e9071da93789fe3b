package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

func TestParseEventPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	event, err := NewEvent("s1", EventTypeVoteChanged, VoteChangedPayload{
		Op:     OpInsert,
		Record: models.Vote{ID: "v1", VoterID: "alice", SubmissionID: "sub1"},
	}, at)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)

	payload, err := ParseEventPayload(event)
	require.NoError(t, err)
	vote, ok := payload.(VoteChangedPayload)
	require.True(t, ok)
	assert.Equal(t, OpInsert, vote.Op)
	assert.Equal(t, "alice", vote.Record.VoterID)
}

func TestParseEventPayloadTimerSync(t *testing.T) {
	event, err := NewEvent("s1", EventTypeTimerSync, TimerSyncPayload{
		SessionID: "s1",
		SenderID:  "bob",
		Phase:     models.PhaseDrawing,
		Remaining: 42,
		Total:     90,
	}, time.Now())
	require.NoError(t, err)

	payload, err := ParseEventPayload(event)
	require.NoError(t, err)
	assert.Equal(t, 42, payload.(TimerSyncPayload).Remaining)
}

func TestParseEventPayloadRejectsBadInput(t *testing.T) {
	_, err := ParseEventPayload(SessionEvent{Type: "Nope", Data: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = ParseEventPayload(SessionEvent{
		Type: EventTypeParticipantChanged,
		Data: []byte(`{"op":"TRUNCATE","record":{}}`),
	})
	assert.Error(t, err)

	_, err = ParseEventPayload(SessionEvent{
		Type: EventTypeSubmissionChanged,
		Data: []byte(`not json`),
	})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	event, err := Decode([]byte(`{"id":"e1","session_id":"s1","type":"SessionChanged","data":{"op":"UPDATE","record":{"id":"s1","phase":"voting"}}}`))
	require.NoError(t, err)

	payload, err := ParseEventPayload(event)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, payload.(SessionChangedPayload).Record.Phase)

	_, err = Decode([]byte(`{"id":"e1","type":"SessionChanged"}`))
	assert.Error(t, err)
}
