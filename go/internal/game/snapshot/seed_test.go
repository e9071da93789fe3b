package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/doodleduel/go/internal/models"
)

type fakeWriter struct {
	sessionID    uuid.UUID
	sessions     []CreateSessionParams
	participants []CreateParticipantParams
	submissions  []CreateSubmissionParams
	failOn       string
}

func (f *fakeWriter) CreateSession(_ context.Context, arg CreateSessionParams) (uuid.UUID, error) {
	f.sessions = append(f.sessions, arg)
	return f.sessionID, nil
}

func (f *fakeWriter) CreateParticipant(_ context.Context, arg CreateParticipantParams) error {
	if arg.DisplayName == f.failOn {
		return errors.New("unique violation")
	}
	f.participants = append(f.participants, arg)
	return nil
}

func (f *fakeWriter) CreateSubmission(_ context.Context, arg CreateSubmissionParams) error {
	f.submissions = append(f.submissions, arg)
	return nil
}

func TestSeedWritesNullableColumns(t *testing.T) {
	w := &fakeWriter{sessionID: uuid.New()}
	deadline := time.Date(2026, 5, 4, 10, 1, 30, 0, time.UTC)
	pack := "pack-1"
	ada, basquiat := uuid.New(), uuid.New()

	id, err := NewSeederWithWriter(w).Seed(context.Background(), SeedSession{
		Prompt:   "a cat",
		Phase:    models.PhaseDrawing,
		Deadline: &deadline,
		Players: []SeedPlayer{
			{UserID: ada, DisplayName: "Ada", Ready: true, PackID: &pack,
				DrawingRef: "blob://ada", Metadata: json.RawMessage(`{"strokes":12}`)},
			{UserID: basquiat, DisplayName: "Basquiat"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, w.sessionID, id)

	require.Len(t, w.sessions, 1)
	assert.Equal(t, "drawing", w.sessions[0].Phase)
	assert.True(t, w.sessions[0].PhaseDeadline.Valid)
	assert.True(t, deadline.Equal(w.sessions[0].PhaseDeadline.Time))

	require.Len(t, w.participants, 2)
	assert.Equal(t, id, w.participants[0].SessionID)
	assert.True(t, w.participants[0].SelectedPackID.Valid)
	assert.Equal(t, "pack-1", w.participants[0].SelectedPackID.String)
	assert.False(t, w.participants[1].SelectedPackID.Valid)

	require.Len(t, w.submissions, 1, "only players with a drawing submit")
	assert.Equal(t, ada, w.submissions[0].UserID)
	assert.JSONEq(t, `{"strokes":12}`, string(w.submissions[0].Metadata.RawMessage))
}

func TestSeedWithoutDeadlineOrMetadata(t *testing.T) {
	w := &fakeWriter{sessionID: uuid.New()}

	_, err := NewSeederWithWriter(w).Seed(context.Background(), SeedSession{
		Prompt:  "a dog",
		Phase:   models.PhaseWaiting,
		Players: []SeedPlayer{{UserID: uuid.New(), DisplayName: "Ada", DrawingRef: "blob://ada"}},
	})
	require.NoError(t, err)
	assert.False(t, w.sessions[0].PhaseDeadline.Valid)
	require.Len(t, w.submissions, 1)
	assert.False(t, w.submissions[0].Metadata.Valid)
}

func TestSeedErrors(t *testing.T) {
	_, err := NewSeederWithWriter(&fakeWriter{}).Seed(context.Background(), SeedSession{Phase: "lunch"})
	assert.Error(t, err)

	w := &fakeWriter{sessionID: uuid.New(), failOn: "Basquiat"}
	_, err = NewSeederWithWriter(w).Seed(context.Background(), SeedSession{
		Phase: models.PhaseWaiting,
		Players: []SeedPlayer{
			{UserID: uuid.New(), DisplayName: "Ada"},
			{UserID: uuid.New(), DisplayName: "Basquiat"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Basquiat")
}
