package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/doodleduel/go/internal/models"
	"github.com/mcdev12/doodleduel/go/internal/sqlutil"
)

// Writer defines the inserts a seed needs.
type Writer interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (uuid.UUID, error)
	CreateParticipant(ctx context.Context, arg CreateParticipantParams) error
	CreateSubmission(ctx context.Context, arg CreateSubmissionParams) error
}

// SeedPlayer is one participant to create. A non-empty DrawingRef also
// creates their submission.
type SeedPlayer struct {
	UserID      uuid.UUID
	DisplayName string
	Ready       bool
	PackID      *string
	DrawingRef  string
	Metadata    json.RawMessage
}

// SeedSession describes a session to create for local testing.
type SeedSession struct {
	Prompt   string
	Phase    models.Phase
	Deadline *time.Time
	Players  []SeedPlayer
}

// Seeder writes seed sessions.
type Seeder struct {
	run func(ctx context.Context, fn func(w Writer) error) error
}

// NewSeeder writes each seed inside one transaction so listeners never see
// a half-built lobby.
func NewSeeder(db *sql.DB) *Seeder {
	return &Seeder{
		run: func(ctx context.Context, fn func(Writer) error) error {
			return sqlutil.Run(ctx, db, NewQueries(db).WithTx, func(q *Queries) error {
				return fn(q)
			})
		},
	}
}

// NewSeederWithWriter writes through w without a transaction.
func NewSeederWithWriter(w Writer) *Seeder {
	return &Seeder{
		run: func(_ context.Context, fn func(Writer) error) error { return fn(w) },
	}
}

// Seed creates the session and its players and returns the session id.
func (s *Seeder) Seed(ctx context.Context, seed SeedSession) (uuid.UUID, error) {
	if !seed.Phase.Valid() {
		return uuid.Nil, fmt.Errorf("invalid phase %q", seed.Phase)
	}

	var sessionID uuid.UUID
	err := s.run(ctx, func(w Writer) error {
		id, err := w.CreateSession(ctx, CreateSessionParams{
			Prompt:        seed.Prompt,
			Phase:         string(seed.Phase),
			PhaseDeadline: sqlutil.ToSqlTime(seed.Deadline),
		})
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		sessionID = id

		for _, p := range seed.Players {
			if err := w.CreateParticipant(ctx, CreateParticipantParams{
				SessionID:      id,
				UserID:         p.UserID,
				DisplayName:    p.DisplayName,
				IsReady:        p.Ready,
				SelectedPackID: sqlutil.ToSqlString(p.PackID),
			}); err != nil {
				return fmt.Errorf("insert participant %s: %w", p.DisplayName, err)
			}
			if p.DrawingRef == "" {
				continue
			}
			if err := w.CreateSubmission(ctx, CreateSubmissionParams{
				SessionID:  id,
				UserID:     p.UserID,
				DrawingRef: p.DrawingRef,
				Metadata:   sqlutil.ToNullRawMessage(p.Metadata),
			}); err != nil {
				return fmt.Errorf("insert submission for %s: %w", p.DisplayName, err)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return sessionID, nil
}
