// Package snapshot reads the authoritative session view straight from
// Postgres. It serves as the snapshot source when the client runs next to
// the database, bypassing the RPC service for reads.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
	"github.com/mcdev12/doodleduel/go/internal/sqlutil"
)

var ErrSessionNotFound = errors.New("session not found")

// Querier defines what the repository needs from the database layer
type Querier interface {
	GetSession(ctx context.Context, id uuid.UUID) (GameSession, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]SessionParticipant, error)
	ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]SessionSubmission, error)
	ListVotes(ctx context.Context, sessionID uuid.UUID) ([]SessionVote, error)
}

// Repository implements snapshot reads
type Repository struct {
	run func(ctx context.Context, fn func(q Querier) error) error
}

// NewRepository reads every snapshot inside one read-only transaction.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		run: func(ctx context.Context, fn func(q Querier) error) error {
			return sqlutil.RunReadOnly(ctx, db, NewQueries(db).WithTx, func(q *Queries) error {
				return fn(q)
			})
		},
	}
}

// NewRepositoryWithQuerier reads through q without a transaction.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{
		run: func(_ context.Context, fn func(Querier) error) error { return fn(q) },
	}
}

// FetchSnapshot loads the session with its participants, submissions and votes.
func (r *Repository) FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("invalid session id %q: %w", sessionID, err)
	}

	var snap state.Snapshot
	err = r.run(ctx, func(q Querier) error {
		session, err := q.GetSession(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}

		participants, err := q.ListParticipants(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		submissions, err := q.ListSubmissions(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list submissions: %w", err)
		}
		votes, err := q.ListVotes(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list votes: %w", err)
		}

		snap = state.Snapshot{
			Session:      dbSessionToModel(session),
			Participants: make([]models.Participant, 0, len(participants)),
			Submissions:  make([]models.Submission, 0, len(submissions)),
			Votes:        make([]models.Vote, 0, len(votes)),
		}
		for _, p := range participants {
			snap.Participants = append(snap.Participants, dbParticipantToModel(p))
		}
		for _, s := range submissions {
			snap.Submissions = append(snap.Submissions, dbSubmissionToModel(s))
		}
		for _, v := range votes {
			snap.Votes = append(snap.Votes, dbVoteToModel(v))
		}
		return nil
	})
	if err != nil {
		return state.Snapshot{}, err
	}
	return snap, nil
}

func dbSessionToModel(s GameSession) *models.Session {
	return &models.Session{
		ID:     s.ID.String(),
		Prompt: s.Prompt,
		Durations: models.PhaseDurations{
			BriefingSec: int(s.BriefingSec),
			DrawingSec:  int(s.DrawingSec),
			VotingSec:   int(s.VotingSec),
			ResultsSec:  int(s.ResultsSec),
		},
		Phase:         models.Phase(s.Phase),
		PhaseDeadline: sqlutil.FromSqlTime(s.PhaseDeadline),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func dbParticipantToModel(p SessionParticipant) models.Participant {
	return models.Participant{
		ID:             p.ID.String(),
		SessionID:      p.SessionID.String(),
		UserID:         p.UserID.String(),
		DisplayName:    p.DisplayName,
		AvatarURL:      sqlutil.FromSqlString(p.AvatarUrl, ""),
		IsReady:        p.IsReady,
		SelectedPackID: sqlutil.FromSqlStringPtr(p.SelectedPackID),
		JoinedAt:       p.JoinedAt,
		LeftAt:         sqlutil.FromSqlTime(p.LeftAt),
	}
}

func dbSubmissionToModel(s SessionSubmission) models.Submission {
	return models.Submission{
		ID:          s.ID.String(),
		SessionID:   s.SessionID.String(),
		UserID:      s.UserID.String(),
		DrawingRef:  s.DrawingRef,
		Metadata:    sqlutil.FromNullRawMessage(s.Metadata),
		SubmittedAt: s.SubmittedAt,
	}
}

func dbVoteToModel(v SessionVote) models.Vote {
	return models.Vote{
		ID:           v.ID.String(),
		SessionID:    v.SessionID.String(),
		VoterID:      v.VoterID.String(),
		SubmissionID: v.SubmissionID.String(),
		CastAt:       v.CastAt,
	}
}
