package snapshot

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries reads and seeds session rows in Postgres.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx binds the queries to tx so a snapshot reads one consistent view.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type GameSession struct {
	ID            uuid.UUID
	Prompt        string
	Phase         string
	BriefingSec   int32
	DrawingSec    int32
	VotingSec     int32
	ResultsSec    int32
	PhaseDeadline sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SessionParticipant struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	UserID         uuid.UUID
	DisplayName    string
	AvatarUrl      sql.NullString
	IsReady        bool
	SelectedPackID sql.NullString
	JoinedAt       time.Time
	LeftAt         sql.NullTime
}

type SessionSubmission struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	UserID      uuid.UUID
	DrawingRef  string
	Metadata    pqtype.NullRawMessage
	SubmittedAt time.Time
}

type SessionVote struct {
	ID           uuid.UUID
	SessionID    uuid.UUID
	VoterID      uuid.UUID
	SubmissionID uuid.UUID
	CastAt       time.Time
}

const getSession = `-- name: GetSession :one
SELECT id, prompt, phase, briefing_sec, drawing_sec, voting_sec, results_sec, phase_deadline, created_at, updated_at
FROM game_sessions
WHERE id = $1
`

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (GameSession, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i GameSession
	err := row.Scan(
		&i.ID,
		&i.Prompt,
		&i.Phase,
		&i.BriefingSec,
		&i.DrawingSec,
		&i.VotingSec,
		&i.ResultsSec,
		&i.PhaseDeadline,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listParticipants = `-- name: ListParticipants :many
SELECT id, session_id, user_id, display_name, avatar_url, is_ready, selected_pack_id, joined_at, left_at
FROM session_participants
WHERE session_id = $1
ORDER BY joined_at, id
`

func (q *Queries) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]SessionParticipant, error) {
	rows, err := q.db.QueryContext(ctx, listParticipants, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionParticipant
	for rows.Next() {
		var i SessionParticipant
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.UserID,
			&i.DisplayName,
			&i.AvatarUrl,
			&i.IsReady,
			&i.SelectedPackID,
			&i.JoinedAt,
			&i.LeftAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSubmissions = `-- name: ListSubmissions :many
SELECT id, session_id, user_id, drawing_ref, metadata, submitted_at
FROM session_submissions
WHERE session_id = $1
ORDER BY submitted_at, id
`

func (q *Queries) ListSubmissions(ctx context.Context, sessionID uuid.UUID) ([]SessionSubmission, error) {
	rows, err := q.db.QueryContext(ctx, listSubmissions, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionSubmission
	for rows.Next() {
		var i SessionSubmission
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.UserID,
			&i.DrawingRef,
			&i.Metadata,
			&i.SubmittedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVotes = `-- name: ListVotes :many
SELECT id, session_id, voter_id, submission_id, cast_at
FROM session_votes
WHERE session_id = $1
ORDER BY cast_at, id
`

func (q *Queries) ListVotes(ctx context.Context, sessionID uuid.UUID) ([]SessionVote, error) {
	rows, err := q.db.QueryContext(ctx, listVotes, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SessionVote
	for rows.Next() {
		var i SessionVote
		if err := rows.Scan(
			&i.ID,
			&i.SessionID,
			&i.VoterID,
			&i.SubmissionID,
			&i.CastAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createSession = `-- name: CreateSession :one
INSERT INTO game_sessions (prompt, phase, phase_deadline)
VALUES ($1, $2, $3)
RETURNING id
`

type CreateSessionParams struct {
	Prompt        string
	Phase         string
	PhaseDeadline sql.NullTime
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (uuid.UUID, error) {
	row := q.db.QueryRowContext(ctx, createSession, arg.Prompt, arg.Phase, arg.PhaseDeadline)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const createParticipant = `-- name: CreateParticipant :exec
INSERT INTO session_participants (
  session_id, user_id, display_name, is_ready, selected_pack_id
) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, user_id) DO NOTHING
`

type CreateParticipantParams struct {
	SessionID      uuid.UUID
	UserID         uuid.UUID
	DisplayName    string
	IsReady        bool
	SelectedPackID sql.NullString
}

func (q *Queries) CreateParticipant(ctx context.Context, arg CreateParticipantParams) error {
	_, err := q.db.ExecContext(ctx, createParticipant,
		arg.SessionID,
		arg.UserID,
		arg.DisplayName,
		arg.IsReady,
		arg.SelectedPackID,
	)
	return err
}

const createSubmission = `-- name: CreateSubmission :exec
INSERT INTO session_submissions (session_id, user_id, drawing_ref, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id, user_id) DO NOTHING
`

type CreateSubmissionParams struct {
	SessionID  uuid.UUID
	UserID     uuid.UUID
	DrawingRef string
	Metadata   pqtype.NullRawMessage
}

func (q *Queries) CreateSubmission(ctx context.Context, arg CreateSubmissionParams) error {
	_, err := q.db.ExecContext(ctx, createSubmission,
		arg.SessionID,
		arg.UserID,
		arg.DrawingRef,
		arg.Metadata,
	)
	return err
}
