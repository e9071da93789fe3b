package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/doodleduel/go/internal/game/state"
	"github.com/mcdev12/doodleduel/go/internal/models"
)

// SessionServiceName is the fully-qualified name of the session service.
const SessionServiceName = "doodleduel.session.v1.SessionService"

// Procedure paths of the session service.
const (
	JoinSessionProcedure            = "/" + SessionServiceName + "/JoinSession"
	LeaveSessionProcedure           = "/" + SessionServiceName + "/LeaveSession"
	SetReadyProcedure               = "/" + SessionServiceName + "/SetReady"
	SelectBoosterPackProcedure      = "/" + SessionServiceName + "/SelectBoosterPack"
	SubmitDrawingProcedure          = "/" + SessionServiceName + "/SubmitDrawing"
	CastVoteProcedure               = "/" + SessionServiceName + "/CastVote"
	RequestPhaseTransitionProcedure = "/" + SessionServiceName + "/RequestPhaseTransition"
	FetchSnapshotProcedure          = "/" + SessionServiceName + "/FetchSnapshot"
)

type structClient = connect.Client[structpb.Struct, structpb.Struct]

// ConnectService implements Service over Connect unary calls. Messages are
// google.protobuf.Struct values keyed by snake_case field names.
type ConnectService struct {
	join       *structClient
	leave      *structClient
	setReady   *structClient
	selectPack *structClient
	submit     *structClient
	vote       *structClient
	transition *structClient
	snapshot   *structClient
}

// NewConnectService constructs a client for the session service at baseURL.
func NewConnectService(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ConnectService {
	baseURL = strings.TrimRight(baseURL, "/")
	newClient := func(procedure string) *structClient {
		return connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+procedure, opts...)
	}
	return &ConnectService{
		join:       newClient(JoinSessionProcedure),
		leave:      newClient(LeaveSessionProcedure),
		setReady:   newClient(SetReadyProcedure),
		selectPack: newClient(SelectBoosterPackProcedure),
		submit:     newClient(SubmitDrawingProcedure),
		vote:       newClient(CastVoteProcedure),
		transition: newClient(RequestPhaseTransitionProcedure),
		snapshot:   newClient(FetchSnapshotProcedure),
	}
}

func (c *ConnectService) JoinSession(ctx context.Context, sessionID, userID string) (Result, error) {
	return c.call(ctx, c.join, "join session", map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
	})
}

func (c *ConnectService) LeaveSession(ctx context.Context, sessionID, userID string) (Result, error) {
	return c.call(ctx, c.leave, "leave session", map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
	})
}

func (c *ConnectService) SetReady(ctx context.Context, sessionID, userID string, ready bool) (Result, error) {
	return c.call(ctx, c.setReady, "set ready", map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"is_ready":   ready,
	})
}

func (c *ConnectService) SelectBoosterPack(ctx context.Context, sessionID, userID, packID string) (Result, error) {
	return c.call(ctx, c.selectPack, "select booster pack", map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"pack_id":    packID,
	})
}

func (c *ConnectService) SubmitDrawing(ctx context.Context, sessionID, userID string, drawing Drawing) (Result, error) {
	return c.call(ctx, c.submit, "submit drawing", map[string]any{
		"session_id":  sessionID,
		"user_id":     userID,
		"drawing_ref": drawing.Ref,
		"metadata":    string(drawing.Metadata),
	})
}

func (c *ConnectService) CastVote(ctx context.Context, sessionID, voterID, submissionID string) (Result, error) {
	return c.call(ctx, c.vote, "cast vote", map[string]any{
		"session_id":    sessionID,
		"voter_id":      voterID,
		"submission_id": submissionID,
	})
}

func (c *ConnectService) RequestPhaseTransition(ctx context.Context, sessionID string, from, to models.Phase) (Result, error) {
	return c.call(ctx, c.transition, "request phase transition", map[string]any{
		"session_id": sessionID,
		"from_phase": string(from),
		"to_phase":   string(to),
	})
}

// FetchSnapshot loads the full server view. The response carries it as a
// JSON document in the "snapshot" field.
func (c *ConnectService) FetchSnapshot(ctx context.Context, sessionID string) (state.Snapshot, error) {
	req, err := structpb.NewStruct(map[string]any{"session_id": sessionID})
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to build fetch snapshot request: %w", err)
	}

	resp, err := c.snapshot.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	raw := resp.Msg.GetFields()["snapshot"].GetStringValue()
	if raw == "" {
		return state.Snapshot{}, fmt.Errorf("fetch snapshot: empty response for session %s", sessionID)
	}

	var snap state.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

func (c *ConnectService) call(ctx context.Context, client *structClient, op string, fields map[string]any) (Result, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build %s request: %w", op, err)
	}

	resp, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return Result{}, fmt.Errorf("failed to %s: %w", op, err)
	}

	msg := resp.Msg.GetFields()
	return Result{
		Success: msg["success"].GetBoolValue(),
		Message: msg["message"].GetStringValue(),
	}, nil
}
