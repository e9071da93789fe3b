// Package events defines the realtime envelope shared by every feed and the
// payloads it carries.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownEventType = errors.New("unknown event type")

// SessionEvent is the envelope for every realtime notification.
type SessionEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType names the payload carried in Data.
type EventType string

const (
	EventTypeParticipantChanged EventType = "ParticipantChanged"
	EventTypeSubmissionChanged  EventType = "SubmissionChanged"
	EventTypeVoteChanged        EventType = "VoteChanged"
	EventTypeSessionChanged     EventType = "SessionChanged"
	EventTypeTimerSync          EventType = "TimerSync"
)

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(sessionID string, eventType EventType, payload any, at time.Time) (SessionEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return SessionEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Decode parses a raw envelope.
func Decode(raw []byte) (SessionEvent, error) {
	var event SessionEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return SessionEvent{}, fmt.Errorf("failed to unmarshal session event: %w", err)
	}
	if event.SessionID == "" {
		return SessionEvent{}, errors.New("session event has no session_id")
	}
	return event, nil
}

// ParseEventPayload parses event data into the matching payload struct.
func ParseEventPayload(event SessionEvent) (any, error) {
	switch event.Type {
	case EventTypeParticipantChanged:
		return decodeRowChange[ParticipantChangedPayload](event.Data, func(p ParticipantChangedPayload) Op { return p.Op })

	case EventTypeSubmissionChanged:
		return decodeRowChange[SubmissionChangedPayload](event.Data, func(p SubmissionChangedPayload) Op { return p.Op })

	case EventTypeVoteChanged:
		return decodeRowChange[VoteChangedPayload](event.Data, func(p VoteChangedPayload) Op { return p.Op })

	case EventTypeSessionChanged:
		return decodeRowChange[SessionChangedPayload](event.Data, func(p SessionChangedPayload) Op { return p.Op })

	case EventTypeTimerSync:
		var payload TimerSyncPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}
}

func decodeRowChange[T any](data json.RawMessage, op func(T) Op) (T, error) {
	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, err
	}
	if o := op(payload); !o.Valid() {
		return payload, fmt.Errorf("invalid row change op %q", o)
	}
	return payload, nil
}
