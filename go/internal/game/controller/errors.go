package controller

import (
	"errors"
	"fmt"
)

var (
	ErrActionNotAllowed = errors.New("action not allowed")
	ErrServerRejected   = errors.New("server rejected action")
	ErrNotParticipant   = errors.New("user is not a participant")
	ErrAlreadyJoined    = errors.New("user already joined")
	ErrAlreadySubmitted = errors.New("drawing already submitted")
	ErrAlreadyVoted     = errors.New("vote already cast")
	ErrInvalidVote      = errors.New("invalid vote")
	ErrNoSession        = errors.New("session not loaded")
	ErrClosed           = errors.New("controller closed")
)

// RejectionError reports a server call that failed or returned an
// unsuccessful result. It matches ErrServerRejected and, when the call itself
// failed, the transport error.
type RejectionError struct {
	Action  string
	Message string
	Cause   error
}

func (e *RejectionError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s failed: %v", e.Action, e.Cause)
	case e.Message != "":
		return fmt.Sprintf("server rejected %s: %s", e.Action, e.Message)
	default:
		return fmt.Sprintf("server rejected %s", e.Action)
	}
}

func (e *RejectionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrServerRejected, e.Cause}
	}
	return []error{ErrServerRejected}
}

// userMessage is the text shown to the player for a rejection.
func (e *RejectionError) userMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("could not %s, please try again", e.Action)
}

func notAllowed(action string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrActionNotAllowed, action, reason)
}
