package session

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped by the gateway onto the public taxonomy.
var (
	// ErrInvalidState: the operation is not legal in the session's current
	// lifecycle state (e.g. finalize on an ended session).
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrNoQuestionsRemaining: the configured question budget is exhausted.
	ErrNoQuestionsRemaining = errors.New("no questions remaining")
	// ErrNotOwner: the authenticated user does not own the session. Surfaced
	// as not_found so session ids cannot be probed.
	ErrNotOwner = errors.New("session not owned by caller")
	// ErrPrecheckRequired: the session never passed pre-check.
	ErrPrecheckRequired = errors.New("pre-check has not passed")
)

// ValidationError reports a request that is well-formed but semantically
// invalid (bad config values, missing consent, unanswerable payload).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Msg)
}

// NewValidationError builds a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
