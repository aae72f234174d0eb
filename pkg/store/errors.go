package store

import "errors"

// Sentinel errors shared by every Store implementation. The gateway maps
// these onto the public error taxonomy.
var (
	// ErrNotFound: no session, question, answer, or summary with that id.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists: duplicate append (second answer to a question).
	ErrAlreadyExists = errors.New("record already exists")
	// ErrStateConflict: compare-and-set lost; the session is not in the
	// expected state.
	ErrStateConflict = errors.New("session state conflict")
	// ErrTerminal: write attempted against a completed or ended session.
	ErrTerminal = errors.New("session is terminal")
	// ErrTokenConsumed: the one-shot upload token was already spent.
	ErrTokenConsumed = errors.New("upload token already consumed")
)
