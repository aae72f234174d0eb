// Package store is the append-only persistence layer for interview sessions.
// Questions, answers, anti-cheat events, strikes, and summaries are only ever
// appended; the session row itself is the single mutable record and every
// update to it is a compare-and-set on the expected state.
package store

import (
	"context"
	"time"

	"github.com/firstround/interviewd/pkg/models"
)

// Store is implemented by Memory (tests, dev) and Postgres (production).
type Store interface {
	// CreateSession persists a new session in its initial state.
	CreateSession(ctx context.Context, s *models.Session) error
	// GetSession returns the session or ErrNotFound.
	GetSession(ctx context.Context, id string) (models.Session, error)
	// ListSessionsByUser returns the user's sessions, newest first.
	ListSessionsByUser(ctx context.Context, userID string) ([]models.Session, error)
	// UpdateSession writes the session's mutable fields iff its persisted
	// state equals expect (ErrStateConflict otherwise). This is the only
	// mutation in the whole store.
	UpdateSession(ctx context.Context, s models.Session, expect models.SessionState) error

	// AppendQuestion assigns the next gapless ordinal and persists the
	// question. Rejected with ErrTerminal on sealed sessions.
	AppendQuestion(ctx context.Context, q *models.Question) error
	// AppendAnswer persists an answer; at most one per question
	// (ErrAlreadyExists on the second).
	AppendAnswer(ctx context.Context, a *models.Answer) error
	// AttachFeedback sets the analysis on an existing answer. The answer's
	// own fields are never rewritten.
	AttachFeedback(ctx context.Context, sessionID, answerID string, fb models.Feedback) error
	GetQuestions(ctx context.Context, sessionID string) ([]models.Question, error)
	GetAnswers(ctx context.Context, sessionID string) ([]models.Answer, error)

	// AppendAntiCheatBatch persists a verified batch atomically and advances
	// the session's chain tail to newTail. All-or-nothing.
	AppendAntiCheatBatch(ctx context.Context, sessionID string, events []models.AntiCheatEvent, newTail models.ChainTail) error
	// GetEvents returns accepted events with seq > sinceSeq in order.
	GetEvents(ctx context.Context, sessionID string, sinceSeq int64) ([]models.AntiCheatEvent, error)
	InsertStrike(ctx context.Context, s *models.Strike) error
	GetStrikes(ctx context.Context, sessionID string) ([]models.Strike, error)

	// WriteSummary seals the report. Idempotent: a summary already present
	// is kept and the write is a no-op.
	WriteSummary(ctx context.Context, s *models.Summary) error
	GetSummary(ctx context.Context, sessionID string) (models.Summary, error)

	// ConsumeUploadToken burns a one-shot upload token jti. Second call
	// returns ErrTokenConsumed.
	ConsumeUploadToken(ctx context.Context, jti string) error
	SaveUpload(ctx context.Context, u *models.Upload) error
	GetUploads(ctx context.Context, sessionID string) ([]models.Upload, error)

	// ListSealedBefore returns ids of terminal sessions last updated before
	// cutoff. Used by the retention sweeper.
	ListSealedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// DeleteSessionCascade removes a session and all dependent records.
	DeleteSessionCascade(ctx context.Context, id string) error
}
