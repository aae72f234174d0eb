// Package ai generates interview questions, per-answer feedback, and final
// summaries. A Provider talks to a real model; the Proxy wraps it with the
// per-session concurrency guard, a hard timeout, and a deterministic fallback
// so the interview never stalls on an unavailable model.
package ai

import (
	"context"
	"errors"

	"github.com/firstround/interviewd/pkg/models"
)

// ErrBusy is returned when a generation of the same kind is already in
// flight for the session.
var ErrBusy = errors.New("generation already in flight for session")

// QuestionRequest carries everything a provider needs to produce the next
// question. Type is decided by the proxy's mode-selection policy before the
// provider is called.
type QuestionRequest struct {
	Session models.Session
	Ordinal int
	Type    string
	Asked   []models.Question
}

// QA pairs a question with its (possibly missing) answer for summaries.
type QA struct {
	Question models.Question
	Answer   *models.Answer
}

// SummaryRequest carries the full interview record for summary generation.
type SummaryRequest struct {
	Session models.Session
	QA      []QA
	Strikes []models.Strike
}

// Provider produces model output. Implementations must be safe for
// concurrent use; the proxy serializes per session, not globally.
type Provider interface {
	// GenerateQuestion fills in Text and the type-specific fields for the
	// requested question type.
	GenerateQuestion(ctx context.Context, req QuestionRequest) (models.Question, error)
	// AnalyzeAnswer scores one answer for immediate feedback.
	AnalyzeAnswer(ctx context.Context, q models.Question, a models.Answer) (models.Feedback, error)
	// GenerateSummary produces the final report body (overall, rubric,
	// strengths, gaps, per-question review).
	GenerateSummary(ctx context.Context, req SummaryRequest) (models.Summary, error)
}
